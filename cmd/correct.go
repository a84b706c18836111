package cmd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/lehigh-university-libraries/manuscript/internal/correction"
	"github.com/lehigh-university-libraries/manuscript/internal/export"
	"github.com/lehigh-university-libraries/manuscript/internal/extract"
	"github.com/lehigh-university-libraries/manuscript/internal/models"
	"github.com/lehigh-university-libraries/manuscript/internal/review"
	"github.com/spf13/cobra"
)

type correctOptions struct {
	provider     string
	model        string
	concurrency  int
	output       string
	dataset      string
	report       string
	gcsURI       string
	technical    bool
	allowPartial bool
}

func newCorrectCmd() *cobra.Command {
	var opts correctOptions

	cmd := &cobra.Command{
		Use:   "correct FILE",
		Short: "Correct every chapter of a manuscript and export a .docx",
		Long: `Runs the whole review flow without the web interface: every chapter is
corrected, every correction is accepted and the result is written as .docx.

Chapters whose correction fails keep their original text only with
--allow-partial; otherwise the command fails without writing the export.`,
		Example: `  # Correct with Gemini and write Manuscrito_Corregido.docx
  manuscript correct novela.docx

  # Grammar only, four chapters at a time, with a run report
  manuscript correct novela.docx --technical --concurrency 4 --report run.yaml

  # Upload the result to Cloud Storage
  manuscript correct novela.docx --gcs gs://my-bucket/novela-corregida.docx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCorrect(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.provider, "provider", "", "LLM provider (gemini, vertex, openai or ollama; defaults to CORRECTION_PROVIDER)")
	cmd.Flags().StringVar(&opts.model, "model", "", "Model name (defaults to provider's default)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 3, "Maximum corrections running at once")
	cmd.Flags().StringVarP(&opts.output, "output", "o", export.DefaultFileName, "Path of the corrected .docx")
	cmd.Flags().StringVar(&opts.dataset, "dataset", "", "Also write original/corrected pairs to this Parquet file")
	cmd.Flags().StringVar(&opts.report, "report", "", "Also write a YAML run report to this file")
	cmd.Flags().StringVar(&opts.gcsURI, "gcs", "", "Also upload the .docx to gs://bucket/object (never overwrites)")
	cmd.Flags().BoolVar(&opts.technical, "technical", false, "Only fix grammar, spelling and punctuation")
	cmd.Flags().BoolVar(&opts.allowPartial, "allow-partial", false, "Export even if some chapters could not be corrected")

	return cmd
}

func runCorrect(ctx context.Context, path string, opts correctOptions) error {
	svc, err := correction.NewService(opts.provider, opts.model)
	if err != nil {
		return err
	}

	session := review.NewSession(filepath.Base(path), svc)
	session.SetImproveStyle(!opts.technical)

	err = session.Ingest(ctx, filepath.Base(path), func(context.Context) (string, error) {
		return extract.File(path)
	})
	if err != nil {
		return err
	}

	slog.Info("Correcting manuscript", "file", path, "provider", svc.Provider(), "model", svc.Model(), "concurrency", opts.concurrency)
	correctErr := session.CorrectAll(ctx, opts.concurrency)

	state := session.Snapshot()
	if opts.report != "" {
		if err := export.SaveReport(opts.report, export.NewReport(state, svc.Provider(), svc.Model(), opts.concurrency)); err != nil {
			return err
		}
		slog.Info("Wrote run report", "path", opts.report)
	}
	if opts.dataset != "" {
		if err := writeDatasetFile(opts.dataset, state); err != nil {
			return err
		}
	}

	if correctErr != nil && !opts.allowPartial {
		return correctErr
	}
	if correctErr != nil {
		slog.Warn("Some chapters keep their original text", "err", correctErr)
	}

	for i := range state.Chapters {
		if err := session.AcceptCorrection(i); err != nil {
			return err
		}
	}

	sections, err := session.ExportSections()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := export.WriteDocx(&buf, sections); err != nil {
		return err
	}
	if err := os.WriteFile(opts.output, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("%w: %w", export.ErrExportFailure, err)
	}
	slog.Info("Wrote corrected manuscript", "path", opts.output, "chapters", len(sections))

	if opts.gcsURI != "" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("failed to create storage client: %w", err)
		}
		defer client.Close()
		if err := export.UploadToGCS(ctx, client, opts.gcsURI, export.DocxContentType, buf.Bytes()); err != nil {
			return err
		}
	}

	return nil
}

func writeDatasetFile(path string, state models.SessionState) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", export.ErrExportFailure, err)
	}
	defer f.Close()

	n, err := export.WriteDataset(f, state)
	if err != nil {
		return err
	}
	slog.Info("Wrote correction dataset", "path", path, "rows", n)
	return f.Close()
}
