package cmd

import (
	"fmt"
	"unicode/utf8"

	"github.com/lehigh-university-libraries/manuscript/internal/extract"
	"github.com/lehigh-university-libraries/manuscript/internal/models"
	"github.com/lehigh-university-libraries/manuscript/internal/segmenter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type outlineChapter struct {
	ID         string `yaml:"id"`
	Title      string `yaml:"title"`
	Characters int    `yaml:"characters"`
	Preview    string `yaml:"preview,omitempty"`
}

type outline struct {
	File     string           `yaml:"file"`
	Chapters []outlineChapter `yaml:"chapters"`
}

func newSegmentCmd() *cobra.Command {
	var previewLength int

	cmd := &cobra.Command{
		Use:   "segment FILE",
		Short: "Print the chapters detected in a manuscript",
		Long: `Reads a .docx, .epub or .txt manuscript and prints the chapter outline as YAML.

Chapters start at lines beginning with "Capítulo N" or "Chapter N". A document
without markers is treated as a single chapter.`,
		Example: `  manuscript segment novela.docx`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := extract.File(args[0])
			if err != nil {
				return err
			}

			chapters := segmenter.Segment(text)
			if len(chapters) == 0 {
				return fmt.Errorf("%s: no chapters could be detected", args[0])
			}

			out := yaml.NewEncoder(cmd.OutOrStdout())
			out.SetIndent(2)
			defer out.Close()
			return out.Encode(buildOutline(args[0], chapters, previewLength))
		},
	}

	cmd.Flags().IntVar(&previewLength, "preview", 80, "Characters of each chapter to show (0 to hide)")

	return cmd
}

func buildOutline(file string, chapters []models.Chapter, previewLength int) outline {
	o := outline{File: file}
	for _, ch := range chapters {
		o.Chapters = append(o.Chapters, outlineChapter{
			ID:         ch.ID,
			Title:      ch.Title,
			Characters: utf8.RuneCountInString(ch.OriginalContent),
			Preview:    preview(ch.OriginalContent, previewLength),
		})
	}
	return o
}

func preview(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
