package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/manuscript/internal/correction"
	"github.com/lehigh-university-libraries/manuscript/internal/handlers"
	"github.com/lehigh-university-libraries/manuscript/internal/storage"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		port        string
		dbPath      string
		staticDir   string
		provider    string
		model       string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start web server for the review interface",
		Long: `Starts the Manuscript web interface on the specified port.

Upload a .docx, .epub or .txt manuscript, correct its chapters one by one
(or all at once), review each correction and download the corrected .docx
once every chapter has been accepted.`,
		Example: `  # Start server on default port 8888
  manuscript serve

  # Keep sessions across restarts
  manuscript serve --db manuscript.db

  # Use a local Ollama model
  manuscript serve --provider ollama --model llama3.1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := correction.NewService(provider, model)
			if err != nil {
				return err
			}

			opts := handlers.Options{
				Corrector:   svc,
				StaticDir:   staticDir,
				Concurrency: concurrency,
			}
			if dbPath != "" {
				snapshots, err := storage.OpenSnapshotStore(dbPath)
				if err != nil {
					return err
				}
				defer snapshots.Close()
				opts.Snapshots = snapshots
			}

			handler := handlers.New(opts)
			restored, err := handler.RestoreSessions()
			if err != nil {
				return err
			}
			if restored > 0 {
				slog.Info("Restored sessions", "count", restored, "db", dbPath)
			}

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: handler.Routes(),
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Manuscript interface available", "addr", addr, "url", "http://localhost"+addr, "provider", svc.Provider(), "model", svc.Model())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				handler.Wait()
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database for persisting sessions (in memory only when empty)")
	cmd.Flags().StringVar(&staticDir, "static", "static", "Directory with the web interface files")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider (gemini, vertex, openai or ollama; defaults to CORRECTION_PROVIDER)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (defaults to provider's default)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 3, "Maximum corrections running at once for correct-all")

	return cmd
}
