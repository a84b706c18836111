package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var (
		logLevel string
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "manuscript",
		Short: "Chapter-by-chapter manuscript correction with LLMs",
		Long: `Manuscript splits a book into chapters, has an LLM correct each one and lets
you review and accept every correction before exporting a new .docx.

It can run as a web interface (serve) or in batch mode (correct).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			if verbose {
				logLevel = "debug"
			}
			level, err := parseLogLevel(logLevel)
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging (same as --log-level debug)")

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSegmentCmd())
	cmd.AddCommand(newCorrectCmd())

	return cmd
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
