// Package cli provides the trustreg command-line interface.
package cli

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trustreg-labs/trustreg-go/internal/ingest"
	"github.com/trustreg-labs/trustreg-go/internal/platform/env"
)

// Version is set at build time.
var Version = "0.1.0"

var (
	delimiter    string
	maxLineBytes int
	verbose      bool

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "trustreg",
	Short: "Score model, dataset, and code URLs against trust metrics",
	Long: `Trustreg classifies delimiter-separated URL rows (code, dataset, model),
carries dataset links forward across rows that omit one, and scores each
model against heuristic trust metrics. Results are printed as NDJSON.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logLevel(env.String("TRUSTREG_LOG_LEVEL", ""))
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&delimiter, "delimiter", ",", "field separator for input rows")
	rootCmd.PersistentFlags().IntVar(&maxLineBytes, "max-line-bytes", 0, "maximum input line length in bytes (0 = default)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging to stderr")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// openInput opens the URL file argument, with "-" meaning stdin.
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func delimiterRune() rune {
	if delimiter == "" {
		return ','
	}
	return []rune(delimiter)[0]
}

func logLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func resolverOptions() ingest.Options {
	return ingest.Options{
		Delimiter:    delimiterRune(),
		MaxLineBytes: maxLineBytes,
	}
}
