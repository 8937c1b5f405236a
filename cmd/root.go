// Package cmd contains all cobra command definitions for the osu CLI.
package cmd

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

var (
	flagVerbose bool
	flagEnvFile string
)

var rootCmd = &cobra.Command{
	Use:   "osu",
	Short: "Obsidian to Strapi uploader",
	Long: `osu publishes Obsidian notes to a Strapi CMS.

Embedded images and videos are uploaded to the Strapi media library first,
their wiki embeds are rewritten to Markdown pointing at the uploaded files,
and the note is then created as an entry of the chosen content type.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and reports a failure on stderr.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		printFailure(rootCmd.ErrOrStderr(), err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose output (log HTTP requests)")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "Path to the .env file with Strapi credentials")
	rootCmd.AddCommand(
		newInitCmd(),
		newPublishCmd(),
		newFilesCmd(),
		newHistoryCmd(),
		newContentTypesCmd(),
	)
}

// newLogger writes text logs to w. Only warnings and errors are shown
// unless --verbose is set.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
