package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/neostalgic/obsidian-strapi-uploader/internal/config"
	"github.com/neostalgic/obsidian-strapi-uploader/internal/contenttype"
	"github.com/neostalgic/obsidian-strapi-uploader/internal/fs"
	"github.com/neostalgic/obsidian-strapi-uploader/internal/history"
	"github.com/neostalgic/obsidian-strapi-uploader/internal/strapi"
	syncflow "github.com/neostalgic/obsidian-strapi-uploader/internal/sync"
)

type publishFlags struct {
	contentType  string
	concurrency  int
	timeout      time.Duration
	replace      bool
	absoluteURLs bool
	dryRun       bool
}

func newPublishCmd() *cobra.Command {
	var flags publishFlags

	cmd := &cobra.Command{
		Use:   "publish NOTE",
		Short: "Publish a note and its embedded media to Strapi",
		Long: `Publish uploads every image and video embedded in NOTE (as ![[file]])
to the Strapi media library, rewrites the embeds to Markdown that points at
the uploaded files, and creates an entry of the selected content type.

NOTE is a path to a Markdown file inside the vault (OSU_VAULT, or the
current directory). Media already in the library under the same file name
is reused unless --replace is given.

If any upload fails, no entry is created. Files uploaded before the failure
stay in the media library; see "osu history --orphans".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, args[0], flags)
		},
	}
	cmd.Flags().StringVarP(&flags.contentType, "content-type", "t", "", "Content type to create (default from OSU_CONTENT_TYPE)")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", syncflow.DefaultConcurrency, "Maximum parallel uploads")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", syncflow.DefaultTimeout, "Overall publish timeout")
	cmd.Flags().BoolVar(&flags.replace, "replace", false, "Upload media even if a file with the same name exists")
	cmd.Flags().BoolVar(&flags.absoluteURLs, "absolute-urls", false, "Write absolute media URLs into the body")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Print the requests instead of sending them")
	return cmd
}

func runPublish(cmd *cobra.Command, notePath string, flags publishFlags) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()
	logger := newLogger(cmd.ErrOrStderr())

	cfg, err := config.Load(flagEnvFile)
	if err != nil {
		return err
	}

	typeName := strings.TrimSpace(flags.contentType)
	if typeName == "" {
		typeName = cfg.ContentType
	}
	mapping, err := contenttype.Lookup(typeName)
	if err != nil {
		return err
	}

	vault, err := fs.NewDirVault(cfg.VaultDir)
	if err != nil {
		return err
	}
	note, err := vault.Resolve(notePath)
	if err != nil {
		return fmt.Errorf("resolve note: %w", err)
	}

	client, err := strapi.NewClient(strapi.ClientConfig{
		BaseURL:  cfg.Host,
		APIToken: cfg.APIToken,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	opts := syncflow.PublishOptions{
		Concurrency:     flags.concurrency,
		Timeout:         flags.timeout,
		ReplaceExisting: flags.replace,
		Logger:          logger,
	}
	if flags.absoluteURLs {
		opts.ResolveURL = client.AbsoluteURL
	}

	var remote syncflow.Remote = client
	if flags.dryRun {
		remote = &dryRunRemote{out: out, host: client.BaseURL()}
	} else {
		opts.Progress = progressFor(cmd.ErrOrStderr())
		store := openHistory(ctx, cfg.HistoryDB, logger)
		if store != nil {
			defer store.Close()
			opts.Recorder = store
		}
	}

	result, err := syncflow.Publish(ctx, vault, remote, note, mapping, opts)
	if err != nil {
		return err
	}

	reportPublish(out, result, flags.dryRun)
	return nil
}

func reportPublish(out io.Writer, result syncflow.PublishResult, dryRun bool) {
	uploaded, reused := 0, 0
	for _, u := range result.Uploads {
		if u.Reused {
			reused++
		} else {
			uploaded++
		}
	}
	if dryRun {
		printSuccess(out, fmt.Sprintf("dry run: %s would create a %s entry with %d asset(s)",
			result.Note.Path, result.Type.SingularName(), len(result.Uploads)))
		return
	}
	printSuccess(out, fmt.Sprintf("published %s as %s entry %d (%d uploaded, %d reused)",
		result.Note.Path, result.Type.SingularName(), result.Entry.ID, uploaded, reused))
}

// openHistory returns nil when the ledger cannot be opened; publishing does
// not depend on it.
func openHistory(ctx context.Context, path string, logger *slog.Logger) *history.Store {
	store, err := history.Open(ctx, path)
	if err != nil {
		logger.Warn("publish history disabled", "path", path, "error", err)
		return nil
	}
	return store
}
