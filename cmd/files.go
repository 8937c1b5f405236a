package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/neostalgic/obsidian-strapi-uploader/internal/config"
	"github.com/neostalgic/obsidian-strapi-uploader/internal/strapi"
)

func newFilesCmd() *cobra.Command {
	var absoluteURLs bool

	cmd := &cobra.Command{
		Use:   "files",
		Short: "List the most recent files in the Strapi media library",
		Long: fmt.Sprintf(`Files lists up to %d of the most recently created files in the Strapi
media library. These are the files publish checks for name matches before
uploading.`, strapi.ListPageSize),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFiles(cmd, absoluteURLs)
		},
	}
	cmd.Flags().BoolVar(&absoluteURLs, "absolute-urls", false, "Print absolute media URLs")
	return cmd
}

func runFiles(cmd *cobra.Command, absoluteURLs bool) error {
	cfg, err := config.Load(flagEnvFile)
	if err != nil {
		return err
	}
	client, err := strapi.NewClient(strapi.ClientConfig{
		BaseURL:  cfg.Host,
		APIToken: cfg.APIToken,
		Logger:   newLogger(cmd.ErrOrStderr()),
	})
	if err != nil {
		return err
	}

	files, err := client.ListFiles(commandContext(cmd))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(files) == 0 {
		fmt.Fprintln(out, "no files in the media library")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tMIME\tSIZE\tURL")
	for _, f := range files {
		url := f.URL
		if absoluteURLs {
			url = client.AbsoluteURL(url)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f KB\t%s\n", f.ID, f.Name, f.Mime, f.Size, url)
	}
	return tw.Flush()
}
