package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neostalgic/obsidian-strapi-uploader/internal/config"
	"github.com/neostalgic/obsidian-strapi-uploader/internal/contenttype"
)

func newContentTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "content-types",
		Short: "List the content types notes can be published as",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			current := strings.TrimSpace(os.Getenv("OSU_CONTENT_TYPE"))
			if current == "" {
				current = config.DefaultContentType
			}
			out := cmd.OutOrStdout()
			for _, def := range contenttype.Definitions() {
				marker := " "
				if def.Name == current {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-28s /api/%ss  %s\n", marker, def.Name, def.Name, def.Description)
			}
			return nil
		},
	}
}
