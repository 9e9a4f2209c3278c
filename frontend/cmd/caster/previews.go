package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/itchan-dev/caster/frontend/internal/apiclient"
)

func newPreviewsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "previews <url>...",
		Short: "Fetch link previews from the previews service",
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := splitURLs(args)
			if len(urls) == 0 {
				return errNoURLs
			}
			cfg, err := root.load()
			if err != nil {
				return err
			}

			client := apiclient.New(cfg.Public.Endpoints.PreviewsURL)
			previews, err := client.FetchPreviews(cmd.Context(), urls)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(previews)
		},
	}
}
