package main

import (
	"github.com/smallnest/ragrouter/tui"
	"github.com/spf13/cobra"
)

func newUICmd(root *rootOptions) *cobra.Command {
	var skipIngest bool

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Ask questions in an interactive terminal UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, root.configPath, true)
			if err != nil {
				return err
			}
			defer a.Close()

			answerer, err := a.answerer()
			if err != nil {
				return err
			}
			if _, err := a.ingest(ctx, nil, !skipIngest); err != nil {
				return err
			}
			return tui.Run(ctx, answerer)
		},
	}
	cmd.Flags().BoolVar(&skipIngest, "skip-ingest", false, "use the existing store without fetching the urls")
	return cmd
}
