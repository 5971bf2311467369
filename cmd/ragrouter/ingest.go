package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newIngestCmd(out io.Writer, root *rootOptions) *cobra.Command {
	var (
		files    []string
		skipURLs bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load the configured urls and local files into the vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, root.configPath, false)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.ingest(ctx, files, !skipURLs)
			if err != nil {
				return err
			}
			total, err := a.store.Count(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "Inserted %d documents into the vector store (%d total).\n", stats.Inserted, total)
			return err
		},
	}
	cmd.Flags().StringSliceVar(&files, "file", nil, "local text files to ingest")
	cmd.Flags().BoolVar(&skipURLs, "skip-urls", false, "only ingest the given files")
	return cmd
}
