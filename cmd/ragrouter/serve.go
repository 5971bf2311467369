package main

import (
	"github.com/smallnest/ragrouter/server"
	"github.com/spf13/cobra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		addr       string
		skipIngest bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web UI and JSON API",
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

			if addr == "" {
				addr = a.cfg.HTTPAddr
			}
			srv := server.New(answerer, server.WithMetrics(a.metrics), server.WithLogger(a.logger))
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&skipIngest, "skip-ingest", false, "serve the existing store without fetching the urls")
	return cmd
}
