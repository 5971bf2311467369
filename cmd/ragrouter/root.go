package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var errQueryRequired = errors.New("--query is required")

type rootOptions struct {
	configPath string
	query      string
	skipIngest bool
	files      []string
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "ragrouter",
		Short:         "Answer a query from a vector store or Wikipedia",
		Long:          "Ingests the configured web pages into a vector store, then routes the query to that store or to Wikipedia and prints the answer.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(opts.query) == "" {
				return errQueryRequired
			}
			return runQuery(cmd, out, opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (yaml, json or .env); defaults to ./.env")
	root.Flags().StringVarP(&opts.query, "query", "q", "", "the query to answer")
	root.Flags().BoolVar(&opts.skipIngest, "skip-ingest", false, "answer from the existing store without fetching the urls")
	root.Flags().StringSliceVar(&opts.files, "file", nil, "local text files to ingest before answering")

	root.AddCommand(
		newIngestCmd(out, opts),
		newServeCmd(opts),
		newUICmd(opts),
	)
	return root
}

func runQuery(cmd *cobra.Command, out io.Writer, opts *rootOptions) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, opts.configPath, true)
	if err != nil {
		return err
	}
	defer a.Close()

	answerer, err := a.answerer()
	if err != nil {
		return err
	}

	if _, err := a.ingest(ctx, opts.files, !opts.skipIngest); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	ans, err := answerer.GetAnswer(ctx, opts.query)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, ans.Content)
	return err
}
