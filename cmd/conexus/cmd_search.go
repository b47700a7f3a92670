package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ferg-cod3s/docsyncer/internal/contextgen"
)

func newSearchCmd() *cobra.Command {
	var repository, category, strategy string
	var maxResults int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a context query against the indexed documentation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			rt, err := newRuntime(ctx, true)
			if err != nil {
				return configError(err)
			}
			defer rt.Close()

			if rt.pipeline == nil || rt.pipeline.ContextGen == nil {
				return configError(fmt.Errorf("no repositories configured, nothing to search"))
			}

			query := contextgen.Query{
				Task:       strings.Join(args, " "),
				MaxResults: maxResults,
				Strategy:   contextgen.Strategy(strategy),
			}
			if repository != "" {
				query.Repositories = []string{repository}
			}
			if category != "" {
				query.Categories = []string{category}
			}

			result, err := rt.pipeline.ContextGen.Generate(ctx, query)
			if err != nil {
				return runtimeError(fmt.Errorf("search failed: %w", err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "strategy=%s chunks=%d tokens=%d\n\n",
				result.Metadata.Strategy, len(result.Chunks), result.Metadata.TokensUsed)
			fmt.Fprintln(cmd.OutOrStdout(), result.Content)
			return nil
		},
	}

	cmd.Flags().StringVar(&repository, "repository", "", "restrict search to this repository")
	cmd.Flags().StringVar(&category, "category", "", "restrict search to this category")
	cmd.Flags().StringVar(&strategy, "strategy", "", "retrieval strategy: semantic|keyword|hybrid")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "maximum ranked chunks to return")
	return cmd
}
