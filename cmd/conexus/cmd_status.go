package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print repository sync status and vector store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			rt, err := newRuntime(ctx, true)
			if err != nil {
				return configError(err)
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			if rt.pipeline == nil {
				fmt.Fprintln(out, "no repositories configured")
			} else {
				for _, repo := range rt.pipeline.GitSync.Repositories() {
					fmt.Fprintf(out, "%-20s status=%-10s priority=%-6s last_commit=%s last_synced=%s\n",
						repo.Name, repo.Status, repo.Priority, repo.LastCommit, repo.LastSyncedAt.Format("2006-01-02T15:04:05Z07:00"))
				}
			}

			stats, err := rt.vectorStore.Stats(ctx)
			if err != nil {
				return runtimeError(fmt.Errorf("reading vector store stats: %w", err))
			}
			fmt.Fprintf(out, "\ndocuments=%d chunks=%d index_size=%d\n", stats.TotalDocuments, stats.TotalChunks, stats.IndexSize)
			return nil
		},
	}
}
