package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	var repository string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync one or all configured repositories and index changed files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			rt, err := newRuntime(ctx, true)
			if err != nil {
				return configError(err)
			}
			defer rt.Close()

			if rt.pipeline == nil {
				return configError(fmt.Errorf("no repositories configured"))
			}

			if repository != "" {
				changes, err := rt.pipeline.SyncAndIndex(ctx, repository)
				if err != nil {
					return runtimeError(fmt.Errorf("sync %s: %w", repository, err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: +%d ~%d -%d (commit %s)\n",
					repository, len(changes.Added), len(changes.Modified), len(changes.Removed), changes.NewCommit)
				return nil
			}

			var failed int
			for _, repo := range rt.pipeline.GitSync.Repositories() {
				changes, err := rt.pipeline.SyncAndIndex(ctx, repo.Name)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", repo.Name, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: +%d ~%d -%d (commit %s)\n",
					repo.Name, len(changes.Added), len(changes.Modified), len(changes.Removed), changes.NewCommit)
			}
			if failed > 0 {
				return runtimeError(fmt.Errorf("%d repositories failed to sync", failed))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&repository, "repository", "", "sync only this repository")
	return cmd
}
