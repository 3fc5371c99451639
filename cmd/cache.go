package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/abhisek/qagen/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the chunk result cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached chunk result",
	Long: `Remove every cached chunk result so the next run dispatches all chunks again.

Only the redis backend outlives a single process; the memory cache is
always empty when a new command starts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return clearCache(cmd.Context(), appConfig.CacheSettings(), cmd.OutOrStdout())
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}

// clearCache empties the cache described by cfg.
func clearCache(ctx context.Context, cfg cache.Config, w io.Writer) error {
	c, err := cache.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	if c == nil {
		fmt.Fprintln(w, "Cache is disabled.")
		return nil
	}
	if closer, ok := c.(io.Closer); ok {
		defer closer.Close()
	}
	if err := c.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	fmt.Fprintf(w, "Cleared %s cache.\n", orMemory(cfg.Type))
	return nil
}

func orMemory(t string) string {
	if t == "" {
		return cache.TypeMemory
	}
	return t
}
