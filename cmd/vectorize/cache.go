package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/vectorize/internal/cli"
	"github.com/hyperjump/vectorize/internal/storage"
)

func newCacheCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the embedding and incremental caches",
	}
	var format string
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show cache entry counts and disk usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := cli.ParseOutputFormat(format)
			if err != nil {
				return err
			}
			cfg, _, err := loadConfig(root)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := storage.Open(cfg.Cache.Store, cfg.Cache.Dir, logger)
			if err != nil {
				return fmt.Errorf("failed to open cache store: %w", err)
			}
			defer store.Close()

			var rows []cli.CacheStat
			for _, ns := range []string{cfg.EmbeddingCacheName(), cfg.FileCacheName()} {
				n, err := store.Count(cmd.Context(), ns)
				if err != nil {
					return fmt.Errorf("count %s: %w", ns, err)
				}
				rows = append(rows, cli.CacheStat{Namespace: ns, Entries: n})
			}
			disk, err := storage.DiskUsageBytes(storage.Paths(cfg.Cache.Store, cfg.Cache.Dir)...)
			if err != nil {
				return fmt.Errorf("disk usage: %w", err)
			}
			return cli.WriteCacheStats(cmd.OutOrStdout(), rows, disk, f)
		},
	}
	stats.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	cmd.AddCommand(stats)
	return cmd
}
