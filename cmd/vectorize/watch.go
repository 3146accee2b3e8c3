package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/vectorize/internal/watcher"
)

func newWatchCmd(root *rootFlags) *cobra.Command {
	var (
		debounce    time.Duration
		flushEvery  time.Duration
		skipInitial bool
	)
	cmd := &cobra.Command{
		Use:   "watch [directory]",
		Short: "Index a directory, then keep re-indexing files as they change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(root)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Source.Path = args[0]
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			a.warnLongRunning()

			ctx := cmd.Context()
			recursive := cfg.Source.RecursiveOrDefault()
			if !skipInitial {
				if _, err := a.indexer.IndexDirectory(ctx, cfg.Source.Path, recursive); err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
			}

			w, err := watcher.New(cfg.Source.Path, recursive, a.indexer,
				watcher.WithLogger(logger),
				watcher.WithDebounce(debounce),
				watcher.WithFlushInterval(flushEvery))
			if err != nil {
				return err
			}
			if err := w.Run(ctx); err != nil {
				return err
			}
			logger.Info("watch stopped", zap.String("root", cfg.Source.Path))
			return nil
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "quiet period before a changed file is re-indexed")
	cmd.Flags().DurationVar(&flushEvery, "flush-interval", 30*time.Second, "how often cache changes are saved")
	cmd.Flags().BoolVar(&skipInitial, "skip-initial", false, "do not run a full pass before watching")
	return cmd
}
