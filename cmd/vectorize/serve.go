package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/vectorize/internal/server"
	"github.com/hyperjump/vectorize/internal/storage"
)

func newServeCmd(root *rootFlags) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the control API for triggering runs and reading statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(root)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()
			logger.Info("config loaded", zap.String("config_path", path), zap.Bool("debug", cfg.Debug))

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()
			a.warnLongRunning()

			srv := server.NewServer(a.indexer, &cfg.Server, server.Options{
				Dir:        cfg.Source.Path,
				Recursive:  cfg.Source.RecursiveOrDefault(),
				Store:      a.store,
				Namespaces: a.cacheNamespaces(),
				DiskPaths:  storage.Paths(cfg.Cache.Store, cfg.Cache.Dir),
				Logger:     logger,
			})

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}
			logger.Info("shutting down server")
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Stop(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}
