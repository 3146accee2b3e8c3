package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/vectorize/internal/config"
	"github.com/hyperjump/vectorize/pkg/utils"
)

type rootFlags struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "vectorize",
		Short: "Chunk, embed and upload a file share to a search index",
		Long: `vectorize walks a directory tree, extracts text from office documents,
splits it into token windows, embeds each window and uploads the records in
batches to a search index. Embeddings and file modification times are cached
so repeated runs only process what changed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default ./config.yaml when present)")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newIndexCmd(flags),
		newWatchCmd(flags),
		newServeCmd(flags),
		newConfigCmd(flags),
		newCacheCmd(flags),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vectorize version %s\n", version)
		},
	}
}

// loadConfig loads the config named by --config. Without the flag it uses
// config.yaml in the working directory when one exists, and otherwise builds
// the config from the environment alone. It returns the path actually loaded.
func loadConfig(flags *rootFlags) (*config.Config, string, error) {
	path := flags.configPath
	if path == "" {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				path = fallback
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if flags.debug {
		cfg.Debug = true
	}
	return cfg, path, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := utils.NewLoggerWithLevel(cfg.Debug, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
