package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/vectorize/internal/cli"
)

type indexFlags struct {
	format       string
	full         bool
	showFailures bool
}

func newIndexCmd(root *rootFlags) *cobra.Command {
	flags := &indexFlags{}
	cmd := &cobra.Command{
		Use:   "index [directory]",
		Short: "Index a directory once and print a run summary",
		Long: `Runs one indexing pass over the directory given as argument, or over
source.path (FILE_SHARE_PATH) when omitted. Unchanged files are skipped unless
--full is set. Interrupting the run stops scheduling new files; files already
in progress finish and the caches are saved.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, root, flags, args)
		},
	}
	cmd.Flags().StringVarP(&flags.format, "format", "f", "text", "summary format: text or json")
	cmd.Flags().BoolVar(&flags.full, "full", false, "reprocess every file, ignoring the incremental cache")
	cmd.Flags().BoolVar(&flags.showFailures, "failures", true, "list failed files in the text summary")
	return cmd
}

func runIndex(cmd *cobra.Command, root *rootFlags, flags *indexFlags, args []string) error {
	format, err := cli.ParseOutputFormat(flags.format)
	if err != nil {
		return err
	}
	cfg, _, err := loadConfig(root)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Source.Path = args[0]
	}
	if flags.full {
		off := false
		cfg.Indexing.Incremental = &off
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

	stats, runErr := a.indexer.IndexDirectory(cmd.Context(), cfg.Source.Path, cfg.Source.RecursiveOrDefault())
	if stats != nil {
		if err := cli.WriteRunSummary(cmd.OutOrStdout(), stats, format, flags.showFailures); err != nil {
			logger.Warn("writing summary failed", zap.Error(err))
		}
	}
	return runErr
}
