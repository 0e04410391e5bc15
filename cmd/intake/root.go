package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/mediaintake/pkg/config"
	"github.com/your-org/mediaintake/pkg/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "intake",
		Short: "Classify, validate and process media files",
		Long: `intake runs files through the media intake pipeline: each file is
classified, checked against the rules, optionally re-encoded, and given a
preview thumbnail.

Examples:
  intake process --rules rules.yaml --out ./out photo.jpg talk.mp4 notes.pdf
  find . -name '*.wav' | intake process --stdin --kind audio
  intake classify unknown.bin
  intake probe talk.mp4`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", "", "Log level (default from APP_LOG_LEVEL, else warn)")

	root.AddCommand(newProcessCmd())
	root.AddCommand(newClassifyCmd())
	root.AddCommand(newProbeCmd())
	return root
}

// setup loads configuration and a console logger for a command.
func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = "warn"
		if _, ok := os.LookupEnv("APP_LOG_LEVEL"); ok {
			level = cfg.App.LogLevel
		}
	}
	logr, err := logger.New(level, "console")
	if err != nil {
		return nil, nil, err
	}
	return cfg, logr, nil
}
