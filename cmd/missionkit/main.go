package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"missionkit/internal/config"
	"missionkit/internal/logging"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

// skipConfig marks commands that run without loading missionkit.yaml.
const skipConfig = "skip-config"

func main() {
	logger = zap.NewNop()
	root := &cobra.Command{
		Use:          "missionkit",
		Short:        "Inspect, edit and index playmission archives",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := cmd.Annotations[skipConfig]; ok {
				return nil
			}
			return setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultFileName, "Path to the config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	root.AddCommand(inspectCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(resaveCmd())
	root.AddCommand(editCmd())
	root.AddCommand(indexCmd())
	root.AddCommand(queryCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(initCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	logCfg := logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}
	if verbose {
		logCfg.Level = "debug"
	}
	built, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	logger = built
	logger.Debug("config loaded", zap.String("path", configPath), zap.String("dsn_scheme", dsnScheme(cfg.Database.DSN)))
	return nil
}
