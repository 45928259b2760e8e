/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ssargent/brokerdb/pkg/config"
	"github.com/ssargent/brokerdb/pkg/di"
)

// container is built by the root command before any subcommand runs
var container *di.Container

// SetContainer replaces the dependency container (for testing)
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "brokerdb",
	Short: "brokerdb - MQTT broker persistence tools",
	Long: `brokerdb reads, verifies and rewrites the chunked persistence file an
MQTT broker uses to save sessions, queued messages, retained messages and
subscriptions across restarts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if container != nil {
			return nil
		}
		configPath, _ := cmd.Flags().GetString("config")
		logLevel, _ := cmd.Flags().GetString("log-level")

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger, err := newLogger(cfg.Logging.Level)
		if err != nil {
			return err
		}
		container = di.NewContainer(cfg, logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when it does
// not exist
func loadConfig(configPath string) (*config.Config, error) {
	if !config.ConfigExists(configPath) {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	return cfg, nil
}

func newLogger(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger, nil
}

// checkpointPath returns the file named on the command line, or the
// configured persistence file
func checkpointPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return container.Config().CheckpointPath()
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", config.GetDefaultConfigPath(), "Path to the config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (overrides logging.level)")
}
