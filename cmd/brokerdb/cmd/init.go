/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/ssargent/brokerdb/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default brokerdb config file",
	Long: `Write a default config file with a freshly generated API key for the
POST routes of the inspection server.

Examples:
  brokerdb init
  brokerdb init --config ./brokerdb.yaml --data-dir /var/lib/mosquitto`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		force, _ := cmd.Flags().GetBool("force")
		return runInit(cmd.OutOrStdout(), configPath, dataDir, force)
	},
}

func runInit(out io.Writer, configPath, dataDir string, force bool) error {
	if config.ConfigExists(configPath) && !force {
		return errors.Errorf("config already exists at %s, use --force to overwrite", configPath)
	}

	cfg, err := config.BootstrapConfig(configPath, dataDir)
	if err != nil {
		return err
	}

	printf(out, "Wrote config to %s\n", configPath)
	printf(out, "Persistence file: %s\n", cfg.CheckpointPath())
	printf(out, "API key: %s...\n", cfg.Server.APIKey[:8])
	return nil
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().String("data-dir", "", "Directory holding the persistence file")
	initCmd.Flags().Bool("force", false, "Overwrite an existing config")
}
