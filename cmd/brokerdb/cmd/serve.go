/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the inspection API server",
	Long: `Load the configured persistence file and serve it over HTTP: state summary,
client sessions, retained messages and Prometheus metrics. POST routes
reload the file and write a fresh checkpoint; they require the configured
API key.

Examples:
  brokerdb serve
  brokerdb serve --port 9300 --bind 0.0.0.0`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := container.Config()
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			cfg.Server.Bind, _ = cmd.Flags().GetString("bind")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func runServe(ctx context.Context) error {
	log := container.Logger("serve")
	server, err := container.NewServer()
	if err != nil {
		return err
	}
	if err := server.Reload(ctx); err != nil {
		return err
	}
	if container.Config().Server.APIKey == "" {
		log.Warn("no API key configured, POST routes are open")
	}
	log.WithField("metrics", "http://"+server.Addr()+"/metrics").Info("metrics available")
	return server.ListenAndServe(ctx, container.Registry())
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 9200, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind to")
}
