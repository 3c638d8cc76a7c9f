/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/ssargent/muninn/pkg/api"

	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the muninn REST API server.

The server exposes the run store over HTTP with API key authentication
and Prometheus metrics. Listen address, API key and data directory come
from the configuration file; run 'muninn init' first to create one.

Examples:
  muninn serve
  muninn serve --port 9000
  muninn serve --config ./muninn.yaml --data ./muninn-data`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := runContainer(cmd)
		if err != nil {
			return err
		}

		if port, _ := cmd.Flags().GetInt("port"); cmd.Flags().Changed("port") {
			c.Config.Port = port
		}
		if bind, _ := cmd.Flags().GetString("bind"); cmd.Flags().Changed("bind") {
			c.Config.Bind = bind
		}
		if c.Config.Security.APIKey == "" || c.Config.Security.APIKey == "auto" {
			return fmt.Errorf("no API key configured; run 'muninn init' first")
		}

		server, err := c.Server()
		if err != nil {
			return fmt.Errorf("failed to build server: %w", err)
		}
		return api.StartServer(server)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind the server to")
}
