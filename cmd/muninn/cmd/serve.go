/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/muninn/pkg/api"
	"github.com/ssargent/muninn/pkg/archive"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the muninn REST API server. The server accepts event log
uploads for parsing, exposes the record archive for querying, and serves
Prometheus metrics at /metrics.

The API key comes from the config file; run 'muninn init' once to generate
one, or pass --api-key explicitly.

Examples:
  muninn serve
  muninn serve --port=9200 --api-key=mysecretkey`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		bind, _ := cmd.Flags().GetString("bind")
		apiKey, _ := cmd.Flags().GetString("api-key")

		if !cmd.Flags().Changed("port") {
			port = cfg.Server.Port
		}
		if !cmd.Flags().Changed("bind") {
			bind = cfg.Server.Bind
		}
		if apiKey == "" {
			apiKey = cfg.Server.APIKey
		}
		if apiKey == "" || apiKey == "auto" {
			return fmt.Errorf("no API key configured: run 'muninn init' or pass --api-key")
		}

		store, err := archive.Open(cfg.Archive.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		config := api.ServerConfig{
			Port:   port,
			Bind:   bind,
			APIKey: apiKey,
		}

		return api.StartServer(store, config, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind to")
	serveCmd.Flags().String("api-key", "", "API key for request authentication")
}
