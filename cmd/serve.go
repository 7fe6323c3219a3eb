package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtzll/tubeagent/internal"
)

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API. Requests act for the user identified by a Google
bearer token, or by X-User-ID when a trusted caller presents the configured
api_key in X-API-Key. Generated images are served under /images/ when
storage is "fs".`,
	Example: `  # Listen on the configured http_addr
  tubeagent serve

  # Listen on another address
  tubeagent serve --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			config.HTTPAddr = addr
		}
		if err := internal.ValidateProviderRequirements(config); err != nil {
			return err
		}

		app, err := newApp(cmd, internal.WithAuth(internal.ContextAuth{}))
		if err != nil {
			return err
		}
		defer app.Close()

		if config.APIKey == "" {
			app.Logger().Warn("api_key is not set; only bearer tokens are accepted")
		}

		server := internal.NewServer(app, config.APIKey, internal.NewGoogleTokenResolver(config.UserInfoURL))
		if err := server.ListenAndServe(cmd.Context(), config.HTTPAddr); err != nil {
			return fmt.Errorf("serving HTTP: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default: http_addr from config)")
	rootCmd.AddCommand(serveCmd)
}
