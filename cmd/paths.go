package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtzll/tubeagent/internal"
)

// pathsCmd represents the paths command
var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show paths used by the application",
	Example: `  # Show all application paths
  tubeagent paths`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Config directory: %s\n", config.ConfigDir)
		fmt.Printf("Data directory: %s\n", config.DataDir)
		fmt.Printf("Cache directory: %s\n", config.CacheDir)
		if config.DatabaseDriver == internal.DriverSQLite {
			fmt.Printf("Database: %s\n", config.DatabaseURL)
		}
		if config.Storage == internal.StorageFS {
			fmt.Printf("Images directory: %s\n", config.ImagesDir)
		}
		if config.MCPLogEnabled {
			fmt.Printf("MCP log: %s/mcp.log\n", config.CacheDir)
		}
	},
}

func init() {
	rootCmd.AddCommand(pathsCmd)
}
