package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/rtzll/tubeagent/internal"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server with the video tools",
	Long: `Run a Model Context Protocol (MCP) server that exposes the tubeagent
video tools to other assistants. Tools act as the configured user_id.

Tools:
- fetchTranscript: Captions of a video with timestamps (cached per user)
- getVideoDetails: Title, channel and statistics of a video
- generateTitle: A title from a video summary
- generateImage: A thumbnail from a prompt
- extractVideoId: The video ID in a YouTube URL

Transport options:
- stdio (default): Standard MCP transport via stdin/stdout
- http: Streamable HTTP transport on specified port (use --port to configure)`,
	Example: `  # Run MCP server with stdio transport (e.g. for Claude Desktop)
  tubeagent mcp

  # Run MCP server with HTTP transport on port 8080
  tubeagent mcp --transport=http --port=8080

  # Set up Claude Desktop integration
  tubeagent mcp setup-claude`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// MCP uses stdio protocol, so disable verbose output
		config.Verbose = false
		config.Quiet = true
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		logger, logCloser, err := internal.NewMCPLogger(config)
		if err != nil {
			return err
		}
		defer logCloser.Close()

		app, err := newApp(cmd, internal.WithLogger(logger))
		if err != nil {
			logger.Error("starting MCP server", slog.Any("error", err))
			return err
		}
		defer app.Close()

		mcpServer := internal.NewMCPServer(app, version)
		logger.Info("starting MCP server", slog.String("transport", transport), slog.Int("port", port))

		// Start the server (this will block until context is cancelled)
		return mcpServer.Start(cmd.Context(), transport, port)
	},
}

// setupClaudeCmd represents the setup-claude subcommand
var setupClaudeCmd = &cobra.Command{
	Use:   "setup-claude",
	Short: "Configure Claude Desktop to use the tubeagent MCP server",
	Long: `Register tubeagent as an MCP server in claude_desktop_config.json.

Other servers and settings in the file are kept. The entry carries the
XDG base directories so the server reads the same config and database as
the CLI.`,
	Example: `  tubeagent mcp setup-claude

  # Edit a config file at a custom location
  tubeagent mcp setup-claude --config-path ./claude_desktop_config.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config-path")
		if configPath == "" {
			var err error
			if configPath, err = getClaudeDesktopConfigPath(); err != nil {
				return fmt.Errorf("getting Claude Desktop config path: %w", err)
			}
		}

		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("getting executable path: %w", err)
		}
		if execPath, err = filepath.EvalSymlinks(execPath); err != nil {
			return fmt.Errorf("resolving executable path: %w", err)
		}

		entry := MCPServerConfig{
			Command: execPath,
			Args:    []string{"mcp"},
			Env: map[string]string{
				"XDG_DATA_HOME":   xdg.DataHome,
				"XDG_CONFIG_HOME": xdg.ConfigHome,
				"XDG_CACHE_HOME":  xdg.CacheHome,
			},
		}
		confirm := internal.AskUser
		if yes, _ := cmd.Flags().GetBool("yes"); yes {
			confirm = func(string) bool { return true }
		}
		if err := registerMCPServer(configPath, internal.AppName, entry, confirm); err != nil {
			if errors.Is(err, errSetupDeclined) {
				fmt.Printf("Left %s unchanged\n", configPath)
				return nil
			}
			return err
		}

		fmt.Printf("Registered %s in %s\n", internal.AppName, configPath)
		fmt.Printf("Restart Claude Desktop to use the %s MCP server\n", internal.AppName)
		return nil
	},
}

// MCPServerConfig represents an individual MCP server configuration
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

var errSetupDeclined = errors.New("replacing existing server entry declined")

// registerMCPServer adds or replaces one server entry in a Claude Desktop
// config file. The file must exist. confirm is asked before an existing
// entry with a different command is replaced.
func registerMCPServer(configPath, name string, entry MCPServerConfig, confirm func(string) bool) error {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config for Claude Desktop not found at %s", configPath)
	}
	if err != nil {
		return fmt.Errorf("reading existing config: %w", err)
	}

	if existing, ok := existingMCPServer(data, name); ok && existing.Command != entry.Command {
		if !confirm(fmt.Sprintf("%s already runs %s. Replace it?", name, existing.Command)) {
			return errSetupDeclined
		}
	}

	updated, err := mergeMCPServer(data, name, entry)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, updated, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// existingMCPServer returns the entry registered under name, if any
func existingMCPServer(data []byte, name string) (MCPServerConfig, bool) {
	var doc struct {
		MCPServers map[string]MCPServerConfig `json:"mcpServers"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return MCPServerConfig{}, false
	}
	entry, ok := doc.MCPServers[name]
	return entry, ok
}

// mergeMCPServer sets mcpServers[name] in a config document, keeping every
// other key as is
func mergeMCPServer(data []byte, name string, entry MCPServerConfig) ([]byte, error) {
	doc := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing existing config: %w", err)
		}
	}

	servers := map[string]json.RawMessage{}
	if raw, ok := doc["mcpServers"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &servers); err != nil {
			return nil, fmt.Errorf("parsing mcpServers: %w", err)
		}
	}

	rawEntry, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("marshaling server entry: %w", err)
	}
	servers[name] = rawEntry

	if doc["mcpServers"], err = json.Marshal(servers); err != nil {
		return nil, fmt.Errorf("marshaling mcpServers: %w", err)
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return append(out, '\n'), nil
}

// getClaudeDesktopConfigPath returns the platform-specific config path for Claude Desktop
func getClaudeDesktopConfigPath() (string, error) {
	var configPath string

	switch runtime.GOOS {
	case "darwin":
		// macOS: ~/Library/Application Support/Claude/claude_desktop_config.json
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configPath = filepath.Join(homeDir, "Library", "Application Support", "Claude", "claude_desktop_config.json")

	case "windows":
		// Windows: %APPDATA%/Claude/claude_desktop_config.json
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configPath = filepath.Join(appData, "Claude", "claude_desktop_config.json")

	case "linux":
		// Linux: ~/.config/Claude/claude_desktop_config.json
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configPath = filepath.Join(homeDir, ".config", "Claude", "claude_desktop_config.json")

	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return configPath, nil
}

func init() {
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol (stdio or http)")
	mcpCmd.Flags().Int("port", 8080, "Port for HTTP transport (only used with --transport=http)")
	setupClaudeCmd.Flags().String("config-path", "", "Path to claude_desktop_config.json (default: platform location)")
	setupClaudeCmd.Flags().BoolP("yes", "y", false, "Replace an existing entry without asking")
	mcpCmd.AddCommand(setupClaudeCmd)
	rootCmd.AddCommand(mcpCmd)
}
