package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rtzll/tubeagent/internal"
)

var (
	config *internal.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tubeagent [YouTube URL or ID]",
	Short: "Chat with YouTube videos and generate titles and thumbnails",
	Long: `tubeagent is an assistant for YouTube videos.

It fetches transcripts and video details, generates title ideas and
thumbnails, and answers questions about a video in a chat that can call
those tools itself. Run it from the terminal, as an HTTP API (serve) or
as an MCP server for other assistants (mcp).

Models come from OpenAI or Google Vertex AI.`,
	Example: `  # Show a video's details and its analysis page (default behavior)
  tubeagent "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  tubeagent tAP1eZYEuKA

  # Ask questions about a video
  tubeagent chat tAP1eZYEuKA

  # Generate three title ideas with a specific model
  tubeagent title tAP1eZYEuKA -n 3 --model gpt-4o

  # Run the HTTP API
  tubeagent serve`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return internal.HandleVerboseFlag(cmd, config)
	},
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		arg := args[0]
		if internal.IsLikelyCommand(arg) {
			var commands []string
			for _, c := range cmd.Commands() {
				commands = append(commands, c.Name())
			}
			if suggestions := internal.SuggestCommands(arg, commands); len(suggestions) > 0 {
				return fmt.Errorf("'%s' doesn't look like a YouTube URL or video ID. Did you mean: %s?", arg, strings.Join(suggestions, ", "))
			}
			return fmt.Errorf("'%s' doesn't look like a YouTube URL or video ID. Use --help to see available commands", arg)
		}
		return runAnalyse(cmd, arg)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var err error
	config, err = internal.InitConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return err
	}

	if err := internal.EnsureDirs(config.ConfigDir, config.DataDir, config.CacheDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating XDG directories: %v\n", err)
		return err
	}

	if err := internal.EnsureDefaultConfig(config.ConfigDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to ensure default config: %v\n", err)
	}
	if err := internal.EnsureDefaultPrompt(config.ConfigDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to ensure default prompt: %v\n", err)
	}

	// First signal cancels the running command, a second one exits
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal. Shutting down...")
		cancel()

		<-sigCh
		fmt.Fprintln(os.Stderr, "Forcing exit")
		os.Exit(1)
	}()

	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for debugging")
}
