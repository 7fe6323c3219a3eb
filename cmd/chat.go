package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rtzll/tubeagent/internal"
)

// chatCmd starts a conversation about a video
var chatCmd = &cobra.Command{
	Use:   "chat [YouTube URL or ID]",
	Short: "Chat about a YouTube video",
	Long: `Ask questions about a video. The assistant fetches the transcript and
details itself and can generate titles and thumbnails on request.

Type a message and press enter. An empty line or "exit" ends the chat.`,
	Example: `  # Interactive chat
  tubeagent chat tAP1eZYEuKA

  # One question, answer on stdout
  tubeagent chat tAP1eZYEuKA -q "What are the three main points?"

  # Use a specific provider and model
  tubeagent chat tAP1eZYEuKA --provider vertex --model gemini-2.0-flash`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.HandleProviderFlags(cmd, config, "chat"); err != nil {
			return err
		}
		if err := internal.HandlePromptFlag(cmd, config); err != nil {
			return err
		}
		if err := internal.ValidateProviderRequirements(config); err != nil {
			return err
		}

		videoID, err := videoIDArg(args[0])
		if err != nil {
			return err
		}

		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		session := &chatSession{app: app, videoID: videoID}

		if question, _ := cmd.Flags().GetString("question"); question != "" {
			return session.ask(cmd, question)
		}

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Fprint(os.Stderr, "> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" || line == "exit" || line == "quit" {
				return nil
			}
			if err := session.ask(cmd, line); err != nil {
				if cmd.Context().Err() != nil {
					return nil
				}
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		}
	},
}

// chatSession keeps the conversation history between turns
type chatSession struct {
	app      *internal.App
	videoID  string
	messages []internal.ChatMessage
}

// ask sends one user message. On a terminal the reply is rendered as
// markdown once complete; otherwise text streams as it arrives.
func (s *chatSession) ask(cmd *cobra.Command, question string) error {
	render := internal.IsTerminal()

	var spinner internal.ProgressBar = internal.SilentProgressBar{}
	if render {
		spinner = s.app.UI().NewSpinner("Thinking...")
	}
	defer spinner.Finish()

	var reply strings.Builder
	var exchange []internal.ChatMessage
	emit := func(ev internal.ChatEvent) error {
		switch ev.Type {
		case internal.EventText:
			reply.WriteString(ev.Text)
			if !render {
				fmt.Print(ev.Text)
			}
		case internal.EventToolCall:
			spinner.Describe(fmt.Sprintf("Running %s...", ev.ToolCall.Name))
			s.app.UI().Verbose("tool call %s %s\n", ev.ToolCall.Name, ev.ToolCall.Arguments)
		case internal.EventToolResult:
			spinner.Describe("Thinking...")
		case internal.EventDone:
			exchange = ev.Messages
		}
		return nil
	}

	messages := append(s.messages, internal.ChatMessage{Role: internal.RoleUser, Content: question})
	if err := s.app.Chat().Stream(cmd.Context(), internal.ChatRequest{VideoID: s.videoID, Messages: messages}, emit); err != nil {
		return err
	}
	spinner.Finish()

	s.messages = append(messages, exchange...)

	if render {
		return internal.PrintMarkdown(reply.String())
	}
	fmt.Println()
	return nil
}

func init() {
	internal.AddProviderFlags(chatCmd)
	internal.AddPromptFlag(chatCmd)
	chatCmd.Flags().StringP("question", "q", "", "Ask a single question and exit")
	rootCmd.AddCommand(chatCmd)
}
