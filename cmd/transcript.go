package cmd

import (
	"github.com/spf13/cobra"
)

// transcriptCmd represents the transcript command
var transcriptCmd = &cobra.Command{
	Use:     "transcript [YouTube URL or ID]",
	Aliases: []string{"transcribe"},
	Short:   "Get transcript from YouTube (cached or downloaded)",
	Example: `  # Get transcript from YouTube captions
  tubeagent transcript "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  tubeagent transcript tAP1eZYEuKA

  # Plain text without timestamps
  tubeagent transcript tAP1eZYEuKA --raw

  # Save transcript to file
  tubeagent transcript tAP1eZYEuKA -o transcript.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		transcript, err := fetchTranscript(cmd, app, args[0])
		if err != nil {
			return err
		}
		return writeOutput(cmd, transcript)
	},
}

func init() {
	transcriptCmd.Flags().Bool("raw", false, "Print text only, without timestamps")
	transcriptCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	rootCmd.AddCommand(transcriptCmd)
}
