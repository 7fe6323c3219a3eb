package cmd

import (
	"github.com/spf13/cobra"
)

// detailsCmd represents the details command
var detailsCmd = &cobra.Command{
	Use:     "details [YouTube URL or ID]",
	Aliases: []string{"metadata"},
	Short:   "Get details of a YouTube video",
	Long: `Get a video's title, thumbnail, channel and statistics. The YouTube Data
API is used when youtube_api_key is set, yt-dlp otherwise.`,
	Example: `  tubeagent details "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  tubeagent details tAP1eZYEuKA --pretty -o details.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		videoID, err := videoIDArg(args[0])
		if err != nil {
			return err
		}

		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		details, err := app.Details().VideoDetails(cmd.Context(), videoID)
		if err != nil {
			return err
		}
		return printJSON(cmd, details)
	},
}

func init() {
	detailsCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	detailsCmd.Flags().Bool("pretty", false, "Format output as pretty JSON")
	rootCmd.AddCommand(detailsCmd)
}
