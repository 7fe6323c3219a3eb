package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rtzll/tubeagent/internal"
)

// analyseCmd represents the analyse command
var analyseCmd = &cobra.Command{
	Use:     "analyse [YouTube URL or ID]",
	Aliases: []string{"analyze"},
	Short:   "Show a video's details and where its analysis page lives",
	Example: `  tubeagent analyse "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  tubeagent analyse https://youtu.be/tAP1eZYEuKA`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyse(cmd, args[0])
	},
}

func runAnalyse(cmd *cobra.Command, arg string) error {
	videoID, err := videoIDArg(arg)
	if err != nil {
		return err
	}

	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	spinner := app.UI().NewSpinner("Fetching video details...")
	details, err := app.Details().VideoDetails(cmd.Context(), videoID)
	spinner.Finish()
	if err != nil {
		app.Logger().Warn("video details unavailable", slog.String("video_id", videoID), slog.Any("error", err))
	}

	return internal.PrintMarkdown(analysisMarkdown(videoID, details, config.PublicBaseURL))
}

func analysisMarkdown(videoID string, details *internal.VideoDetails, baseURL string) string {
	var sb strings.Builder
	if details != nil && details.Title != "" {
		fmt.Fprintf(&sb, "# %s\n\n", details.Title)
		if details.Channel.Title != "" {
			fmt.Fprintf(&sb, "**%s**", details.Channel.Title)
			if details.Channel.Subscribers > 0 {
				fmt.Fprintf(&sb, " (%d subscribers)", details.Channel.Subscribers)
			}
			sb.WriteString("\n\n")
		}
		if details.PublishedAt != "" {
			fmt.Fprintf(&sb, "- Published: %s\n", details.PublishedAt)
		}
		fmt.Fprintf(&sb, "- Views: %d\n- Likes: %d\n- Comments: %d\n\n", details.Views, details.Likes, details.Comments)
	} else {
		fmt.Fprintf(&sb, "# %s\n\n", internal.DefaultChatTitle)
	}
	fmt.Fprintf(&sb, "Video: %s\n\n", internal.WatchURL(videoID))
	fmt.Fprintf(&sb, "Analysis: %s%s\n", strings.TrimRight(baseURL, "/"), internal.AnalysisPath(videoID))
	return sb.String()
}

func init() {
	rootCmd.AddCommand(analyseCmd)
}
