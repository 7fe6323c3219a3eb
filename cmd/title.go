package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtzll/tubeagent/internal"
)

// titleCmd generates title ideas for a video
var titleCmd = &cobra.Command{
	Use:   "title [YouTube URL or ID]",
	Short: "Generate title ideas for a video",
	Long: `Generate title ideas for a video. Without --summary the video's
transcript is used as the summary. Every title is saved to your history.`,
	Example: `  # One title based on the transcript
  tubeagent title tAP1eZYEuKA

  # Three titles from your own summary
  tubeagent title tAP1eZYEuKA -n 3 --summary "How channels work under the hood"

  # Steer the style
  tubeagent title tAP1eZYEuKA --considerations "no clickbait, under 60 characters"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.HandleProviderFlags(cmd, config, "title"); err != nil {
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

		summary, _ := cmd.Flags().GetString("summary")
		considerations, _ := cmd.Flags().GetString("considerations")
		n, _ := cmd.Flags().GetInt("count")

		titles, err := app.GenerateTitles(cmd.Context(), videoID, summary, considerations, n)
		for _, title := range titles {
			fmt.Println(title)
		}
		return err
	},
}

// titlesCmd lists previously generated titles
var titlesCmd = &cobra.Command{
	Use:   "titles [YouTube URL or ID]",
	Short: "List the titles generated for a video",
	Example: `  tubeagent titles tAP1eZYEuKA
  tubeagent titles tAP1eZYEuKA --json --pretty`,
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

		titles, err := app.Titles().List(cmd.Context(), videoID)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd, titles)
		}
		if len(titles) == 0 {
			fmt.Println("No titles generated yet")
			return nil
		}
		for _, t := range titles {
			fmt.Printf("%s  %s\n", t.CreatedAt.Local().Format("2006-01-02 15:04"), t.Title)
		}
		return nil
	},
}

func init() {
	internal.AddProviderFlags(titleCmd)
	titleCmd.Flags().String("summary", "", "Video summary to base the title on (default: transcript)")
	titleCmd.Flags().String("considerations", "", "Anything else the title should take into account")
	titleCmd.Flags().IntP("count", "n", 1, "Number of titles to generate")
	rootCmd.AddCommand(titleCmd)

	titlesCmd.Flags().Bool("json", false, "Print as JSON")
	titlesCmd.Flags().Bool("pretty", false, "Format JSON output")
	rootCmd.AddCommand(titlesCmd)
}
