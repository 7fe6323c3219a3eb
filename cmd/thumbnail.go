package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtzll/tubeagent/internal"
)

// thumbnailCmd generates a thumbnail image for a video
var thumbnailCmd = &cobra.Command{
	Use:   "thumbnail [YouTube URL or ID]",
	Short: "Generate a thumbnail image for a video",
	Example: `  # Generate a thumbnail
  tubeagent thumbnail tAP1eZYEuKA --prompt "a gopher juggling channels, bold colors"

  # Show the latest thumbnail
  tubeagent thumbnail tAP1eZYEuKA --latest`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		videoID, err := videoIDArg(args[0])
		if err != nil {
			return err
		}

		if latest, _ := cmd.Flags().GetBool("latest"); latest {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			u, ok, err := app.Images().ImageURL(cmd.Context(), videoID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no thumbnail generated for %s yet", videoID)
			}
			fmt.Println(u)
			return nil
		}

		prompt, _ := cmd.Flags().GetString("prompt")
		if prompt == "" {
			return fmt.Errorf("--prompt is required")
		}
		if err := internal.HandleProviderFlags(cmd, config, "image"); err != nil {
			return err
		}
		if err := internal.ValidateProviderRequirements(config); err != nil {
			return err
		}

		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		img, err := app.GenerateThumbnail(cmd.Context(), videoID, prompt)
		if err != nil {
			return err
		}
		fmt.Println(img.ImageURL)
		return nil
	},
}

func init() {
	internal.AddProviderFlags(thumbnailCmd)
	thumbnailCmd.Flags().String("prompt", "", "Description of the thumbnail to generate")
	thumbnailCmd.Flags().Bool("latest", false, "Print the most recent thumbnail instead of generating one")
	rootCmd.AddCommand(thumbnailCmd)
}
