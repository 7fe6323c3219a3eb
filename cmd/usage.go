package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtzll/tubeagent/internal"
)

// usageCmd prints the usage ledger for the configured user
var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show how often you used each metered feature",
	Example: `  # Counts for the configured user_id
  tubeagent usage`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		for _, f := range []internal.Feature{internal.FeatureTranscription, internal.FeatureTitleGenerations, internal.FeatureImageGeneration} {
			n, err := app.UsageCount(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Printf("%-18s %d\n", f, n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usageCmd)
}
