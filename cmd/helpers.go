package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rtzll/tubeagent/internal"
)

// newApp builds the application for a CLI command acting as the configured user
func newApp(cmd *cobra.Command, opts ...internal.AppOption) (*internal.App, error) {
	return internal.NewApp(cmd.Context(), config, opts...)
}

// videoIDArg resolves a URL or bare video ID argument
func videoIDArg(arg string) (string, error) {
	_, id, err := internal.ParseArg(arg)
	return id, err
}

// formatTranscript renders entries one per line as "[m:ss] text", or as
// plain text when raw is set
func formatTranscript(entries []internal.TranscriptEntry, raw bool) string {
	var sb strings.Builder
	for _, e := range entries {
		if raw {
			sb.WriteString(e.Text)
		} else {
			fmt.Fprintf(&sb, "[%s] %s", e.Timestamp, e.Text)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// fetchTranscript returns the formatted transcript for the given argument
func fetchTranscript(cmd *cobra.Command, app *internal.App, arg string) (string, error) {
	videoID, err := videoIDArg(arg)
	if err != nil {
		return "", err
	}

	res, err := app.TranscriptWithStatus(cmd.Context(), videoID, !config.Quiet)
	if err != nil {
		return "", err
	}
	if len(res.Transcript) == 0 {
		return "", fmt.Errorf("no captions available for %s", videoID)
	}

	raw, _ := cmd.Flags().GetBool("raw")
	return formatTranscript(res.Transcript, raw), nil
}

// writeOutput writes data to the --output file when set, otherwise to stdout
func writeOutput(cmd *cobra.Command, data string) error {
	outputFile, _ := cmd.Flags().GetString("output")
	if outputFile != "" {
		return os.WriteFile(outputFile, []byte(data), 0644)
	}
	fmt.Print(data)
	return nil
}

// printJSON prints v as JSON, indented when --pretty is set
func printJSON(cmd *cobra.Command, v any) error {
	var (
		data []byte
		err  error
	)
	if pretty, _ := cmd.Flags().GetBool("pretty"); pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return writeOutput(cmd, string(data)+"\n")
}
