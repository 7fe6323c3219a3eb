package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AddProviderFlags adds flags that select the model provider and models
func AddProviderFlags(cmd *cobra.Command) {
	cmd.Flags().String("provider", "", "Model provider (openai or vertex)")
	cmd.Flags().StringP("model", "m", "", "Model to use for this command")
}

// AddPromptFlag adds the chat system prompt override
func AddPromptFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("prompt", "p", "", "Custom chat system prompt (string or file path)")
}

// HandlePromptFlag processes the --prompt flag to set custom prompt
func HandlePromptFlag(cmd *cobra.Command, config *Config) error {
	promptFlag := cmd.Flags().Lookup("prompt")
	if promptFlag == nil || !promptFlag.Changed {
		return nil
	}

	prompt, err := cmd.Flags().GetString("prompt")
	if err != nil {
		return fmt.Errorf("failed to get prompt flag: %w", err)
	}
	if prompt == "" {
		return nil
	}

	config.Prompt = prompt
	return nil
}

// HandleVerboseFlag processes the --verbose flag to update config
func HandleVerboseFlag(cmd *cobra.Command, config *Config) error {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}
	config.Verbose = config.Verbose || verbose
	return nil
}

// HandleProviderFlags applies --provider and --model. The model flag sets
// the model for the capability the command uses.
func HandleProviderFlags(cmd *cobra.Command, config *Config, capability string) error {
	if provider, _ := cmd.Flags().GetString("provider"); provider != "" && provider != config.Provider {
		config.Provider = provider
		config.ChatModel, config.TitleModel, config.ImageModel = "", "", ""
		if err := config.applyModelDefaults(); err != nil {
			return err
		}
	}

	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		return nil
	}
	switch capability {
	case "chat":
		config.ChatModel = model
	case "title":
		config.TitleModel = model
	case "image":
		config.ImageModel = model
	default:
		return fmt.Errorf("unknown model capability: %s", capability)
	}
	return nil
}

// ValidateProviderRequirements checks the provider's credentials are configured
func ValidateProviderRequirements(config *Config) error {
	switch config.Provider {
	case ProviderOpenAI:
		return ValidateOpenAIAPIKey(config.OpenAIAPIKey)
	case ProviderVertex:
		if config.VertexProject == "" && config.GeminiAPIKey == "" {
			return fmt.Errorf("vertex provider requires GOOGLE_CLOUD_PROJECT or GEMINI_API_KEY")
		}
		return nil
	default:
		_, err := DefaultModels(config.Provider)
		return err
	}
}
