package internal

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// DefaultChatTitle is used when a video's title is unknown
const DefaultChatTitle = "Selected Video"

// PromptData for template injection
type PromptData struct {
	VideoID string
	Title   string
	Channel string
}

// PromptManager handles loading and processing the chat system prompt
type PromptManager struct {
	promptFile   string
	promptString string
	configDir    string
}

// NewPromptManager creates a new prompt manager
func NewPromptManager(configDir, promptSetting string) *PromptManager {
	pm := &PromptManager{
		configDir: configDir,
	}

	if promptSetting != "" {
		if IsLikelyFilePath(promptSetting) && FileExists(promptSetting) {
			pm.promptFile = promptSetting
		} else {
			pm.promptString = promptSetting
		}
	}

	return pm
}

// SystemInstruction renders the chat system prompt for one video. A missing
// or empty title falls back to DefaultChatTitle.
func (pm *PromptManager) SystemInstruction(videoID string, details *VideoDetails) (string, error) {
	tmplContent, err := pm.template()
	if err != nil {
		return "", err
	}

	data := PromptData{VideoID: videoID, Title: DefaultChatTitle}
	if details != nil {
		if strings.TrimSpace(details.Title) != "" {
			data.Title = details.Title
		}
		data.Channel = details.Channel.Title
	}

	return buildPromptFromTemplate(tmplContent, data)
}

func (pm *PromptManager) template() (string, error) {
	if pm.promptString != "" {
		return pm.promptString, nil
	}

	promptFile := pm.promptFile
	if promptFile == "" && pm.configDir != "" {
		promptFile = filepath.Join(pm.configDir, "prompt.txt")
		if !FileExists(promptFile) {
			promptFile = ""
		}
	}
	if promptFile == "" {
		content, err := defaultFS.ReadFile("prompt.txt")
		if err != nil {
			return "", fmt.Errorf("reading default prompt template: %w", err)
		}
		return string(content), nil
	}

	content, err := os.ReadFile(promptFile)
	if err != nil {
		return "", fmt.Errorf("reading prompt template: %w", err)
	}
	return string(content), nil
}

func buildPromptFromTemplate(templateContent string, data PromptData) (string, error) {
	tmpl, err := template.New("prompt").Parse(templateContent)
	if err != nil {
		return "", fmt.Errorf("parsing prompt template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing prompt template: %w", err)
	}

	return strings.TrimSpace(buf.String()), nil
}

// IsLikelyFilePath uses heuristics to determine if a string is likely a file path
func IsLikelyFilePath(s string) bool {
	if strings.Contains(s, "/") || strings.Contains(s, "\\") {
		return true
	}

	if strings.Contains(s, ".txt") || strings.Contains(s, ".md") ||
		strings.Contains(s, ".template") || strings.Contains(s, ".tmpl") {
		return true
	}

	// long settings are prompts
	if len(s) > 200 {
		return false
	}

	return !strings.Contains(s, " ") && !strings.Contains(s, "\n")
}
