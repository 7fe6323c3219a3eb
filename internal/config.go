package internal

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppName names the XDG directories, the env prefix and the binary
const AppName = "tubeagent"

// Storage backends for generated images
const (
	StorageFS = "fs"
	StorageS3 = "s3"
)

// Config holds application settings
type Config struct {
	// Models
	Provider     string
	ChatModel    string
	TitleModel   string
	ImageModel   string
	ChatMaxSteps int
	AITimeout    time.Duration
	Prompt       string

	// Credentials
	OpenAIAPIKey   string
	GeminiAPIKey   string
	VertexProject  string
	VertexLocation string
	YouTubeAPIKey  string

	// Persistence
	DatabaseDriver string
	DatabaseURL    string
	Storage        string
	S3Bucket       string
	S3Prefix       string
	S3URLTTL       time.Duration
	ImagesDir      string
	PublicBaseURL  string

	// Usage metering
	UsageEndpoint string
	UsageAPIKey   string

	// Server and identity
	HTTPAddr    string
	APIKey      string
	UserInfoURL string
	UserID      string

	// Output
	LogLevel      string
	LogFormat     string
	Verbose       bool
	Quiet         bool
	MCPLogEnabled bool

	// Fixed XDG paths (not configurable)
	ConfigDir string
	DataDir   string
	CacheDir  string
}

//go:embed config.toml prompt.txt
var defaultFS embed.FS

// ensureDefaultFile checks if a file exists in the specified directory
// and creates it from the embedded default if it doesn't exist
func ensureDefaultFile(configDir, embedFilename, description string) error {
	filePath := filepath.Join(configDir, embedFilename)

	if FileExists(filePath) {
		return nil
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaultContent, err := defaultFS.ReadFile(embedFilename)
	if err != nil {
		return fmt.Errorf("reading embedded default %s: %w", description, err)
	}

	if err := os.WriteFile(filePath, defaultContent, 0644); err != nil {
		return fmt.Errorf("writing default %s: %w", description, err)
	}

	// stdout belongs to the MCP transport in stdio mode
	fmt.Fprintf(os.Stderr, "Created default %s at %s\n", description, filePath)
	return nil
}

// EnsureDefaultConfig creates config.toml in the config directory if missing
func EnsureDefaultConfig(configDir string) error {
	return ensureDefaultFile(configDir, "config.toml", "configuration")
}

// EnsureDefaultPrompt creates prompt.txt in the config directory if missing
func EnsureDefaultPrompt(configDir string) error {
	return ensureDefaultFile(configDir, "prompt.txt", "prompt template")
}

// InitConfig loads configuration from the XDG config directory, .env files
// and the environment.
func InitConfig() (*Config, error) {
	return LoadConfig(
		filepath.Join(xdg.ConfigHome, AppName),
		filepath.Join(xdg.DataHome, AppName),
		filepath.Join(xdg.CacheHome, AppName),
	)
}

// LoadConfig loads configuration rooted at the given directories
func LoadConfig(configDir, dataDir, cacheDir string) (*Config, error) {
	// .env in the working directory wins over the one next to config.toml;
	// neither overrides variables that are already set
	for _, path := range []string{".env", filepath.Join(configDir, ".env")} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	v := viper.New()

	v.SetDefault("provider", ProviderOpenAI)
	v.SetDefault("chat_model", "")
	v.SetDefault("title_model", "")
	v.SetDefault("image_model", "")
	v.SetDefault("chat_max_steps", DefaultChatMaxSteps)
	v.SetDefault("ai_timeout", 2*time.Minute)
	v.SetDefault("prompt", "") // if empty will use default prompt template
	v.SetDefault("vertex_location", "us-central1")
	v.SetDefault("database_driver", DriverSQLite)
	v.SetDefault("database_url", filepath.Join(dataDir, AppName+".db"))
	v.SetDefault("storage", StorageFS)
	v.SetDefault("s3_prefix", "")
	v.SetDefault("s3_url_ttl", time.Hour)
	v.SetDefault("images_dir", filepath.Join(dataDir, "images"))
	v.SetDefault("public_base_url", "http://localhost:8080")
	v.SetDefault("usage_endpoint", "")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("user_info_url", GoogleUserInfoURL)
	v.SetDefault("user_id", "local")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)
	v.SetDefault("mcp_log_enabled", false)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// Well known variables, prefixed name first
	bindings := map[string]string{
		"openai_api_key":  "OPENAI_API_KEY",
		"gemini_api_key":  "GEMINI_API_KEY",
		"vertex_project":  "GOOGLE_CLOUD_PROJECT",
		"vertex_location": "GOOGLE_CLOUD_LOCATION",
		"youtube_api_key": "YOUTUBE_API_KEY",
		"database_url":    "DATABASE_URL",
		"usage_api_key":   "SCHEMATIC_API_KEY",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, strings.ToUpper(AppName+"_"+key), env)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	config := &Config{
		Provider:     strings.ToLower(v.GetString("provider")),
		ChatModel:    v.GetString("chat_model"),
		TitleModel:   v.GetString("title_model"),
		ImageModel:   v.GetString("image_model"),
		ChatMaxSteps: v.GetInt("chat_max_steps"),
		AITimeout:    v.GetDuration("ai_timeout"),
		Prompt:       v.GetString("prompt"),

		OpenAIAPIKey:   v.GetString("openai_api_key"),
		GeminiAPIKey:   v.GetString("gemini_api_key"),
		VertexProject:  v.GetString("vertex_project"),
		VertexLocation: v.GetString("vertex_location"),
		YouTubeAPIKey:  v.GetString("youtube_api_key"),

		DatabaseDriver: strings.ToLower(v.GetString("database_driver")),
		DatabaseURL:    v.GetString("database_url"),
		Storage:        strings.ToLower(v.GetString("storage")),
		S3Bucket:       v.GetString("s3_bucket"),
		S3Prefix:       v.GetString("s3_prefix"),
		S3URLTTL:       v.GetDuration("s3_url_ttl"),
		ImagesDir:      v.GetString("images_dir"),
		PublicBaseURL:  strings.TrimRight(v.GetString("public_base_url"), "/"),

		UsageEndpoint: v.GetString("usage_endpoint"),
		UsageAPIKey:   v.GetString("usage_api_key"),

		HTTPAddr:    v.GetString("http_addr"),
		APIKey:      v.GetString("api_key"),
		UserInfoURL: v.GetString("user_info_url"),
		UserID:      v.GetString("user_id"),

		LogLevel:      v.GetString("log_level"),
		LogFormat:     v.GetString("log_format"),
		Verbose:       v.GetBool("verbose"),
		Quiet:         v.GetBool("quiet"),
		MCPLogEnabled: v.GetBool("mcp_log_enabled"),

		ConfigDir: configDir,
		DataDir:   dataDir,
		CacheDir:  cacheDir,
	}

	if config.UsageAPIKey != "" && config.UsageEndpoint == "" {
		config.UsageEndpoint = DefaultUsageEndpoint
	}

	if err := config.applyModelDefaults(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyModelDefaults fills unset models from the provider's defaults
func (c *Config) applyModelDefaults() error {
	defaults, err := DefaultModels(c.Provider)
	if err != nil {
		return err
	}
	if c.ChatModel == "" {
		c.ChatModel = defaults.Chat
	}
	if c.TitleModel == "" {
		c.TitleModel = defaults.Title
	}
	if c.ImageModel == "" {
		c.ImageModel = defaults.Image
	}
	return nil
}

// Models returns the configured model names
func (c *Config) Models() ModelSet {
	return ModelSet{Chat: c.ChatModel, Title: c.TitleModel, Image: c.ImageModel}
}

// Validate checks settings that would otherwise fail late
func (c *Config) Validate() error {
	var errs []error
	if _, err := DefaultModels(c.Provider); err != nil {
		errs = append(errs, err)
	}
	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver: %s (supported: %s, %s)", c.DatabaseDriver, DriverSQLite, DriverPostgres))
	}
	switch c.Storage {
	case StorageFS:
	case StorageS3:
		if c.S3Bucket == "" {
			errs = append(errs, fmt.Errorf("s3_bucket is required when storage is %s", StorageS3))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage: %s (supported: %s, %s)", c.Storage, StorageFS, StorageS3))
	}
	if c.ChatMaxSteps < 1 {
		errs = append(errs, fmt.Errorf("chat_max_steps must be at least 1"))
	}
	return errors.Join(errs...)
}

// Identity is the user the CLI and MCP server act as
func (c *Config) Identity() Identity {
	return Identity{UserID: c.UserID}
}
