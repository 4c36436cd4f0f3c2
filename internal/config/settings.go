package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// Transport constants
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// AuthSettings configuration for authentication
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// DriveSettings configuration for the remote drive client
type DriveSettings struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	RootFolder      string `mapstructure:"root_folder"`
	PageSize        int64  `mapstructure:"page_size"`
}

// IndexSettings configuration for snapshot and semantic indexing
type IndexSettings struct {
	BaseDir         string `mapstructure:"base_dir"`
	ChunkBudget     int    `mapstructure:"chunk_budget"`
	CheckpointEvery int    `mapstructure:"checkpoint_every"`
	PayloadLimit    int    `mapstructure:"payload_limit"`
}

// EmbedderSettings configuration for the embedding backend
type EmbedderSettings struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// SearchSettings configuration for query-time behavior
type SearchSettings struct {
	DefaultTopK     int    `mapstructure:"default_top_k"`
	PrimaryLanguage string `mapstructure:"primary_language"`
	MaxResults      int    `mapstructure:"max_results"`
}

// Settings application settings
type Settings struct {
	Transport string           `mapstructure:"transport"`
	Host      string           `mapstructure:"host"`
	Port      int              `mapstructure:"port"`
	Auth      AuthSettings     `mapstructure:"auth"`
	Drive     DriveSettings    `mapstructure:"drive"`
	Index     IndexSettings    `mapstructure:"index"`
	Embedder  EmbedderSettings `mapstructure:"embedder"`
	Search    SearchSettings   `mapstructure:"search"`
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("transport", TransportHTTP)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("auth.type", AuthTypeNone)

	// Drive defaults
	v.SetDefault("drive.credentials_file", "token.json")
	v.SetDefault("drive.root_folder", "root")
	v.SetDefault("drive.page_size", int64(100))

	// Index defaults
	v.SetDefault("index.base_dir", defaultBaseDir())
	v.SetDefault("index.chunk_budget", 5000)
	v.SetDefault("index.checkpoint_every", 500)
	v.SetDefault("index.payload_limit", 100_000)

	// Embedder defaults
	v.SetDefault("embedder.url", "http://localhost:11434")
	v.SetDefault("embedder.model", "nomic-embed-text")

	// Search defaults
	v.SetDefault("search.default_top_k", 5)
	v.SetDefault("search.primary_language", "pt")
	v.SetDefault("search.max_results", 20)

	// Environment variables
	v.SetEnvPrefix("DRIVE_CONNECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific env vars for nested config
	_ = v.BindEnv("auth.type", "DRIVE_CONNECTOR_AUTH_TYPE")
	_ = v.BindEnv("auth.basic.username", "DRIVE_CONNECTOR_AUTH_BASIC_USERNAME")
	_ = v.BindEnv("auth.basic.password", "DRIVE_CONNECTOR_AUTH_BASIC_PASSWORD")
	_ = v.BindEnv("auth.api_keys", "DRIVE_CONNECTOR_AUTH_API_KEYS")

	_ = v.BindEnv("drive.credentials_file", "DRIVE_CONNECTOR_DRIVE_CREDENTIALS_FILE")
	_ = v.BindEnv("drive.root_folder", "DRIVE_CONNECTOR_DRIVE_ROOT_FOLDER")
	_ = v.BindEnv("drive.page_size", "DRIVE_CONNECTOR_DRIVE_PAGE_SIZE")

	_ = v.BindEnv("index.base_dir", "DRIVE_CONNECTOR_INDEX_BASE_DIR")
	_ = v.BindEnv("index.chunk_budget", "DRIVE_CONNECTOR_INDEX_CHUNK_BUDGET")
	_ = v.BindEnv("index.checkpoint_every", "DRIVE_CONNECTOR_INDEX_CHECKPOINT_EVERY")
	_ = v.BindEnv("index.payload_limit", "DRIVE_CONNECTOR_INDEX_PAYLOAD_LIMIT")

	_ = v.BindEnv("embedder.url", "DRIVE_CONNECTOR_EMBEDDER_URL")
	_ = v.BindEnv("embedder.model", "DRIVE_CONNECTOR_EMBEDDER_MODEL")

	_ = v.BindEnv("search.default_top_k", "DRIVE_CONNECTOR_SEARCH_DEFAULT_TOP_K")
	_ = v.BindEnv("search.primary_language", "DRIVE_CONNECTOR_SEARCH_PRIMARY_LANGUAGE")
	_ = v.BindEnv("search.max_results", "DRIVE_CONNECTOR_SEARCH_MAX_RESULTS")

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		_ = v.BindPFlag("transport", flags.Lookup("transport"))
		_ = v.BindPFlag("host", flags.Lookup("host"))
		_ = v.BindPFlag("port", flags.Lookup("port"))
		_ = v.BindPFlag("auth.type", flags.Lookup("auth-type"))
		_ = v.BindPFlag("auth.basic.username", flags.Lookup("auth-basic-username"))
		_ = v.BindPFlag("auth.basic.password", flags.Lookup("auth-basic-password"))
		_ = v.BindPFlag("auth.api_keys", flags.Lookup("auth-api-keys"))

		_ = v.BindPFlag("drive.credentials_file", flags.Lookup("drive-credentials-file"))
		_ = v.BindPFlag("drive.root_folder", flags.Lookup("drive-root-folder"))
		_ = v.BindPFlag("drive.page_size", flags.Lookup("drive-page-size"))

		_ = v.BindPFlag("index.base_dir", flags.Lookup("index-base-dir"))
		_ = v.BindPFlag("index.chunk_budget", flags.Lookup("index-chunk-budget"))
		_ = v.BindPFlag("index.checkpoint_every", flags.Lookup("index-checkpoint-every"))
		_ = v.BindPFlag("index.payload_limit", flags.Lookup("index-payload-limit"))

		_ = v.BindPFlag("embedder.url", flags.Lookup("embedder-url"))
		_ = v.BindPFlag("embedder.model", flags.Lookup("embedder-model"))

		_ = v.BindPFlag("search.default_top_k", flags.Lookup("search-default-top-k"))
		_ = v.BindPFlag("search.primary_language", flags.Lookup("search-primary-language"))
		_ = v.BindPFlag("search.max_results", flags.Lookup("search-max-results"))
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Handle explicit parsing of API keys if provided via env var as comma-separated string
	apiKeysEnv := os.Getenv("DRIVE_CONNECTOR_AUTH_API_KEYS")
	if apiKeysEnv != "" {
		if len(settings.Auth.APIKeys) == 0 || (len(settings.Auth.APIKeys) == 1 && strings.Contains(settings.Auth.APIKeys[0], ",")) {
			settings.Auth.APIKeys = strings.Split(apiKeysEnv, ",")
		}
	}

	// Trim spaces from API keys
	for i := range settings.Auth.APIKeys {
		settings.Auth.APIKeys[i] = strings.TrimSpace(settings.Auth.APIKeys[i])
	}

	// Expand home directory in path settings
	settings.Index.BaseDir = expandHomeDir(settings.Index.BaseDir)
	settings.Drive.CredentialsFile = expandHomeDir(settings.Drive.CredentialsFile)

	return &settings, nil
}

// defaultBaseDir returns the default base directory for persisted state
func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".drive-connector"
	}
	return filepath.Join(home, ".drive-connector")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// ValidateSettings checks for conflicting configurations.
// Returns an error if the settings contain mutually exclusive or incomplete config.
func ValidateSettings(s *Settings) error {
	// Validate transport type
	switch s.Transport {
	case TransportHTTP, TransportStdio:
		// valid
	default:
		return errors.New("transport must be 'http' or 'stdio', got: " + s.Transport)
	}

	hasBasicCreds := s.Auth.Basic.Username != "" || s.Auth.Basic.Password != ""
	hasAPIKeys := len(s.Auth.APIKeys) > 0

	switch s.Auth.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return errors.New("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if s.Auth.Basic.Username == "" || s.Auth.Basic.Password == "" {
			return errors.New("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return errors.New("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + s.Auth.Type)
	}

	if err := validateDriveSettings(&s.Drive); err != nil {
		return err
	}
	if err := validateIndexSettings(&s.Index); err != nil {
		return err
	}
	if err := validateSearchSettings(&s.Search); err != nil {
		return err
	}

	if s.Embedder.URL == "" {
		return errors.New("embedder-url cannot be empty")
	}
	if s.Embedder.Model == "" {
		return errors.New("embedder-model cannot be empty")
	}

	return nil
}

// validateDriveSettings validates the remote drive configuration
func validateDriveSettings(d *DriveSettings) error {
	if d.CredentialsFile == "" {
		return errors.New("drive-credentials-file cannot be empty")
	}
	if d.RootFolder == "" {
		return errors.New("drive-root-folder cannot be empty")
	}
	if d.PageSize <= 0 || d.PageSize > 1000 {
		return errors.New("drive-page-size must be between 1 and 1000")
	}
	return nil
}

// validateIndexSettings validates the indexing configuration
func validateIndexSettings(i *IndexSettings) error {
	if i.BaseDir == "" {
		return errors.New("index-base-dir cannot be empty")
	}
	if i.ChunkBudget <= 0 {
		return errors.New("index-chunk-budget must be positive")
	}
	if i.CheckpointEvery <= 0 {
		return errors.New("index-checkpoint-every must be positive")
	}
	if i.PayloadLimit <= 0 {
		return errors.New("index-payload-limit must be positive")
	}
	return nil
}

// validateSearchSettings validates the query-time configuration
func validateSearchSettings(s *SearchSettings) error {
	if s.DefaultTopK <= 0 {
		return errors.New("search-default-top-k must be positive")
	}
	if s.MaxResults <= 0 {
		return errors.New("search-max-results must be positive")
	}
	switch s.PrimaryLanguage {
	case "pt", "en":
		return nil
	default:
		return errors.New("search-primary-language must be 'pt' or 'en', got: " + s.PrimaryLanguage)
	}
}
