package model

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Storage backend names.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Password hasher names.
const (
	HasherSHA256 = "sha256"
	HasherBcrypt = "bcrypt"
)

// StorageConfig selects and locates the persistence backend.
type StorageConfig struct {
	// Backend is one of "json", "sqlite" or "memory".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// DataDir holds the backing files. A leading "~" expands to $HOME.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	TodosFile  string `mapstructure:"todos_file" yaml:"todos_file"`
	UsersFile  string `mapstructure:"users_file" yaml:"users_file"`
	SQLiteFile string `mapstructure:"sqlite_file" yaml:"sqlite_file"`
}

// AuthConfig controls password hashing and the registration policy.
type AuthConfig struct {
	Hasher     string `mapstructure:"hasher" yaml:"hasher"`
	BcryptCost int    `mapstructure:"bcrypt_cost" yaml:"bcrypt_cost"`

	// Minimum lengths; zero disables the check.
	MinUsernameLen int `mapstructure:"min_username_len" yaml:"min_username_len"`
	MinPasswordLen int `mapstructure:"min_password_len" yaml:"min_password_len"`

	// RememberSession keeps the logged-in username in the system keyring
	// so later commands run as that user.
	RememberSession bool `mapstructure:"remember_session" yaml:"remember_session"`
}

// LogConfig holds diagnostic logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Auth    AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/todolist/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "todolist", "config.yaml")
}

// DefaultDataDir returns ~/.local/share/todolist, or ./data when the home
// directory cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "data")
	}
	return filepath.Join(home, ".local", "share", "todolist")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Storage: StorageConfig{
			Backend:    BackendJSON,
			DataDir:    DefaultDataDir(),
			TodosFile:  "todos.json",
			UsersFile:  "users.json",
			SQLiteFile: "todolist.db",
		},
		Auth: AuthConfig{
			Hasher:          HasherSHA256,
			BcryptCost:      10,
			RememberSession: true,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

func setDefaults(v *viper.Viper, cfg *AppConfig) {
	v.SetDefault("storage.backend", cfg.Storage.Backend)
	v.SetDefault("storage.data_dir", cfg.Storage.DataDir)
	v.SetDefault("storage.todos_file", cfg.Storage.TodosFile)
	v.SetDefault("storage.users_file", cfg.Storage.UsersFile)
	v.SetDefault("storage.sqlite_file", cfg.Storage.SQLiteFile)
	v.SetDefault("auth.hasher", cfg.Auth.Hasher)
	v.SetDefault("auth.bcrypt_cost", cfg.Auth.BcryptCost)
	v.SetDefault("auth.min_username_len", cfg.Auth.MinUsernameLen)
	v.SetDefault("auth.min_password_len", cfg.Auth.MinPasswordLen)
	v.SetDefault("auth.remember_session", cfg.Auth.RememberSession)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("display.theme", cfg.Display.Theme)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with TODOLIST_ override file values
// (storage.backend -> TODOLIST_STORAGE_BACKEND). If the file does not exist,
// defaults plus environment overrides are returned.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("todolist")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	setDefaults(v, DefaultAppConfig())

	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Storage.DataDir = ExpandHome(cfg.Storage.DataDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("storage", cfg.Storage)
	v.Set("auth", cfg.Auth)
	v.Set("log", cfg.Log)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// Validate rejects unknown enumerated settings and negative lengths.
func (c *AppConfig) Validate() error {
	switch c.Storage.Backend {
	case BackendJSON, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("storage.backend %q: must be one of json, sqlite, memory", c.Storage.Backend)
	}
	switch c.Auth.Hasher {
	case HasherSHA256, HasherBcrypt:
	default:
		return fmt.Errorf("auth.hasher %q: must be sha256 or bcrypt", c.Auth.Hasher)
	}
	if c.Auth.MinUsernameLen < 0 || c.Auth.MinPasswordLen < 0 {
		return fmt.Errorf("auth minimum lengths must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q: must be one of debug, info, warn, error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("log.format %q: must be one of text, json, logfmt", c.Log.Format)
	}
	return nil
}

// TodosPath is the JSON todo file inside the data directory.
func (c *AppConfig) TodosPath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.TodosFile)
}

// UsersPath is the JSON credential file inside the data directory.
func (c *AppConfig) UsersPath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.UsersFile)
}

// SQLitePath is the database file used by the sqlite backend.
func (c *AppConfig) SQLitePath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.SQLiteFile)
}

// ExpandHome replaces a leading "~" in p with the home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
