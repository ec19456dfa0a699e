package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// StorageConfig holds the on-disk layout of the application's data.
// All relative paths are resolved against DataDir.
type StorageConfig struct {
	// DataDir is the root of all durable state.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	// SessionsDir holds one opaque session artifact per account.
	SessionsDir string `mapstructure:"sessions_dir" yaml:"sessions_dir"`

	// ImagesDir holds cached profile photos, one PNG per account.
	ImagesDir string `mapstructure:"images_dir" yaml:"images_dir"`

	// ExportsDir receives one document per exported dialog.
	ExportsDir string `mapstructure:"exports_dir" yaml:"exports_dir"`

	// MetaFile is the JSON metadata file mapping accounts to their API
	// credentials and display data.
	MetaFile string `mapstructure:"meta_file" yaml:"meta_file"`

	// HistoryDB is the SQLite database caching fetched dialogs and
	// messages.
	HistoryDB string `mapstructure:"history_db" yaml:"history_db"`
}

// ExportConfig holds history-export preferences.
type ExportConfig struct {
	// Format is "markdown" or "json".
	Format string `mapstructure:"format" yaml:"format"`

	// MessageLimit caps how many messages are fetched per dialog.
	// 0 means no limit.
	MessageLimit int `mapstructure:"message_limit" yaml:"message_limit"`

	// DownloadMedia controls whether message attachments are fetched
	// alongside the text.
	DownloadMedia bool `mapstructure:"download_media" yaml:"download_media"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Export  ExportConfig  `mapstructure:"export" yaml:"export"`

	// DialogLimit caps how many dialogs are listed after login.
	// 0 means no limit.
	DialogLimit int `mapstructure:"dialog_limit" yaml:"dialog_limit"`

	// UseKeyring enables the system-keyring backup copy of API
	// credentials.
	UseKeyring bool `mapstructure:"use_keyring" yaml:"use_keyring"`

	// LogFile receives structured logs. The terminal stays reserved for
	// the UI.
	LogFile string `mapstructure:"log_file" yaml:"log_file"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/telegrab/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "telegrab", "config.yaml")
}

func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Storage: StorageConfig{
			DataDir:     ".",
			SessionsDir: "sessions",
			ImagesDir:   filepath.Join("images", "profiles"),
			ExportsDir:  "exports",
			MetaFile:    filepath.Join("sessions", "meta.json"),
			HistoryDB:   "history.db",
		},
		Export: ExportConfig{
			Format:       "markdown",
			MessageLimit: 500,
		},
		DialogLimit: 50,
		UseKeyring:  true,
		LogFile:     "telegrab.log",
	}
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. If the file does not exist, it returns the default
// configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("storage.data_dir", ".")
	v.SetDefault("storage.sessions_dir", "sessions")
	v.SetDefault("storage.images_dir", filepath.Join("images", "profiles"))
	v.SetDefault("storage.exports_dir", "exports")
	v.SetDefault("storage.meta_file", filepath.Join("sessions", "meta.json"))
	v.SetDefault("storage.history_db", "history.db")
	v.SetDefault("export.format", "markdown")
	v.SetDefault("export.message_limit", 500)
	v.SetDefault("dialog_limit", 50)
	v.SetDefault("use_keyring", true)
	v.SetDefault("log_file", "telegrab.log")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
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
	v.Set("export", cfg.Export)
	v.Set("dialog_limit", cfg.DialogLimit)
	v.Set("use_keyring", cfg.UseKeyring)
	v.Set("log_file", cfg.LogFile)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// resolve joins p with the data dir unless p is already absolute.
func (c StorageConfig) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// SessionsPath returns the resolved sessions directory.
func (c StorageConfig) SessionsPath() string { return c.resolve(c.SessionsDir) }

// ImagesPath returns the resolved profile images directory.
func (c StorageConfig) ImagesPath() string { return c.resolve(c.ImagesDir) }

// ExportsPath returns the resolved exports directory.
func (c StorageConfig) ExportsPath() string { return c.resolve(c.ExportsDir) }

// MetaPath returns the resolved metadata file path.
func (c StorageConfig) MetaPath() string { return c.resolve(c.MetaFile) }

// HistoryDBPath returns the resolved history database path.
func (c StorageConfig) HistoryDBPath() string { return c.resolve(c.HistoryDB) }

// EnsureDirs creates the sessions, images, and exports directories.
func (c StorageConfig) EnsureDirs() error {
	for _, dir := range []string{c.SessionsPath(), c.ImagesPath(), c.ExportsPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}
