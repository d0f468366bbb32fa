package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	// ConfigDir is the directory name under ~/.config
	ConfigDir = "codeagent"
	// ConfigFile is the config file name
	ConfigFile = "config.json"
	// CheckpointFile is the default checkpoint database name
	CheckpointFile = "checkpoints.db"
)

// FileSystem abstracts file operations for testability
type FileSystem interface {
	UserHomeDir() (string, error)
	ReadFile(path string) ([]byte, error)
}

// ConfigFileReader implements FileSystem using the real OS for config loading
type ConfigFileReader struct{}

func (ConfigFileReader) UserHomeDir() (string, error) {
	return os.UserHomeDir()
}

func (ConfigFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Loader handles configuration loading with injected dependencies
type Loader struct {
	fs     FileSystem
	getenv func(string) string
	path   string
}

// NewLoader creates a production Loader using the real filesystem and environment.
// A .env file in the working directory is loaded into the environment first.
func NewLoader() *Loader {
	_ = godotenv.Load()
	return &Loader{fs: ConfigFileReader{}, getenv: os.Getenv}
}

// NewLoaderWithFS creates a Loader with a custom filesystem (for testing)
func NewLoaderWithFS(fs FileSystem, getenv func(string) string) *Loader {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	return &Loader{fs: fs, getenv: getenv}
}

// WithPath reads the config file from path instead of ~/.config/codeagent/config.json.
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// Load reads configuration from ~/.config/codeagent/config.json, merges it
// with defaults, applies environment overrides, then validates.
// Returns default config if dotfile doesn't exist.
// Returns error only for parse errors, permission issues, or validation failures.
//
// NOTE: This implementation unmarshals JSON keys directly over the default configuration.
// This allows explicit zero values (e.g., 0, false, "") in the config file to override defaults.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	homeDir, homeErr := l.fs.UserHomeDir()

	configPath := l.path
	if configPath == "" && homeErr == nil {
		configPath = filepath.Join(homeDir, ".config", ConfigDir, ConfigFile)
	}

	if configPath != "" {
		data, err := l.fs.ReadFile(configPath)
		switch {
		case err == nil:
			// Present keys overwrite defaults (even if zero),
			// missing keys leave the defaults untouched.
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		case os.IsNotExist(err) && l.path == "":
			// Use defaults if the default file doesn't exist
		default:
			return nil, err
		}
	}

	if cfg.Checkpoint.Path == "" && homeErr == nil {
		cfg.Checkpoint.Path = filepath.Join(homeDir, ".config", ConfigDir, CheckpointFile)
	}

	cfg.ApplyEnv(l.getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overrides secrets and deployment settings from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("GEMINI_API_KEY"); v != "" {
		c.Agent.APIKey = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.Store.Driver = "postgres"
		c.Store.DSN = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		c.Queue.RedisURL = v
	}
	if v := getenv("CODEAGENT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("DOCKER_HOST"); v != "" {
		c.Sandbox.DockerHost = v
	}
}

// Load is a convenience function using the default loader
func Load() (*Config, error) {
	return NewLoader().Load()
}
