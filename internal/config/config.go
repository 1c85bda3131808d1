package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// UIConfig holds tuning for the rendered picker
type UIConfig struct {
	Prompt     string `json:"prompt"`      // text in front of the input field
	MaxVisible int    `json:"max_visible"` // choices rendered at once
}

// SandboxConfig controls the Landlock self-restriction
type SandboxConfig struct {
	Disable    bool `json:"disable,omitempty"`
	BestEffort bool `json:"best_effort"`
}

// Config represents application configuration
type Config struct {
	Listen              string        `json:"listen"`                       // TCP host:port or unix socket path
	MaxConnections      int           `json:"max_connections"`              // 0 = unlimited
	RegistrationTimeout int           `json:"registration_timeout_seconds"` // 0 = wait forever for the first line
	LogLevel            string        `json:"log_level"`                    // debug, info, warn, error, none
	LogPath             string        `json:"log_path,omitempty"`
	UI                  UIConfig      `json:"ui"`
	Sandbox             SandboxConfig `json:"sandbox"`
}

// DefaultListen matches the address picker clients assume when they are not
// told otherwise.
const DefaultListen = "127.0.0.1:5555"

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "linux":
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "auswahl")
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, "auswahl")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", "auswahl")
	default:
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "auswahl")
	}
}

func defaultStateDir() string {
	switch runtime.GOOS {
	case "linux":
		if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
			return filepath.Join(stateHome, "auswahl")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "state", "auswahl")
	case "windows":
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, "auswahl")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Local", "auswahl")
	default:
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "auswahl")
	}
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Listen:              DefaultListen,
		MaxConnections:      0,
		RegistrationTimeout: 0,
		LogLevel:            "info",
		LogPath:             filepath.Join(defaultStateDir(), "auswahl.log"),
		UI: UIConfig{
			Prompt:     "> ",
			MaxVisible: 10,
		},
		Sandbox: SandboxConfig{
			Disable:    false,
			BestEffort: true,
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return default config if file doesn't exist
			return config, nil
		}
		return nil, err
	}

	// Unmarshal into default config (overrides only provided fields)
	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	// Ensure critical fields have defaults if still empty
	if config.Listen == "" {
		config.Listen = DefaultListen
	}
	if config.MaxConnections < 0 {
		config.MaxConnections = 0
	}
	if config.RegistrationTimeout < 0 {
		config.RegistrationTimeout = 0
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogPath == "" {
		config.LogPath = filepath.Join(defaultStateDir(), "auswahl.log")
	}
	if config.UI.Prompt == "" {
		config.UI.Prompt = "> "
	}
	if config.UI.MaxVisible <= 0 {
		config.UI.MaxVisible = 10
	}

	return config, nil
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetConfigPath returns the default config path
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}

// ConfigDir returns the directory holding config.json
func ConfigDir() string {
	return defaultConfigDir()
}

// StateDir returns the directory for runtime state (lockfile, log, sockets)
func StateDir() string {
	return defaultStateDir()
}
