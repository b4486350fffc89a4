// Package config loads the primary JSON configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the primary configuration: where to find scans, which
// category subfolders to process, and where renamed copies go.
type Config struct {
	ScanFolder   string   `json:"scan_folder" mapstructure:"scan_folder"`
	SubFolders   []string `json:"sub_folders" mapstructure:"sub_folders"`
	OutputFolder string   `json:"output_folder" mapstructure:"output_folder"`

	// FileExtensions are matched case-insensitively during discovery.
	FileExtensions []string `json:"file_extensions" mapstructure:"file_extensions"`

	// Workers is the batch worker pool size. Zero means runtime.NumCPU().
	Workers int `json:"workers" mapstructure:"workers"`
}

// Manager handles loading and hot-reloading the primary configuration.
type Manager struct {
	mu        sync.RWMutex
	v         *viper.Viper
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a config manager and loads the config file at path.
// A missing file is repaired by writing the documented default first.
func NewManager(path string) (*Manager, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := WriteDefault(path); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("ADMINOCR")
	v.AutomaticEnv()

	defaults := Default()
	v.SetDefault("scan_folder", defaults.ScanFolder)
	v.SetDefault("sub_folders", defaults.SubFolders)
	v.SetDefault("output_folder", defaults.OutputFolder)
	v.SetDefault("file_extensions", defaults.FileExtensions)
	v.SetDefault("workers", defaults.Workers)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cm := &Manager{v: v}
	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of the configuration file.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

// Save writes the given config back to the file the manager was loaded from.
func (cm *Manager) Save(cfg *Config) error {
	path := cm.v.ConfigFileUsed()
	if err := write(path, cfg); err != nil {
		return err
	}
	cm.mu.Lock()
	cm.config = cfg
	cm.mu.Unlock()
	return nil
}

// Default returns the documented default configuration.
func Default() *Config {
	return &Config{
		ScanFolder:     "scan",
		SubFolders:     []string{"Factures", "Impots", "Banque"},
		OutputFolder:   "output",
		FileExtensions: []string{".pdf"},
		Workers:        0,
	}
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	return write(path, Default())
}

func write(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
