package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

var current atomic.Pointer[Config]

var (
	onReloadMu        sync.Mutex
	onReloadCallbacks []func(*Config)
)

// Get returns the current in-memory config (hot-reloaded when the file changes).
func Get() *Config { return current.Load() }

// Set sets the current in-memory config. Used at startup and by the file watcher.
func Set(c *Config) {
	if c != nil {
		current.Store(c)
	}
}

// RegisterOnReload registers a callback that runs after config is hot-reloaded.
func RegisterOnReload(fn func(*Config)) {
	onReloadMu.Lock()
	defer onReloadMu.Unlock()
	onReloadCallbacks = append(onReloadCallbacks, fn)
}

func notifyReload(cfg *Config) {
	onReloadMu.Lock()
	cb := make([]func(*Config), len(onReloadCallbacks))
	copy(cb, onReloadCallbacks)
	onReloadMu.Unlock()
	for _, fn := range cb {
		fn(cfg)
	}
}

//go:embed config.example.yaml
var exampleConfigBytes []byte

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyLoadDefaults(&cfg)
	return &cfg, nil
}

// LoadOrDefault loads the config file, falling back to built-in defaults
// when it does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		applyLoadDefaults(cfg)
		return cfg, nil
	}
	return Load(path)
}

func applyLoadDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Gateway.Port <= 0 {
		cfg.Gateway.Port = def.Gateway.Port
	}
	if cfg.Client.GatewayURL == "" {
		cfg.Client.GatewayURL = fmt.Sprintf("ws://localhost:%d/ws/chat", cfg.Gateway.Port)
	}
	if cfg.Client.ReconnectDelayMs <= 0 {
		cfg.Client.ReconnectDelayMs = def.Client.ReconnectDelayMs
	}
	if cfg.Client.MaxReconnects <= 0 {
		cfg.Client.MaxReconnects = def.Client.MaxReconnects
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = def.Catalog.Path
	}
	if !filepath.IsAbs(cfg.Catalog.Path) {
		cfg.Catalog.Path = filepath.Join(DataDir(), cfg.Catalog.Path)
	}
	if cfg.Uploads.Dir == "" {
		cfg.Uploads.Dir = UploadsDir()
	}
	if cfg.Uploads.RetainHours <= 0 {
		cfg.Uploads.RetainHours = def.Uploads.RetainHours
	}
}

func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// ResolveHome returns the shopstream root directory.
// Priority: SHOPSTREAM_HOME env > ~/.shopstream/
func ResolveHome() string {
	if home := os.Getenv("SHOPSTREAM_HOME"); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".shopstream"
	}
	return filepath.Join(userHome, ".shopstream")
}

// ResolveConfigPath finds the config file.
// Priority: --config flag > SHOPSTREAM_HOME/config.yaml
func ResolveConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	return filepath.Join(ResolveHome(), "config.yaml")
}

// Path returns the process-wide config file path (ResolveConfigPath("")).
func Path() string {
	return ResolveConfigPath("")
}

// CreateFromExample writes the embedded config.example.yaml to targetPath.
func CreateFromExample(targetPath string) error {
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(targetPath, exampleConfigBytes, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Write marshals cfg to YAML and writes it to path. Creates parent directory if needed.
func Write(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
