// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Media    MediaConfig    `toml:"media"`
	Sync     SyncConfig     `toml:"sync"`
	Manifest ManifestConfig `toml:"manifest"`
	YTDLP    YTDLPConfig    `toml:"ytdlp"`
	Database DatabaseConfig `toml:"database"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
	// Address is the externally reachable address written into .strm stubs,
	// e.g. "http://nas.local:8090". Defaults to localhost:port.
	Address string `toml:"address"`
}

type MediaConfig struct {
	// Root is the directory the media server library points at.
	Root string `toml:"root"`
}

type SyncConfig struct {
	// CheckIntervalMinutes is the initial rescan interval; runtime changes
	// go through the registry settings document instead.
	CheckIntervalMinutes int  `toml:"check_interval_minutes"`
	ItemCooldownSeconds  int  `toml:"item_cooldown_seconds"`
	Paused               bool `toml:"paused"`
}

type ManifestConfig struct {
	Maintain bool `toml:"maintain"`
	// CacheDir overrides the default <media.root>/manifests location.
	CacheDir string `toml:"cache_dir"`
}

type YTDLPConfig struct {
	Binary  string `toml:"binary"`
	Cookies string `toml:"cookies"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Substitute environment variables
	content := substituteEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	if cfg.Media.Root == "" {
		cfg.Media.Root = "/media/youtube"
	}
	if cfg.Sync.CheckIntervalMinutes == 0 {
		cfg.Sync.CheckIntervalMinutes = 240
	}
	if cfg.Sync.ItemCooldownSeconds == 0 {
		cfg.Sync.ItemCooldownSeconds = 5
	}
	if cfg.Manifest.CacheDir == "" {
		cfg.Manifest.CacheDir = cfg.Media.Root + "/manifests"
	}
	if cfg.YTDLP.Binary == "" {
		cfg.YTDLP.Binary = "yt-dlp"
	}
	if cfg.YTDLP.Cookies == "" {
		cfg.YTDLP.Cookies = "cookies.txt"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/ytarr.db"
	}
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1] // Strip ${ and }
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		return match // Leave unchanged if not found
	})
}
