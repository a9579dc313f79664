package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_AllFields(t *testing.T) {
	path := writeConfig(t, `
[server]
host = "127.0.0.1"
port = 9999
log_level = "debug"
address = "http://nas.local:9999"

[media]
root = "/srv/youtube"

[sync]
check_interval_minutes = 60
item_cooldown_seconds = 10
paused = true

[manifest]
maintain = true
cache_dir = "/var/cache/ytarr"

[ytdlp]
binary = "/usr/local/bin/yt-dlp"
cookies = "/etc/ytarr/cookies.txt"

[database]
path = "/var/lib/ytarr/ytarr.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "http://nas.local:9999", cfg.Server.Address)
	assert.Equal(t, "/srv/youtube", cfg.Media.Root)
	assert.Equal(t, 60, cfg.Sync.CheckIntervalMinutes)
	assert.Equal(t, 10, cfg.Sync.ItemCooldownSeconds)
	assert.True(t, cfg.Sync.Paused)
	assert.True(t, cfg.Manifest.Maintain)
	assert.Equal(t, "/var/cache/ytarr", cfg.Manifest.CacheDir)
	assert.Equal(t, "/usr/local/bin/yt-dlp", cfg.YTDLP.Binary)
	assert.Equal(t, "/etc/ytarr/cookies.txt", cfg.YTDLP.Cookies)
	assert.Equal(t, "/var/lib/ytarr/ytarr.db", cfg.Database.Path)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "http://localhost:8090", cfg.Server.Address)
	assert.Equal(t, "/media/youtube", cfg.Media.Root)
	assert.Equal(t, 240, cfg.Sync.CheckIntervalMinutes)
	assert.Equal(t, 5, cfg.Sync.ItemCooldownSeconds)
	assert.False(t, cfg.Sync.Paused)
	assert.Equal(t, "/media/youtube/manifests", cfg.Manifest.CacheDir)
	assert.Equal(t, "yt-dlp", cfg.YTDLP.Binary)
	assert.Equal(t, "cookies.txt", cfg.YTDLP.Cookies)
	assert.Equal(t, "./data/ytarr.db", cfg.Database.Path)
}

func TestLoad_CacheDirFollowsMediaRoot(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[media]
root = "/srv/yt"
`))
	require.NoError(t, err)

	assert.Equal(t, "/srv/yt/manifests", cfg.Manifest.CacheDir)
}

func TestLoad_AddressDefaultsToConfiguredPort(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[server]
port = 7777
`))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:7777", cfg.Server.Address)
}

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("YTARR_TEST_COOKIES", "/secret/cookies.txt")

	cfg, err := Load(writeConfig(t, `
[ytdlp]
cookies = "${YTARR_TEST_COOKIES}"
binary = "${YTARR_TEST_UNSET_VAR}"
`))
	require.NoError(t, err)

	assert.Equal(t, "/secret/cookies.txt", cfg.YTDLP.Cookies)
	// Unknown variables pass through untouched.
	assert.Equal(t, "${YTARR_TEST_UNSET_VAR}", cfg.YTDLP.Binary)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoad_InvalidTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "[server\nport ="))
	assert.Error(t, err)
}
