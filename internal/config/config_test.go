package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "issuefs", "config.yaml")
	saved := &Config{
		URL:   "https://tracker.example",
		User:  "mel",
		Token: "token123",
	}

	require.NoError(t, saved.saveTo(p))

	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := loadFrom(p)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestLoadMissingFileIsEmptyConfig(t *testing.T) {
	cfg, err := loadFrom(filepath.Join(t.TempDir(), "nope", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, (&Config{URL: "https://file.example", User: "from-file"}).saveTo(p))

	t.Setenv("ISSUEFS_URL", "https://env.example")
	t.Setenv("ISSUEFS_TOKEN", "env-token")

	cfg, err := loadFrom(p)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example", cfg.URL)
	assert.Equal(t, "from-file", cfg.User)
	assert.Equal(t, "env-token", cfg.Token)
}

func TestClientRequiresURL(t *testing.T) {
	_, err := (&Config{}).Client()
	assert.Error(t, err)

	client, err := (&Config{URL: "https://tracker.example", User: "mel", Token: "t"}).Client()
	require.NoError(t, err)
	assert.NotNil(t, client)
}
