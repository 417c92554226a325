package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyRingFromEnviron(t *testing.T) {
	kr := KeyRingFromEnviron([]string{
		"DEEPSEEK_API_KEY=sk-deep",
		"OPEN_ROUTER_API_KEY=sk-or",
		"EMPTY_API_KEY=",
		"_API_KEY=orphan",
		"PATH=/usr/bin",
		"malformed",
	})

	key, err := kr.APIKey("deepseek")
	require.NoError(t, err)
	assert.Equal(t, "sk-deep", key)

	key, err = kr.APIKey("open-router")
	require.NoError(t, err)
	assert.Equal(t, "sk-or", key)

	_, err = kr.APIKey("empty")
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = kr.APIKey("path")
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	assert.ElementsMatch(t, []string{"deepseek", "open_router"}, kr.Providers())
}

func TestKeyRingNilIsEmpty(t *testing.T) {
	var kr *KeyRing
	_, err := kr.APIKey("deepseek")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("RELAY_DOTENV_PROBE=loaded\n"), 0o600))
	t.Setenv("RELAY_DOTENV_PROBE", "")
	os.Unsetenv("RELAY_DOTENV_PROBE")

	err := LoadDotEnv(filepath.Join(dir, "missing.env"), envFile)
	require.NoError(t, err)
	assert.Equal(t, "loaded", os.Getenv("RELAY_DOTENV_PROBE"))
}
