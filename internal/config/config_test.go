package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitchdeck/internal/config"
)

// chdir moves into an empty directory so no stray pitchdeck.yaml is found.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestDefaults(t *testing.T) {
	chdir(t)
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "auto", cfg.Style)
	assert.Equal(t, 80, cfg.WordWrap)
	assert.Empty(t, cfg.SlidesDir)
	assert.False(t, cfg.WatchExe)
}

func TestFileEnvAndFlags(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pitchdeck.yaml"),
		[]byte("slides_dir: ./talk\nstyle: dark\nword_wrap: 60\nlog_level: debug\n"), 0o600))
	t.Setenv("PITCHDECK_STYLE", "light")

	cfg, err := config.Load("", func(v *viper.Viper) error {
		v.Set("log_level", "warn")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "./talk", cfg.SlidesDir)
	assert.Equal(t, 60, cfg.WordWrap)
	assert.Equal(t, "light", cfg.Style, "environment overrides file")
	assert.Equal(t, "warn", cfg.LogLevel, "flags override everything")
}

func TestExplicitConfigFileMustExist(t *testing.T) {
	dir := chdir(t)
	_, err := config.Load(filepath.Join(dir, "missing.yaml"), nil)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	ok := config.Config{HTTPAddr: ":8080", LogLevel: "info", WordWrap: 80}
	require.NoError(t, ok.Validate())

	bad := []config.Config{
		{HTTPAddr: ":8080", LogLevel: "loud", WordWrap: 80},
		{HTTPAddr: ":8080", LogLevel: "info", WordWrap: 0},
		{HTTPAddr: " ", LogLevel: "info", WordWrap: 80},
	}
	for _, c := range bad {
		require.ErrorIs(t, c.Validate(), config.ErrInvalidConfig, "%+v", c)
	}
}
