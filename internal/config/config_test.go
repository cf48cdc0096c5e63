package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.PreviewRows)
	assert.Equal(t, 20, cfg.Chart.MaxRows)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxUploadBytes())
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 256, cfg.Session.MaxSessions)
}

func TestInit_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sift.yaml")
	require.NoError(t, os.WriteFile(path, []byte("preview_rows: 10\nserver:\n  address: \"127.0.0.1:9000\"\nsession:\n  ttl: 5m\n"), 0o644))
	t.Setenv("SIFT_CHART_MAX_ROWS", "40")

	v := viper.New()
	require.NoError(t, Init(v, path))

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.PreviewRows)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address)
	assert.Equal(t, 5*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 40, cfg.Chart.MaxRows)
}

func TestInit_MissingExplicitFile(t *testing.T) {
	v := viper.New()
	err := Init(v, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"Preview rows too small", "preview_rows", 0},
		{"Preview rows too large", "preview_rows", 1000},
		{"Upload limit", "server.max_upload_mb", 0},
		{"No address", "server.address", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set(tt.key, tt.value)

			_, err := Load(v)
			require.Error(t, err)

			var verrs validator.ValidationErrors
			assert.ErrorAs(t, err, &verrs)
		})
	}
}
