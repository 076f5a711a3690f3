package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, int64(1024), cfg.UploadLimitMB)
	assert.Equal(t, 60, cfg.SessionTTLMinutes)
	assert.Equal(t, 25.0, cfg.Merge.BufferDistance)
	assert.Equal(t, 50.0, cfg.Merge.OverlapThreshold)
	assert.Len(t, cfg.Basemaps, 2)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
upload_limit_mb: 8
merge:
  buffer_distance: 100
basemaps:
  - name: Local
    tiles: http://localhost:8081/{z}/{x}/{y}.png
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(8), cfg.UploadLimitMB)
	assert.Equal(t, 100.0, cfg.Merge.BufferDistance)
	// Untouched keys keep their defaults.
	assert.Equal(t, 60, cfg.SessionTTLMinutes)
	assert.Len(t, cfg.Basemaps, 1)
	assert.Equal(t, "Local", cfg.Basemaps[0].Name)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}
