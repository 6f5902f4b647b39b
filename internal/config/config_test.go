package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("Defaults when file only sets backend", func(t *testing.T) {
		path := writeConfig(t, "backend:\n  base_url: http://api.local\n")

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "http://api.local", cfg.Backend.BaseURL)
		assert.Equal(t, 0, cfg.Backend.MaxRetries)
		assert.Equal(t, "bolt", cfg.Storage.Driver)
		assert.Equal(t, "weldzone_cart", cfg.Storage.CartKey)
		assert.Equal(t, "weldzone_config", cfg.Storage.ConfigKey)
		assert.Equal(t, "es-MX", cfg.Storefront.Locale)
		assert.Equal(t, 10*time.Minute, cfg.Storefront.RevalidateInterval)
		assert.Equal(t, 5*time.Minute, cfg.Storefront.CatalogStaleTime)
		assert.Equal(t, "localhost:8080", cfg.Server.Addr())
	})

	t.Run("File values override defaults", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: 9090
storage:
  driver: redis
storefront:
  store_name: Soldaduras Norte
  revalidate_interval: 30s
`)

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "redis", cfg.Storage.Driver)
		assert.Equal(t, "Soldaduras Norte", cfg.Storefront.StoreName)
		assert.Equal(t, 30*time.Second, cfg.Storefront.RevalidateInterval)
	})

	t.Run("Unknown storage driver is rejected", func(t *testing.T) {
		path := writeConfig(t, "storage:\n  driver: sqlite\n")

		_, err := Load(path)
		assert.ErrorContains(t, err, "unsupported storage driver")
	})

	t.Run("Malformed file", func(t *testing.T) {
		path := writeConfig(t, "server: [\n")

		_, err := Load(path)
		assert.Error(t, err)
	})
}
