package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/senja/internal/tracing"
)

func withConfigFile(t *testing.T, content string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "senja.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	prev := cfgFile
	cfgFile = path
	t.Cleanup(func() {
		cfgFile = prev
		tracing.Reset()
	})
}

func TestRunServe(t *testing.T) {
	t.Run("should fail for a missing config file", func(t *testing.T) {
		prev := cfgFile
		cfgFile = filepath.Join(t.TempDir(), "nope.json")
		t.Cleanup(func() { cfgFile = prev })

		err := runServe(serveCmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load config")
	})

	t.Run("should treat a malformed role config as a boot failure", func(t *testing.T) {
		withConfigFile(t, `{
			"rbac": {"role_tools": "{\"admin\": \"all\"}"}
		}`)

		err := runServe(serveCmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid rbac role config")
	})

	t.Run("should fail fast when redis is unreachable", func(t *testing.T) {
		withConfigFile(t, `{
			"session": {"backend": "redis", "redis_addr": "127.0.0.1:1"}
		}`)

		err := runServe(serveCmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to redis")
	})
}
