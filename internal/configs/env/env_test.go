package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("AEGIS_TEST_STRING", "value")
	t.Setenv("AEGIS_TEST_INT", "42")
	t.Setenv("AEGIS_TEST_BAD_INT", "forty-two")
	t.Setenv("AEGIS_TEST_FLOAT", "2.5")
	t.Setenv("AEGIS_TEST_BOOL", "true")

	assert.Equal(t, "value", GetEnv("AEGIS_TEST_STRING", "default"))
	assert.Equal(t, "default", GetEnv("AEGIS_TEST_UNSET", "default"))
	assert.Equal(t, 42, GetEnvInt("AEGIS_TEST_INT", 1))
	assert.Equal(t, 1, GetEnvInt("AEGIS_TEST_BAD_INT", 1))
	assert.Equal(t, 2.5, GetEnvFloat("AEGIS_TEST_FLOAT", 1.0))
	assert.True(t, GetEnvBool("AEGIS_TEST_BOOL", false))
	assert.True(t, GetEnvBool("AEGIS_TEST_UNSET", true))
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("AEGIS_TEST_FROM_FILE=loaded\nAEGIS_TEST_PRESET=file\n"), 0o600))
	t.Setenv("AEGIS_TEST_PRESET", "process")
	t.Cleanup(func() { os.Unsetenv("AEGIS_TEST_FROM_FILE") })

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "loaded", os.Getenv("AEGIS_TEST_FROM_FILE"))
	assert.Equal(t, "process", os.Getenv("AEGIS_TEST_PRESET"))

	assert.Error(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env")))
}
