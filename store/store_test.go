package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMissingFileIsEmpty(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, "", s.GetString("wifi", "ssid"))
}

func TestOpenCorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{{not yaml"), 0o600))

	s := Open(path)
	assert.Equal(t, "", s.GetString("wifi", "ssid"))
}

func TestSetGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.yaml")

	s := Open(path)
	require.NoError(t, s.SetString("wifi", "ssid", "HomeNet"))
	require.NoError(t, s.SetString("wifi", "password", "secret123"))

	// Same instance
	assert.Equal(t, "HomeNet", s.GetString("wifi", "ssid"))
	assert.Equal(t, "secret123", s.GetString("wifi", "password"))

	// Survives a reopen
	s2 := Open(path)
	assert.Equal(t, "HomeNet", s2.GetString("wifi", "ssid"))
	assert.Equal(t, "secret123", s2.GetString("wifi", "password"))
}

func TestSetOverwrites(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "store.yaml"))
	require.NoError(t, s.SetString("wifi", "ssid", "old"))
	require.NoError(t, s.SetString("wifi", "ssid", "new"))
	assert.Equal(t, "new", s.GetString("wifi", "ssid"))
}

func TestValueTooLongRejected(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "store.yaml"))
	err := s.SetString("wifi", "ssid", strings.Repeat("a", MaxValueLen+1))
	assert.ErrorIs(t, err, ErrValueTooLong)
	assert.Equal(t, "", s.GetString("wifi", "ssid"))
}

func TestMaxLengthValueAccepted(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "store.yaml"))
	v := strings.Repeat("b", MaxValueLen)
	require.NoError(t, s.SetString("wifi", "password", v))
	assert.Equal(t, v, s.GetString("wifi", "password"))
}

func TestDelete(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "store.yaml"))
	require.NoError(t, s.SetString("wifi", "ssid", "HomeNet"))
	require.NoError(t, s.Delete("wifi", "ssid"))
	assert.Equal(t, "", s.GetString("wifi", "ssid"))

	// Deleting again (or an unknown namespace) is a no-op
	require.NoError(t, s.Delete("wifi", "ssid"))
	require.NoError(t, s.Delete("nothing", "here"))
}

func TestNamespacesAreIndependent(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "store.yaml"))
	require.NoError(t, s.SetString("wifi", "ssid", "HomeNet"))
	require.NoError(t, s.SetString("printer", "ssid", "other"))
	assert.Equal(t, "HomeNet", s.GetString("wifi", "ssid"))
	assert.Equal(t, "other", s.GetString("printer", "ssid"))
}
