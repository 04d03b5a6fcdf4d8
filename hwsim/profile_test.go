package hwsim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "device.yaml")
	require.NoError(t, os.WriteFile(path, []byte("num_cores: 8\nwarps_per_core: 4\nthreads_per_warp: 32\n"), 0o644))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, DeviceProfile{NumCores: 8, WarpsPerCore: 4, ThreadsPerWarp: 32}, p)
}

func TestLoadProfile_MissingField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "device.yaml")
	require.NoError(t, os.WriteFile(path, []byte("num_cores: 8\nwarps_per_core: 4\n"), 0o644))

	_, err := LoadProfile(path)
	require.Error(t, err)
}

func TestLoadProfile_MissingFile(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
