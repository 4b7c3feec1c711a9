package checksum_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dan-online/autopulse-sub000/internal/checksum"
)

func TestSHA256File_KnownDigest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world\n"), 0o644))

	got, err := checksum.SHA256File(path)
	require.NoError(t, err)
	assert.Equal(t, "a948904f2f0f479b8f8197694b30184b0d2ed1c1cd2a1ec0fb85d299a192a447", got)
}

func TestSHA256File_MissingFileErrors(t *testing.T) {
	_, err := checksum.SHA256File(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestSHA256File_DeterministicAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3, 4, 5}, 0o644))

	first, err := checksum.SHA256File(path)
	require.NoError(t, err)
	second, err := checksum.SHA256File(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
