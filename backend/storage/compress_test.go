package storage

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestCompress_KeepsCompressedWhenWorthIt(t *testing.T) {
	// Highly repetitive content gzips far below the 90% bound.
	data := bytes.Repeat([]byte("savings group ledger entry\n"), 4000)
	path := writeTempFile(t, "ledger.txt", data)

	c := NewCompressor()
	finalPath, originalSize, finalSize, err := c.Compress(path)
	require.NoError(t, err)

	assert.Equal(t, path+".gz", finalPath)
	assert.Equal(t, int64(len(data)), originalSize)
	assert.Less(t, finalSize, int64(float64(originalSize)*0.9))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "original should be removed after compression")
	_, err = os.Stat(finalPath)
	assert.NoError(t, err)
}

func TestCompress_DiscardsMarginalGain(t *testing.T) {
	// Random bytes do not compress; the attempt must be discarded.
	data := make([]byte, 64<<10)
	_, err := rand.Read(data)
	require.NoError(t, err)
	path := writeTempFile(t, "scan.bmp", data)

	c := NewCompressor()
	finalPath, originalSize, finalSize, err := c.Compress(path)
	require.NoError(t, err)

	assert.Equal(t, path, finalPath)
	assert.Equal(t, originalSize, finalSize)

	_, err = os.Stat(path)
	assert.NoError(t, err, "original must survive a discarded attempt")
	_, err = os.Stat(path + ".gz")
	assert.True(t, os.IsNotExist(err), "discarded .gz must not linger")
}

func TestCompress_SkipsPrecompressedExtensions(t *testing.T) {
	data := bytes.Repeat([]byte("not actually a jpeg"), 1000)
	path := writeTempFile(t, "photo.jpg", data)

	c := NewCompressor()
	finalPath, originalSize, finalSize, err := c.Compress(path)
	require.NoError(t, err)

	assert.Equal(t, path, finalPath)
	assert.Equal(t, int64(len(data)), originalSize)
	assert.Equal(t, originalSize, finalSize)
}

func TestCompress_MissingFile(t *testing.T) {
	c := NewCompressor()
	_, _, _, err := c.Compress(filepath.Join(t.TempDir(), "does-not-exist.txt"))
	assert.Error(t, err)
}

func TestDecompress_RoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("round trip payload\n"), 2000)
	path := writeTempFile(t, "minutes.txt", data)

	c := NewCompressor()
	compressedPath, _, _, err := c.Compress(path)
	require.NoError(t, err)
	require.NotEqual(t, path, compressedPath)

	outPath := filepath.Join(filepath.Dir(path), "restored.txt")
	restored, err := c.Decompress(compressedPath, outPath)
	require.NoError(t, err)
	assert.Equal(t, outPath, restored)

	restoredData, err := os.ReadFile(restored)
	require.NoError(t, err)
	assert.Equal(t, data, restoredData)
}

func TestDecompress_DefaultOutputPath(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 10000)
	path := writeTempFile(t, "notes.txt", data)

	c := NewCompressor()
	compressedPath, _, _, err := c.Compress(path)
	require.NoError(t, err)

	restored, err := c.Decompress(compressedPath, "")
	require.NoError(t, err)
	assert.Equal(t, path, restored)
}

func TestDecompress_PassesThroughUncompressedPath(t *testing.T) {
	path := writeTempFile(t, "plain.txt", []byte("plain"))

	c := NewCompressor()
	out, err := c.Decompress(path, filepath.Join(t.TempDir(), "ignored.txt"))
	require.NoError(t, err)
	assert.Equal(t, path, out)
}
