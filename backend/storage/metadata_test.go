package storage

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestPNG renders a width x height PNG to dir/name and returns its path.
func writeTestPNG(t *testing.T, dir, name string, width, height int) string {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{R: 40, G: 120, B: 200, A: 255})
	path := filepath.Join(dir, name)
	require.NoError(t, imaging.Save(img, path))
	return path
}

func TestExtractMetadata_PlainText(t *testing.T) {
	data := []byte("member contribution record\n")
	path := writeTempFile(t, "contribution.txt", data)

	m, err := ExtractMetadata(path)
	require.NoError(t, err)

	assert.Equal(t, "contribution.txt", m.FileName)
	assert.Equal(t, int64(len(data)), m.FileSize)
	assert.Equal(t, "txt", m.Extension)
	assert.Equal(t, CategoryDocuments, m.FileCategory)
	assert.False(t, m.CreatedAt.IsZero())
	assert.WithinDuration(t, m.ModifiedAt, m.CreatedAt, time.Minute)
	assert.False(t, m.IsCompressed)
	assert.Len(t, m.FileHash, 64)
	assert.Zero(t, m.ImageWidth)
	assert.Zero(t, m.PDFPages)
}

func TestExtractMetadata_ImageDimensions(t *testing.T) {
	path := writeTestPNG(t, t.TempDir(), "photo.png", 640, 480)

	m, err := ExtractMetadata(path)
	require.NoError(t, err)

	assert.Equal(t, CategoryImages, m.FileCategory)
	assert.Equal(t, "image/png", m.MimeType)
	assert.Equal(t, 640, m.ImageWidth)
	assert.Equal(t, 480, m.ImageHeight)
}

func TestExtractMetadata_CompressedFile(t *testing.T) {
	data := bytes.Repeat([]byte("ledger line\n"), 3000)
	path := writeTempFile(t, "ledger.txt", data)

	compressedPath, _, _, err := NewCompressor().Compress(path)
	require.NoError(t, err)
	require.NotEqual(t, path, compressedPath)

	m, err := ExtractMetadata(compressedPath)
	require.NoError(t, err)

	assert.True(t, m.IsCompressed)
	assert.Equal(t, "gz", m.Extension)
	assert.Equal(t, CategoryArchives, m.FileCategory)
}

func TestExtractMetadata_MissingFile(t *testing.T) {
	_, err := ExtractMetadata(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestHashFile_DeterministicAcrossCopies(t *testing.T) {
	data := []byte("identical content, different stored names")
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.txt")
	pathB := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(pathA, data, 0o600))
	require.NoError(t, os.WriteFile(pathB, data, 0o600))

	hashA, err := HashFile(pathA)
	require.NoError(t, err)
	hashB, err := HashFile(pathB)
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB)
	assert.Len(t, hashA, 64)
}

func TestHashFile_DiffersOnContent(t *testing.T) {
	pathA := writeTempFile(t, "a.txt", []byte("one"))
	pathB := writeTempFile(t, "b.txt", []byte("two"))

	hashA, err := HashFile(pathA)
	require.NoError(t, err)
	hashB, err := HashFile(pathB)
	require.NoError(t, err)

	assert.NotEqual(t, hashA, hashB)
}
