package storage

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := New(t.TempDir())
	require.NoError(t, err)
	return svc
}

func ingestBytes(t *testing.T, svc *Service, filename, entityType string, entityID int64, data []byte, opts IngestOptions) *StoredFile {
	t.Helper()
	stored, err := svc.Ingest(bytes.NewReader(data), int64(len(data)), filename, entityType, entityID, opts)
	require.NoError(t, err)
	return stored
}

func TestIngest_SmallFileStoredVerbatim(t *testing.T) {
	svc := newTestService(t)
	data := []byte("weekly savings collection: 45000 TZS\n")

	stored := ingestBytes(t, svc, "collection.txt", "meeting", 7, data, DefaultIngestOptions())

	assert.Equal(t, "collection.txt", stored.OriginalFilename)
	assert.NotEqual(t, stored.OriginalFilename, stored.StoredFilename)
	assert.True(t, strings.HasSuffix(stored.StoredFilename, ".txt"))
	assert.False(t, stored.IsCompressed)
	assert.Zero(t, stored.CompressionRatio)
	assert.Equal(t, int64(len(data)), stored.FileSize)
	assert.Equal(t, stored.FileSize, stored.CompressedSize)
	assert.False(t, stored.HasPreview())

	assert.Contains(t, stored.FilePath, filepath.Join("meetings", "7"))
	onDisk, err := os.ReadFile(stored.FilePath)
	require.NoError(t, err)
	assert.Equal(t, data, onDisk)

	require.NotNil(t, stored.Metadata)
	assert.Equal(t, CategoryDocuments, stored.Metadata.FileCategory)
}

func TestIngest_LargeFileAutoCompressed(t *testing.T) {
	svc := newTestService(t)
	svc.CompressThreshold = 1 << 10
	data := bytes.Repeat([]byte("attendance register row\n"), 2000)

	stored := ingestBytes(t, svc, "register.txt", "meeting", 7, data, DefaultIngestOptions())

	assert.True(t, stored.IsCompressed)
	assert.True(t, strings.HasSuffix(stored.FilePath, ".gz"))
	assert.Equal(t, int64(len(data)), stored.FileSize)
	assert.Less(t, stored.CompressedSize, stored.FileSize)
	assert.GreaterOrEqual(t, stored.CompressionRatio, 10.0)

	_, err := os.Stat(strings.TrimSuffix(stored.FilePath, ".gz"))
	assert.True(t, os.IsNotExist(err), "uncompressed original must be removed")
}

func TestIngest_AutoCompressDisabled(t *testing.T) {
	svc := newTestService(t)
	svc.CompressThreshold = 1 << 10
	data := bytes.Repeat([]byte("attendance register row\n"), 2000)

	stored := ingestBytes(t, svc, "register.txt", "meeting", 7, data, IngestOptions{AutoCompress: false, GeneratePreview: false})

	assert.False(t, stored.IsCompressed)
	assert.False(t, strings.HasSuffix(stored.FilePath, ".gz"))
}

func TestIngest_RejectsDisallowedType(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Ingest(bytes.NewReader([]byte("MZ")), 2, "virus.exe", "member", 1, DefaultIngestOptions())
	assert.ErrorIs(t, err, ErrTypeNotAllowed)
}

func TestIngest_RejectsOversizedFile(t *testing.T) {
	svc := newTestService(t)
	svc.MaxSize = 10
	_, err := svc.Ingest(bytes.NewReader(bytes.Repeat([]byte("x"), 11)), 11, "big.txt", "member", 1, DefaultIngestOptions())
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestIngest_ImageGetsThumbnail(t *testing.T) {
	svc := newTestService(t)
	pngPath := writeTestPNG(t, t.TempDir(), "photo.png", 400, 400)
	data, err := os.ReadFile(pngPath)
	require.NoError(t, err)

	stored := ingestBytes(t, svc, "photo.png", "member", 3, data, DefaultIngestOptions())

	assert.True(t, stored.HasPreview())
	require.NotEmpty(t, stored.ThumbnailPath)
	_, err = os.Stat(stored.ThumbnailPath)
	assert.NoError(t, err)
	assert.Equal(t, 400, stored.Metadata.ImageWidth)
}

func TestIngest_CorruptPDFStoredWithoutPreview(t *testing.T) {
	svc := newTestService(t)
	svc.SetPreviewGenerator(NewGeneratorWithProviders(svc.Paths(), imagingProvider{}, nil, nil))

	stored := ingestBytes(t, svc, "scan.pdf", "loan_repayment", 5, []byte("%PDF- truncated"), DefaultIngestOptions())

	assert.False(t, stored.HasPreview())
	_, err := os.Stat(stored.FilePath)
	assert.NoError(t, err)
}

func TestIngest_CompressedPDFPreviewedFromScratchCopy(t *testing.T) {
	svc := newTestService(t)
	svc.CompressThreshold = 1 << 10
	stub := &stubPDFProvider{page: imaging.New(1200, 1600, color.NRGBA{R: 255, G: 255, B: 255, A: 255})}
	svc.SetPreviewGenerator(NewGeneratorWithProviders(svc.Paths(), imagingProvider{}, stub, nil))

	data := bytes.Repeat([]byte("loan agreement clause\n"), 5000)
	stored := ingestBytes(t, svc, "agreement.pdf", "loan_repayment", 8, data, DefaultIngestOptions())

	require.True(t, stored.IsCompressed)
	assert.True(t, strings.HasSuffix(stored.FilePath, ".gz"))
	assert.True(t, stored.HasPreview())

	// The renderer must see an uncompressed scratch copy under temp/, not
	// the gzipped stored file.
	assert.True(t, strings.HasPrefix(stub.renderedSrc, svc.Paths().TempDir()))
	assert.False(t, strings.HasSuffix(stub.renderedSrc, ".gz"))

	entries, err := os.ReadDir(svc.Paths().TempDir())
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch copy must be removed after preview generation")
}

func TestDeleteFile_Idempotent(t *testing.T) {
	svc := newTestService(t)
	stored := ingestBytes(t, svc, "note.txt", "group", 2, []byte("note"), DefaultIngestOptions())

	require.NoError(t, svc.DeleteFile(stored.FilePath, true))
	_, err := os.Stat(stored.FilePath)
	assert.True(t, os.IsNotExist(err))

	// Second delete of the same path is a no-op, not an error.
	assert.NoError(t, svc.DeleteFile(stored.FilePath, true))
}

func TestDeleteFile_RemovesDerivedArtifacts(t *testing.T) {
	svc := newTestService(t)
	pngPath := writeTestPNG(t, t.TempDir(), "photo.png", 400, 400)
	data, err := os.ReadFile(pngPath)
	require.NoError(t, err)

	stored := ingestBytes(t, svc, "photo.png", "member", 3, data, DefaultIngestOptions())
	require.NotEmpty(t, stored.ThumbnailPath)

	require.NoError(t, svc.DeleteFile(stored.FilePath, true))
	_, err = os.Stat(stored.ThumbnailPath)
	assert.True(t, os.IsNotExist(err), "thumbnail must be deleted with its source")
}

func TestDeleteEntityFiles_CountsAndRemovesDirectory(t *testing.T) {
	svc := newTestService(t)
	var totalBytes int64
	for _, name := range []string{"one.txt", "two.txt", "three.txt"} {
		data := []byte("contents of " + name)
		ingestBytes(t, svc, name, "activity", 9, data, DefaultIngestOptions())
		totalBytes += int64(len(data))
	}

	result, err := svc.DeleteEntityFiles("activity", 9)
	require.NoError(t, err)
	assert.Equal(t, 3, result.DeletedCount)
	assert.Equal(t, 0, result.FailedCount)
	assert.Equal(t, totalBytes, result.BytesFreed)

	_, err = os.Stat(filepath.Join(svc.Paths().Root(), "activitys", "9"))
	assert.True(t, os.IsNotExist(err), "emptied entity directory must be removed")
}

func TestDeleteEntityFiles_MissingDirectory(t *testing.T) {
	svc := newTestService(t)
	result, err := svc.DeleteEntityFiles("fine", 404)
	require.NoError(t, err)
	assert.Zero(t, result.DeletedCount)
}

func TestEntityUsage(t *testing.T) {
	svc := newTestService(t)
	ingestBytes(t, svc, "minutes.txt", "meeting", 11, []byte("0123456789"), DefaultIngestOptions())
	ingestBytes(t, svc, "ledger.csv", "meeting", 11, []byte("a,b,c"), DefaultIngestOptions())

	usage, err := svc.EntityUsage("meeting", 11)
	require.NoError(t, err)
	assert.Equal(t, 2, usage.TotalFiles)
	assert.Equal(t, int64(15), usage.TotalSize)
	require.Contains(t, usage.ByCategory, string(CategoryDocuments))
	assert.Equal(t, 2, usage.ByCategory[string(CategoryDocuments)].Count)
}

func TestEntityUsage_EmptyEntity(t *testing.T) {
	svc := newTestService(t)
	usage, err := svc.EntityUsage("member", 999)
	require.NoError(t, err)
	assert.Zero(t, usage.TotalFiles)
	assert.Zero(t, usage.TotalSize)
}

func TestTotalUsage_GroupsByEntityType(t *testing.T) {
	svc := newTestService(t)
	ingestBytes(t, svc, "a.txt", "meeting", 1, []byte("aaaa"), DefaultIngestOptions())
	ingestBytes(t, svc, "b.txt", "meeting", 2, []byte("bbbb"), DefaultIngestOptions())
	ingestBytes(t, svc, "c.txt", "member", 1, []byte("cc"), DefaultIngestOptions())

	usage, err := svc.TotalUsage()
	require.NoError(t, err)
	assert.Equal(t, 3, usage.TotalFiles)
	assert.Equal(t, int64(10), usage.TotalSize)
	require.Contains(t, usage.ByEntityType, "meeting")
	assert.Equal(t, 2, usage.ByEntityType["meeting"].Count)
	require.Contains(t, usage.ByEntityType, "member")
	assert.Equal(t, int64(2), usage.ByEntityType["member"].Size)
}
