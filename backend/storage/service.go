package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"vikoba/backend/common"
)

// Validation failures are rejected before any disk write and must map to
// per-file errors rather than aborting a batch.
var (
	ErrTypeNotAllowed = errors.New("file type not allowed")
	ErrFileTooLarge   = errors.New("file size exceeds limit")
)

// Service is the document/file storage service. It is constructed once with
// the storage root and passed down explicitly; its only state is
// configuration.
type Service struct {
	paths      *Paths
	compressor *Compressor
	previews   *Generator

	// CompressThreshold and MaxSize are overridable for tests.
	CompressThreshold int64
	MaxSize           int64
}

// New builds a Service rooted at root, creating the directory skeleton.
func New(root string) (*Service, error) {
	paths, err := NewPaths(root)
	if err != nil {
		return nil, err
	}
	return &Service{
		paths:             paths,
		compressor:        NewCompressor(),
		previews:          NewGenerator(paths),
		CompressThreshold: CompressionThreshold,
		MaxSize:           MaxFileSize,
	}, nil
}

func (s *Service) Paths() *Paths           { return s.paths }
func (s *Service) Compressor() *Compressor { return s.compressor }

// SetPreviewGenerator substitutes the preview pipelines, e.g. with disabled
// providers.
func (s *Service) SetPreviewGenerator(g *Generator) { s.previews = g }

// IngestOptions control the optional pipeline stages.
type IngestOptions struct {
	AutoCompress    bool
	GeneratePreview bool
}

// DefaultIngestOptions enables both stages.
func DefaultIngestOptions() IngestOptions {
	return IngestOptions{AutoCompress: true, GeneratePreview: true}
}

// StoredFile is the combined result of one ingestion.
type StoredFile struct {
	OriginalFilename string    `json:"original_filename"`
	StoredFilename   string    `json:"stored_filename"`
	FilePath         string    `json:"file_path"`
	FileSize         int64     `json:"file_size"`
	CompressedSize   int64     `json:"compressed_size"`
	IsCompressed     bool      `json:"is_compressed"`
	CompressionRatio float64   `json:"compression_ratio"`
	ThumbnailPath    string    `json:"thumbnail_path,omitempty"`
	PreviewPath      string    `json:"preview_path,omitempty"`
	Metadata         *Metadata `json:"metadata"`
}

func (f *StoredFile) HasPreview() bool {
	return f.ThumbnailPath != "" || f.PreviewPath != ""
}

// Ingest validates, names, writes, compresses, previews and measures one
// uploaded file. declaredSize is checked against the hard cap before any
// byte reaches disk. The stages are strictly sequential; on any write or
// compression failure the on-disk state for this file is cleaned up before
// the error propagates.
func (s *Service) Ingest(r io.Reader, declaredSize int64, originalFilename, entityType string, entityID int64, opts IngestOptions) (*StoredFile, error) {
	cleanName := SanitizeFilename(originalFilename)
	if !IsAllowedFile(cleanName) {
		return nil, fmt.Errorf("%s: %w", cleanName, ErrTypeNotAllowed)
	}
	if declaredSize > s.MaxSize {
		return nil, fmt.Errorf("%s: %w", cleanName, ErrFileTooLarge)
	}

	storedName := UniqueFilename(cleanName)
	destPath, err := s.paths.EntityFile(entityType, entityID, storedName)
	if err != nil {
		return nil, err
	}

	fileSize, err := writeFile(destPath, r)
	if err != nil {
		return nil, err
	}

	filePath := destPath
	compressedSize := fileSize
	isCompressed := false
	if opts.AutoCompress && fileSize > s.CompressThreshold {
		finalPath, _, finalSize, err := s.compressor.Compress(destPath)
		if err != nil {
			os.Remove(destPath)
			return nil, err
		}
		if finalPath != destPath {
			filePath = finalPath
			compressedSize = finalSize
			isCompressed = true
		}
	}

	var artifacts PreviewArtifacts
	if opts.GeneratePreview {
		artifacts = s.generatePreviews(filePath, storedName, cleanName, isCompressed)
	}

	metadata, err := ExtractMetadata(filePath)
	if err != nil {
		return nil, err
	}

	ratio := 0.0
	if isCompressed {
		ratio = (1 - float64(compressedSize)/float64(fileSize)) * 100
	}

	return &StoredFile{
		OriginalFilename: cleanName,
		StoredFilename:   storedName,
		FilePath:         filePath,
		FileSize:         fileSize,
		CompressedSize:   compressedSize,
		IsCompressed:     isCompressed,
		CompressionRatio: ratio,
		ThumbnailPath:    artifacts.ThumbnailPath,
		PreviewPath:      artifacts.PreviewPath,
		Metadata:         metadata,
	}, nil
}

// generatePreviews runs the matching pipeline, decompressing to a scratch
// copy first when the stored file is gzipped. The scratch copy is removed on
// every exit path.
func (s *Service) generatePreviews(filePath, storedName, originalName string, isCompressed bool) PreviewArtifacts {
	previewSrc := filePath
	if isCompressed {
		scratch, err := s.compressor.Decompress(filePath, filepath.Join(s.paths.TempDir(), storedName))
		if err != nil {
			common.SysError(fmt.Sprintf("failed to decompress %s for preview: %s", filePath, err.Error()))
			return PreviewArtifacts{}
		}
		defer os.Remove(scratch)
		previewSrc = scratch
	}

	ext := FileExtension(originalName)
	return s.previews.Generate(previewSrc, CategoryForExtension(ext), ext)
}

// writeFile streams r into path via a temp file and atomic rename, so a
// failed upload never leaves a half-written stored file under its final name.
func writeFile(path string, r io.Reader) (int64, error) {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", tmpPath, err)
	}

	size, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("write upload data: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("sync upload data: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("rename into place: %w", err)
	}
	return size, nil
}

// DeleteFile unlinks the stored file and, when deleteRelated is set, every
// derived artifact: thumbnails, preview, and a sibling compressed variant.
// Missing files are not errors, so the operation is idempotent and safe when
// two deletes race.
func (s *Service) DeleteFile(filePath string, deleteRelated bool) error {
	if err := removeIfExists(filePath); err != nil {
		return err
	}
	if !deleteRelated {
		return nil
	}

	basename := filepath.Base(filePath)
	related := []string{
		// Image thumbnails keep the full stored filename.
		s.paths.ThumbnailPath(basename),
		// Video thumbnails and PDF-preview thumbnails are JPEGs named by stem.
		s.paths.ThumbnailPath(stem(basename) + ".jpg"),
		s.paths.ThumbnailPath("preview_" + stem(basename) + ".jpg"),
		s.paths.PreviewPath(basename),
	}
	if !strings.HasSuffix(filePath, CompressedExt) {
		related = append(related, filePath+CompressedExt)
	}

	var firstErr error
	for _, p := range related {
		if err := removeIfExists(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// CascadeResult reports what an entity-level delete accomplished.
type CascadeResult struct {
	DeletedCount int   `json:"deleted_count"`
	FailedCount  int   `json:"failed_count"`
	BytesFreed   int64 `json:"total_size_freed"`
}

func (r *CascadeResult) Add(other *CascadeResult) {
	r.DeletedCount += other.DeletedCount
	r.FailedCount += other.FailedCount
	r.BytesFreed += other.BytesFreed
}

// DeleteEntityFiles hard-deletes every file in the entity's directory along
// with derived artifacts, then removes the emptied directory. A file that
// cannot be unlinked is counted as failed and the loop continues.
func (s *Service) DeleteEntityFiles(entityType string, entityID int64) (*CascadeResult, error) {
	result := &CascadeResult{}

	dir := filepath.Join(s.paths.Root(), entityType+"s", fmt.Sprintf("%d", entityID))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("read entity directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		filePath := filepath.Join(dir, entry.Name())
		var size int64
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		if err := s.DeleteFile(filePath, true); err != nil {
			common.SysError(fmt.Sprintf("cascade delete failed for %s: %s", filePath, err.Error()))
			result.FailedCount++
			continue
		}
		result.DeletedCount++
		result.BytesFreed += size
	}

	// Drop the directory if the cascade emptied it.
	if remaining, err := os.ReadDir(dir); err == nil && len(remaining) == 0 {
		_ = os.Remove(dir)
	}

	return result, nil
}
