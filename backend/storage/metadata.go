package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

// Metadata describes a file on disk.
type Metadata struct {
	FileName     string       `json:"file_name"`
	FileSize     int64        `json:"file_size"`
	Extension    string       `json:"file_extension"`
	MimeType     string       `json:"mime_type"`
	FileCategory FileCategory `json:"file_category"`
	CreatedAt    time.Time    `json:"created_date"`
	ModifiedAt   time.Time    `json:"modified_date"`
	IsCompressed bool         `json:"is_compressed"`
	FileHash     string       `json:"file_hash"`

	// Best-effort, type-specific fields.
	ImageWidth  int `json:"image_width,omitempty"`
	ImageHeight int `json:"image_height,omitempty"`
	PDFPages    int `json:"pdf_pages,omitempty"`
}

// ExtractMetadata inspects the file at path. Image dimensions and PDF page
// counts are populated best-effort; their extraction failures are swallowed
// and the rest of the metadata is still returned.
func ExtractMetadata(path string) (*Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	hash, err := HashFile(path)
	if err != nil {
		return nil, err
	}

	ext := FileExtension(path)
	m := &Metadata{
		FileName:     filepath.Base(path),
		FileSize:     info.Size(),
		Extension:    ext,
		MimeType:     detectMimeType(path, ext),
		FileCategory: CategoryForExtension(ext),
		CreatedAt:    fileCreatedAt(info),
		ModifiedAt:   info.ModTime(),
		IsCompressed: strings.HasSuffix(path, CompressedExt),
		FileHash:     hash,
	}

	if m.FileCategory == CategoryImages && ext != "svg" {
		if img, err := imaging.Open(path); err == nil {
			bounds := img.Bounds()
			m.ImageWidth = bounds.Dx()
			m.ImageHeight = bounds.Dy()
		}
	}

	if ext == "pdf" {
		if f, reader, err := pdf.Open(path); err == nil {
			m.PDFPages = reader.NumPage()
			f.Close()
		}
	}

	return m, nil
}

// HashFile computes the SHA-256 hex digest of the file, streamed in chunks
// rather than loaded whole.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// detectMimeType prefers content sniffing and falls back to the extension
// table when the file cannot be read.
func detectMimeType(path, ext string) string {
	if mtype, err := mimetype.DetectFile(path); err == nil {
		return mtype.String()
	}
	return MimeTypeForExtension(ext)
}
