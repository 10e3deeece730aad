// Package storage owns uploaded binary content for the whole application:
// ingestion, compression, preview generation, metadata extraction, deletion
// and storage accounting. It is constructed explicitly with a root directory
// and injected where needed; it keeps no global state.
package storage

import (
	"path"
	"strings"
)

// FileCategory buckets files by what the frontend does with them.
type FileCategory string

const (
	CategoryDocuments FileCategory = "documents"
	CategoryImages    FileCategory = "images"
	CategoryVideos    FileCategory = "videos"
	CategoryArchives  FileCategory = "archives"
	CategoryAudio     FileCategory = "audio"
	CategoryOther     FileCategory = "other"
)

const (
	// CompressionThreshold: files at or below this size are never auto-compressed.
	CompressionThreshold int64 = 5 << 20
	// MaxFileSize is the hard per-file cap, checked before any disk write.
	MaxFileSize int64 = 50 << 20

	ThumbnailWidth  = 300
	ThumbnailHeight = 300
	PreviewWidth    = 800
	PreviewHeight   = 600
	PDFPreviewDPI   = 150

	DefaultCompressionLevel = 6
	CompressedExt           = ".gz"

	jpegQuality = 85
)

// EntityTypes is the closed set of document owners. Each owns a top-level
// "{type}s" bucket under the storage root.
var EntityTypes = []string{
	"activity",
	"fine",
	"group",
	"loan_repayment",
	"meeting",
	"member",
	"savings",
	"training",
	"voting",
}

// IsValidEntityType reports whether t is one of the nine entity types.
func IsValidEntityType(t string) bool {
	for _, known := range EntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// categoryOrder keeps category matching deterministic.
var categoryOrder = []FileCategory{
	CategoryDocuments,
	CategoryImages,
	CategoryVideos,
	CategoryArchives,
	CategoryAudio,
}

var allowedExtensions = map[FileCategory]map[string]bool{
	CategoryDocuments: set("pdf", "doc", "docx", "xls", "xlsx", "txt", "csv", "odt", "ods"),
	CategoryImages:    set("jpg", "jpeg", "png", "gif", "bmp", "webp", "svg"),
	CategoryVideos:    set("mp4", "avi", "mov", "wmv", "flv", "mkv"),
	CategoryArchives:  set("zip", "rar", "7z", "tar", "gz"),
	CategoryAudio:     set("mp3", "wav", "ogg", "flac"),
}

// precompressedExts already carry entropy-dense encodings; gzipping them
// wastes CPU for negligible or negative gain.
var precompressedExts = set("zip", "rar", "7z", "gz", "jpg", "jpeg", "png", "mp4", "mp3")

var mimeTypes = map[string]string{
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"txt":  "text/plain",
	"csv":  "text/csv",
	"odt":  "application/vnd.oasis.opendocument.text",
	"ods":  "application/vnd.oasis.opendocument.spreadsheet",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
	"mp4":  "video/mp4",
	"avi":  "video/x-msvideo",
	"mov":  "video/quicktime",
	"wmv":  "video/x-ms-wmv",
	"flv":  "video/x-flv",
	"mkv":  "video/x-matroska",
	"zip":  "application/zip",
	"rar":  "application/x-rar-compressed",
	"7z":   "application/x-7z-compressed",
	"tar":  "application/x-tar",
	"gz":   "application/gzip",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"flac": "audio/flac",
}

func set(exts ...string) map[string]bool {
	m := make(map[string]bool, len(exts))
	for _, e := range exts {
		m[e] = true
	}
	return m
}

// FileExtension returns the lower-cased extension without the dot, or "".
func FileExtension(filename string) string {
	ext := path.Ext(filename)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// CategoryForExtension returns the first matching category, or CategoryOther.
func CategoryForExtension(ext string) FileCategory {
	for _, category := range categoryOrder {
		if allowedExtensions[category][ext] {
			return category
		}
	}
	return CategoryOther
}

// MimeTypeForExtension maps an extension through the fixed table.
func MimeTypeForExtension(ext string) string {
	if m, ok := mimeTypes[ext]; ok {
		return m
	}
	return "application/octet-stream"
}

// IsAllowedFile reports whether the filename's extension is in the allow-list.
func IsAllowedFile(filename string) bool {
	ext := FileExtension(filename)
	if ext == "" {
		return false
	}
	return CategoryForExtension(ext) != CategoryOther
}
