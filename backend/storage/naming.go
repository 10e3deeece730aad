package storage

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// SanitizeFilename strips path separators and characters that are unsafe in a
// stored filename. It never returns an empty string.
func SanitizeFilename(filename string) string {
	// Keep only the final path element, whichever separator the client used.
	if i := strings.LastIndexAny(filename, `/\`); i >= 0 {
		filename = filename[i+1:]
	}

	var b strings.Builder
	for _, r := range filename {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}

	clean := strings.Trim(b.String(), "._")
	if clean == "" {
		return "file"
	}
	return clean
}

// UniqueFilename generates a collision-free stored name preserving the
// original extension: "{random 128-bit hex}.{ext}". The name space is large
// enough that existence checks are unnecessary.
func UniqueFilename(originalFilename string) string {
	id := uuid.New()
	name := hex.EncodeToString(id[:])

	ext := FileExtension(SanitizeFilename(originalFilename))
	if ext == "" {
		return name
	}
	return name + "." + ext
}
