package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Paths maps (entityType, entityID) pairs to directories under the storage
// root and owns the fixed thumbnails/, previews/ and temp/ directories.
type Paths struct {
	root string
}

// NewPaths creates the root and the fixed top-level directories.
func NewPaths(root string) (*Paths, error) {
	p := &Paths{root: root}
	dirs := []string{root, p.ThumbnailDir(), p.PreviewDir(), p.TempDir()}
	for _, t := range EntityTypes {
		dirs = append(dirs, filepath.Join(root, t+"s"))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create storage directory %s: %w", dir, err)
		}
	}
	return p, nil
}

func (p *Paths) Root() string { return p.root }

func (p *Paths) ThumbnailDir() string { return filepath.Join(p.root, "thumbnails") }
func (p *Paths) PreviewDir() string   { return filepath.Join(p.root, "previews") }
func (p *Paths) TempDir() string      { return filepath.Join(p.root, "temp") }

// EntityDir returns (creating if absent) root/{entityType}s/{entityID}/.
func (p *Paths) EntityDir(entityType string, entityID int64) (string, error) {
	dir := filepath.Join(p.root, entityType+"s", strconv.FormatInt(entityID, 10))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create entity directory %s: %w", dir, err)
	}
	return dir, nil
}

// EntityFile returns the path of filename inside the entity directory.
func (p *Paths) EntityFile(entityType string, entityID int64, filename string) (string, error) {
	dir, err := p.EntityDir(entityType, entityID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filename), nil
}

// ThumbnailPath returns thumbnails/thumb_{basename}.
func (p *Paths) ThumbnailPath(basename string) string {
	return filepath.Join(p.ThumbnailDir(), "thumb_"+basename)
}

// PreviewPath returns previews/preview_{stem}.jpg where stem is the basename
// without its extension.
func (p *Paths) PreviewPath(basename string) string {
	return filepath.Join(p.PreviewDir(), "preview_"+stem(basename)+".jpg")
}

// stem strips a trailing compression suffix and then the extension.
func stem(basename string) string {
	basename = strings.TrimSuffix(basename, CompressedExt)
	ext := filepath.Ext(basename)
	return strings.TrimSuffix(basename, ext)
}
