package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// BucketUsage is one aggregation bucket of the accounting report.
type BucketUsage struct {
	Count int   `json:"count"`
	Size  int64 `json:"size"`
}

// Usage is a storage accounting summary. It is computed by walking the
// relevant directory tree on demand, never cached.
type Usage struct {
	TotalFiles   int                     `json:"total_files"`
	TotalSize    int64                   `json:"total_size"`
	TotalSizeMB  float64                 `json:"total_size_mb"`
	ByCategory   map[string]*BucketUsage `json:"by_category,omitempty"`
	ByEntityType map[string]*BucketUsage `json:"by_entity_type,omitempty"`
}

// EntityUsage aggregates file count and byte size for one entity's directory,
// grouped by file category.
func (s *Service) EntityUsage(entityType string, entityID int64) (*Usage, error) {
	usage := &Usage{ByCategory: make(map[string]*BucketUsage)}

	dir := filepath.Join(s.paths.Root(), entityType+"s", strconv.FormatInt(entityID, 10))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return usage, nil
		}
		return nil, fmt.Errorf("read entity directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		usage.TotalFiles++
		usage.TotalSize += info.Size()

		category := string(CategoryForExtension(FileExtension(entry.Name())))
		bucket, ok := usage.ByCategory[category]
		if !ok {
			bucket = &BucketUsage{}
			usage.ByCategory[category] = bucket
		}
		bucket.Count++
		bucket.Size += info.Size()
	}

	usage.TotalSizeMB = megabytes(usage.TotalSize)
	return usage, nil
}

// TotalUsage walks every entity-type bucket under the storage root and
// aggregates system-wide totals per bucket. Walks every file on each call.
func (s *Service) TotalUsage() (*Usage, error) {
	usage := &Usage{ByEntityType: make(map[string]*BucketUsage)}

	for _, entityType := range EntityTypes {
		bucketDir := filepath.Join(s.paths.Root(), entityType+"s")
		entityDirs, err := os.ReadDir(bucketDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read bucket %s: %w", bucketDir, err)
		}

		for _, entityDir := range entityDirs {
			if !entityDir.IsDir() {
				continue
			}
			files, err := os.ReadDir(filepath.Join(bucketDir, entityDir.Name()))
			if err != nil {
				continue
			}
			for _, f := range files {
				if f.IsDir() {
					continue
				}
				info, err := f.Info()
				if err != nil {
					continue
				}
				usage.TotalFiles++
				usage.TotalSize += info.Size()

				bucket, ok := usage.ByEntityType[entityType]
				if !ok {
					bucket = &BucketUsage{}
					usage.ByEntityType[entityType] = bucket
				}
				bucket.Count++
				bucket.Size += info.Size()
			}
		}
	}

	usage.TotalSizeMB = megabytes(usage.TotalSize)
	return usage, nil
}

func megabytes(size int64) float64 {
	mb := float64(size) / (1 << 20)
	// Two decimal places, matching the API's historical shape.
	return float64(int64(mb*100+0.5)) / 100
}
