package model

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Document is a polymorphic record owned by exactly one (entity_type,
// entity_id) pair. It carries the stored-file descriptor, compression
// outcome, preview artifacts, audit fields and the soft-delete state.
//
// Lifecycle: Active -> SoftDeleted (row kept, excluded from listings, files
// kept) -> HardDeleted (row removed, files unlinked).
type Document struct {
	Id         int64  `json:"id" gorm:"primaryKey"`
	EntityType string `json:"entity_type" gorm:"size:32;index:idx_entity"`
	EntityId   int64  `json:"entity_id" gorm:"index:idx_entity"`

	DocumentName     string `json:"document_name" gorm:"size:255"`
	OriginalFilename string `json:"original_filename" gorm:"size:255"`
	StoredFilename   string `json:"stored_filename" gorm:"uniqueIndex;size:64"`
	FilePath         string `json:"file_path" gorm:"size:512"`
	FileSize         int64  `json:"file_size"`
	MimeType         string `json:"mime_type" gorm:"size:128"`
	FileCategory     string `json:"file_category" gorm:"size:16"`
	FileHash         string `json:"file_hash" gorm:"size:64;index"`

	DocumentType     string `json:"document_type" gorm:"size:50;default:OTHER"`
	DocumentCategory string `json:"document_category" gorm:"size:50;default:GENERAL"`
	Description      string `json:"description"`
	IsProofDocument  bool   `json:"is_proof_document"`

	IsCompressed     bool    `json:"is_compressed"`
	CompressedSize   int64   `json:"compressed_size"`
	CompressionRatio float64 `json:"compression_ratio"`

	ThumbnailPath string `json:"thumbnail_path,omitempty" gorm:"size:512"`
	PreviewPath   string `json:"preview_path,omitempty" gorm:"size:512"`
	HasPreview    bool   `json:"has_preview"`

	UploadedBy    int64      `json:"uploaded_by"`
	UploadDate    time.Time  `json:"upload_date" gorm:"index"`
	DownloadCount int64      `json:"download_count"`
	LastAccessed  *time.Time `json:"last_accessed,omitempty"`

	IsDeleted bool       `json:"is_deleted" gorm:"index"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	DeletedBy *int64     `json:"deleted_by,omitempty"`
}

func (d *Document) TableName() string {
	return "documents"
}

var ErrDocumentNotFound = errors.New("document not found")

// CreateDocuments inserts a batch of records inside tx.
func CreateDocuments(tx *gorm.DB, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := tx.Create(&docs).Error; err != nil {
		return fmt.Errorf("failed to create document records: %w", err)
	}
	return nil
}

// GetDocumentById fetches a record by direct ID. Soft-deleted records are
// still resolvable this way.
func GetDocumentById(id int64) (*Document, error) {
	var doc Document
	if err := DB.First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to find document %d: %w", id, err)
	}
	return &doc, nil
}

// ListDocumentsForEntity returns the active documents of an entity, newest
// upload first. Soft-deleted records are excluded.
func ListDocumentsForEntity(entityType string, entityId int64) ([]*Document, error) {
	var docs []*Document
	err := DB.Where("entity_type = ? AND entity_id = ? AND is_deleted = ?", entityType, entityId, false).
		Order("upload_date desc").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list documents for %s %d: %w", entityType, entityId, err)
	}
	return docs, nil
}

// SoftDeleteDocument flips the record to the soft-deleted state. The
// filesystem is not touched.
func (d *Document) SoftDelete(actorId int64) error {
	now := time.Now().UTC()
	d.IsDeleted = true
	d.DeletedAt = &now
	d.DeletedBy = &actorId
	if err := DB.Model(d).Updates(map[string]any{
		"is_deleted": true,
		"deleted_at": now,
		"deleted_by": actorId,
	}).Error; err != nil {
		return fmt.Errorf("failed to soft delete document %d: %w", d.Id, err)
	}
	return nil
}

// SoftDeleteEntityDocuments bulk soft-deletes every active document of an
// entity in one statement, used by cascades so DB state cannot diverge from
// the filesystem cascade.
func SoftDeleteEntityDocuments(tx *gorm.DB, entityType string, entityId int64, actorId int64) error {
	err := tx.Model(&Document{}).
		Where("entity_type = ? AND entity_id = ? AND is_deleted = ?", entityType, entityId, false).
		Updates(map[string]any{
			"is_deleted": true,
			"deleted_at": time.Now().UTC(),
			"deleted_by": actorId,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to soft delete documents of %s %d: %w", entityType, entityId, err)
	}
	return nil
}

// HardDelete removes the record row. Files are the storage service's job.
func (d *Document) HardDelete() error {
	if err := DB.Delete(d).Error; err != nil {
		return fmt.Errorf("failed to delete document record %d: %w", d.Id, err)
	}
	return nil
}

// RecordDownload bumps the download counter and access timestamp.
func (d *Document) RecordDownload() error {
	now := time.Now().UTC()
	d.DownloadCount++
	d.LastAccessed = &now
	return DB.Model(d).Updates(map[string]any{
		"download_count": d.DownloadCount,
		"last_accessed":  now,
	}).Error
}
