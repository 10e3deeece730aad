// Package service orchestrates document records and the storage service:
// batch uploads with per-file error slots, the soft/hard delete lifecycle,
// and cascades across the entity hierarchy.
package service

import (
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"vikoba/backend/common"
	ecode "vikoba/backend/common/errors"
	"vikoba/backend/model"
	"vikoba/backend/storage"
)

var (
	ErrAlreadyDeleted    = errors.New("document already deleted")
	ErrDocumentDeleted   = errors.New("document has been deleted")
	ErrAlreadyCompressed = errors.New("document is already compressed")
	ErrEntityNotFound    = errors.New("entity not found")
	ErrFileMissing       = errors.New("file not found on server")
)

// UploadForm carries the per-batch metadata accompanying the files.
type UploadForm struct {
	DocumentType     string
	DocumentCategory string
	Description      string
	IsProofDocument  bool
	AutoCompress     bool
	GeneratePreview  bool
}

// UploadedDocument is the per-file upload result: the persisted record plus
// the metadata extracted during ingestion.
type UploadedDocument struct {
	*model.Document
	Metadata *storage.Metadata `json:"metadata"`
}

// UploadError is one failed slot of a batch upload.
type UploadError struct {
	FileName string `json:"file_name"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// BatchResult is the mixed outcome of a multi-file upload. A batch succeeds
// as long as at least one file made it; per-file failures land in Errors.
type BatchResult struct {
	Uploaded []*UploadedDocument `json:"uploaded"`
	Errors   []UploadError       `json:"errors"`
}

// UploadDocuments ingests each file sequentially, then commits all successful
// records in one transaction. Validation and I/O failures are caught per file
// and recorded in that file's error slot; the loop continues to the next
// file. If the commit itself fails after files are on disk, the written files
// are unlinked best-effort before the error propagates.
func UploadDocuments(store *storage.Service, entityType string, entityId, actorId int64, form UploadForm, files []*multipart.FileHeader) (*BatchResult, error) {
	result := &BatchResult{Uploaded: []*UploadedDocument{}, Errors: []UploadError{}}

	opts := storage.IngestOptions{
		AutoCompress:    form.AutoCompress,
		GeneratePreview: form.GeneratePreview,
	}

	var docs []*model.Document
	var storedFiles []*storage.StoredFile
	for _, fh := range files {
		stored, err := ingestOne(store, fh, entityType, entityId, opts)
		if err != nil {
			result.Errors = append(result.Errors, UploadError{
				FileName: fh.Filename,
				Code:     uploadErrorCode(err),
				Message:  err.Error(),
			})
			continue
		}
		storedFiles = append(storedFiles, stored)
		docs = append(docs, documentFromStoredFile(stored, entityType, entityId, actorId, form))
	}

	if len(docs) > 0 {
		err := model.DB.Transaction(func(tx *gorm.DB) error {
			return model.CreateDocuments(tx, docs)
		})
		if err != nil {
			// Known inconsistency window: files are on disk but the records
			// lost. Compensate by unlinking what was about to be recorded.
			for _, f := range storedFiles {
				if delErr := store.DeleteFile(f.FilePath, true); delErr != nil {
					common.SysError("failed to clean up " + f.FilePath + " after commit failure: " + delErr.Error())
				}
			}
			return nil, fmt.Errorf("failed to save document records: %w", err)
		}
	}

	for i, doc := range docs {
		result.Uploaded = append(result.Uploaded, &UploadedDocument{Document: doc, Metadata: storedFiles[i].Metadata})
	}
	return result, nil
}

func uploadErrorCode(err error) string {
	switch {
	case errors.Is(err, storage.ErrTypeNotAllowed):
		return ecode.ErrFileTypeForbidden
	case errors.Is(err, storage.ErrFileTooLarge):
		return ecode.ErrFileTooLarge
	default:
		return ecode.ErrInternalServer
	}
}

func ingestOne(store *storage.Service, fh *multipart.FileHeader, entityType string, entityId int64, opts storage.IngestOptions) (*storage.StoredFile, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return store.Ingest(f, fh.Size, fh.Filename, entityType, entityId, opts)
}

func documentFromStoredFile(f *storage.StoredFile, entityType string, entityId, actorId int64, form UploadForm) *model.Document {
	return &model.Document{
		EntityType:       entityType,
		EntityId:         entityId,
		DocumentName:     f.OriginalFilename,
		OriginalFilename: f.OriginalFilename,
		StoredFilename:   f.StoredFilename,
		FilePath:         f.FilePath,
		FileSize:         f.FileSize,
		MimeType:         f.Metadata.MimeType,
		FileCategory:     string(f.Metadata.FileCategory),
		FileHash:         f.Metadata.FileHash,
		DocumentType:     form.DocumentType,
		DocumentCategory: form.DocumentCategory,
		Description:      form.Description,
		IsProofDocument:  form.IsProofDocument,
		IsCompressed:     f.IsCompressed,
		CompressedSize:   f.CompressedSize,
		CompressionRatio: f.CompressionRatio,
		ThumbnailPath:    f.ThumbnailPath,
		PreviewPath:      f.PreviewPath,
		HasPreview:       f.HasPreview(),
		UploadedBy:       actorId,
		UploadDate:       time.Now().UTC(),
	}
}

// SoftDeleteDocument marks the record deleted without touching the
// filesystem. The record stays resolvable by direct ID.
func SoftDeleteDocument(id, actorId int64) (*model.Document, error) {
	doc, err := model.GetDocumentById(id)
	if err != nil {
		return nil, err
	}
	if doc.IsDeleted {
		return nil, ErrAlreadyDeleted
	}
	if err := doc.SoftDelete(actorId); err != nil {
		return nil, err
	}
	return doc, nil
}

// PermanentDeleteDocument unlinks the stored file with all derived artifacts
// and removes the record row. An unlink failure is logged but does not keep
// the row alive.
func PermanentDeleteDocument(store *storage.Service, id int64) error {
	doc, err := model.GetDocumentById(id)
	if err != nil {
		return err
	}
	if err := store.DeleteFile(doc.FilePath, true); err != nil {
		common.SysError(fmt.Sprintf("failed to delete files of document %d: %s", id, err.Error()))
	}
	return doc.HardDelete()
}

// CompressDocument manually compresses an existing document. Returns the
// refreshed record and whether compression was actually applied.
func CompressDocument(store *storage.Service, id int64) (*model.Document, bool, error) {
	doc, err := model.GetDocumentById(id)
	if err != nil {
		return nil, false, err
	}
	if doc.IsDeleted {
		return nil, false, ErrDocumentDeleted
	}
	if doc.IsCompressed {
		return nil, false, ErrAlreadyCompressed
	}

	finalPath, originalSize, compressedSize, err := store.Compressor().Compress(doc.FilePath)
	if err != nil {
		return nil, false, err
	}
	if finalPath == doc.FilePath {
		return doc, false, nil
	}

	doc.FilePath = finalPath
	doc.IsCompressed = true
	doc.CompressedSize = compressedSize
	doc.CompressionRatio = (1 - float64(compressedSize)/float64(originalSize)) * 100
	err = model.DB.Model(doc).Updates(map[string]any{
		"file_path":         doc.FilePath,
		"is_compressed":     true,
		"compressed_size":   doc.CompressedSize,
		"compression_ratio": doc.CompressionRatio,
	}).Error
	if err != nil {
		return nil, false, fmt.Errorf("failed to update document %d after compression: %w", id, err)
	}
	return doc, true, nil
}

// MetadataUpdate carries the mutable record fields; nil means unchanged.
type MetadataUpdate struct {
	Description      *string `json:"description"`
	DocumentType     *string `json:"document_type"`
	DocumentCategory *string `json:"document_category"`
	IsProofDocument  *bool   `json:"is_proof_document"`
}

// UpdateDocumentMetadata applies a partial metadata update.
func UpdateDocumentMetadata(id int64, update MetadataUpdate) (*model.Document, error) {
	doc, err := model.GetDocumentById(id)
	if err != nil {
		return nil, err
	}
	if doc.IsDeleted {
		return nil, ErrDocumentDeleted
	}

	fields := map[string]any{}
	if update.Description != nil {
		doc.Description = *update.Description
		fields["description"] = doc.Description
	}
	if update.DocumentType != nil {
		doc.DocumentType = *update.DocumentType
		fields["document_type"] = doc.DocumentType
	}
	if update.DocumentCategory != nil {
		doc.DocumentCategory = *update.DocumentCategory
		fields["document_category"] = doc.DocumentCategory
	}
	if update.IsProofDocument != nil {
		doc.IsProofDocument = *update.IsProofDocument
		fields["is_proof_document"] = doc.IsProofDocument
	}
	if len(fields) == 0 {
		return doc, nil
	}
	if err := model.DB.Model(doc).Updates(fields).Error; err != nil {
		return nil, fmt.Errorf("failed to update document %d: %w", id, err)
	}
	return doc, nil
}

// OpenDocumentForDownload resolves the on-disk path of the original bytes,
// decompressing into temp/ when the stored file is gzipped. The returned
// cleanup must be called after the response is written.
func OpenDocumentForDownload(store *storage.Service, doc *model.Document) (string, func(), error) {
	path := doc.FilePath
	cleanup := func() {}

	if doc.IsCompressed {
		tmp := filepath.Join(store.Paths().TempDir(), doc.StoredFilename)
		decompressed, err := store.Compressor().Decompress(path, tmp)
		if err != nil {
			return "", nil, err
		}
		if decompressed != path {
			path = decompressed
			cleanup = func() { os.Remove(decompressed) }
		}
	}

	if _, err := os.Stat(path); err != nil {
		cleanup()
		return "", nil, ErrFileMissing
	}
	return path, cleanup, nil
}

// CascadeDeleteMeetingFiles hard-deletes every file of a meeting and of its
// activities, soft-deleting the matching records in the same transaction so
// DB and filesystem state do not diverge.
func CascadeDeleteMeetingFiles(store *storage.Service, meetingId, actorId int64) (*storage.CascadeResult, error) {
	var meeting model.Meeting
	if err := model.DB.First(&meeting, meetingId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntityNotFound
		}
		return nil, err
	}

	total := &storage.CascadeResult{}
	err := model.DB.Transaction(func(tx *gorm.DB) error {
		return cascadeMeeting(store, tx, meetingId, actorId, total)
	})
	if err != nil {
		return nil, err
	}
	return total, nil
}

// CascadeDeleteMemberFiles removes every file of a member. Member rows live
// in the main application schema, so there is no existence check here; an
// unknown id yields an empty result.
func CascadeDeleteMemberFiles(store *storage.Service, memberId, actorId int64) (*storage.CascadeResult, error) {
	total := &storage.CascadeResult{}
	err := model.DB.Transaction(func(tx *gorm.DB) error {
		return cascadeEntity(store, tx, "member", memberId, actorId, total)
	})
	if err != nil {
		return nil, err
	}
	return total, nil
}

// CascadeDeleteGroupFiles cascades group -> meetings -> activities ->
// documents.
func CascadeDeleteGroupFiles(store *storage.Service, groupId, actorId int64) (*storage.CascadeResult, error) {
	var group model.SavingsGroup
	if err := model.DB.First(&group, groupId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntityNotFound
		}
		return nil, err
	}

	total := &storage.CascadeResult{}
	err := model.DB.Transaction(func(tx *gorm.DB) error {
		if err := cascadeEntity(store, tx, "group", groupId, actorId, total); err != nil {
			return err
		}
		meetings, err := model.MeetingsForGroup(groupId)
		if err != nil {
			return err
		}
		for _, meeting := range meetings {
			if err := cascadeMeeting(store, tx, meeting.Id, actorId, total); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return total, nil
}

func cascadeMeeting(store *storage.Service, tx *gorm.DB, meetingId, actorId int64, total *storage.CascadeResult) error {
	activities, err := model.ActivitiesForMeeting(meetingId)
	if err != nil {
		return err
	}
	for _, activity := range activities {
		if err := cascadeEntity(store, tx, "activity", activity.Id, actorId, total); err != nil {
			return err
		}
	}
	return cascadeEntity(store, tx, "meeting", meetingId, actorId, total)
}

func cascadeEntity(store *storage.Service, tx *gorm.DB, entityType string, entityId, actorId int64, total *storage.CascadeResult) error {
	result, err := store.DeleteEntityFiles(entityType, entityId)
	if err != nil {
		return err
	}
	total.Add(result)
	return model.SoftDeleteEntityDocuments(tx, entityType, entityId, actorId)
}
