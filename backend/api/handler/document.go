package handler

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"vikoba/backend/common"
	ecode "vikoba/backend/common/errors"
	"vikoba/backend/model"
	"vikoba/backend/service"
	"vikoba/backend/storage"
)

// DocumentHandler serves the document API. The storage service is injected at
// construction; handlers keep no other state.
type DocumentHandler struct {
	Store *storage.Service
}

func NewDocumentHandler(store *storage.Service) *DocumentHandler {
	return &DocumentHandler{Store: store}
}

// actorId extracts the acting user from the X-Actor-Id header. Authentication
// itself happens upstream of this service.
func actorId(c *gin.Context) int64 {
	id, _ := strconv.ParseInt(c.GetHeader("X-Actor-Id"), 10, 64)
	return id
}

func paramId(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		common.RespErrorCode(c, http.StatusBadRequest, ecode.ErrInvalidParam, "invalid "+name)
		return 0, false
	}
	return id, true
}

func entityParams(c *gin.Context) (string, int64, bool) {
	entityType := c.Param("entityType")
	if !storage.IsValidEntityType(entityType) {
		common.RespErrorCode(c, http.StatusBadRequest, ecode.ErrUnknownEntityType, "unknown entity type: "+entityType)
		return "", 0, false
	}
	entityId, ok := paramId(c, "entityId")
	if !ok {
		return "", 0, false
	}
	return entityType, entityId, true
}

func formBool(c *gin.Context, key string, def bool) bool {
	v := c.PostForm(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}

// Upload handles a multi-file upload for one entity. The batch succeeds with
// a mixed uploaded/errors list as long as at least one file made it.
func (h *DocumentHandler) Upload(c *gin.Context) {
	entityType, entityId, ok := entityParams(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		common.RespError(c, http.StatusBadRequest, "invalid multipart form", err)
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		common.RespErrorCode(c, http.StatusBadRequest, ecode.ErrNoFilesProvided, "no files provided")
		return
	}

	uploadForm := service.UploadForm{
		DocumentType:     c.DefaultPostForm("document_type", "OTHER"),
		DocumentCategory: c.DefaultPostForm("document_category", "GENERAL"),
		Description:      c.PostForm("description"),
		IsProofDocument:  formBool(c, "is_proof_document", false),
		AutoCompress:     formBool(c, "auto_compress", true),
		GeneratePreview:  formBool(c, "generate_preview", true),
	}

	result, err := service.UploadDocuments(h.Store, entityType, entityId, actorId(c), uploadForm, files)
	if err != nil {
		common.RespError(c, http.StatusInternalServerError, "upload failed", err)
		return
	}

	msg := "Uploaded " + strconv.Itoa(len(result.Uploaded)) + " document(s)"
	if len(result.Uploaded) == 0 {
		common.RespErrorWithData(c, http.StatusBadRequest, msg, result)
		return
	}
	common.RespCreated(c, msg, result)
}

// List returns the active documents of an entity, newest first.
func (h *DocumentHandler) List(c *gin.Context) {
	entityType, entityId, ok := entityParams(c)
	if !ok {
		return
	}
	docs, err := model.ListDocumentsForEntity(entityType, entityId)
	if err != nil {
		common.RespError(c, http.StatusInternalServerError, "failed to list documents", err)
		return
	}
	common.RespSuccess(c, gin.H{"documents": docs, "total_count": len(docs)})
}

// Get returns one document by direct ID, with fresh on-disk metadata when the
// file still exists. Soft-deleted documents read as gone here.
func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := paramId(c, "id")
	if !ok {
		return
	}
	doc, err := model.GetDocumentById(id)
	if err != nil {
		h.respondDocumentError(c, err)
		return
	}
	if doc.IsDeleted {
		common.RespErrorCode(c, http.StatusNotFound, ecode.ErrDocumentDeleted, "document has been deleted")
		return
	}

	var fileMetadata *storage.Metadata
	if _, err := os.Stat(doc.FilePath); err == nil {
		if m, err := storage.ExtractMetadata(doc.FilePath); err == nil {
			fileMetadata = m
		}
	}
	common.RespSuccess(c, gin.H{"document": doc, "file_metadata": fileMetadata})
}

// Download streams the original bytes, decompressing to a scratch copy when
// the stored file is gzipped.
func (h *DocumentHandler) Download(c *gin.Context) {
	id, ok := paramId(c, "id")
	if !ok {
		return
	}
	doc, err := model.GetDocumentById(id)
	if err != nil {
		h.respondDocumentError(c, err)
		return
	}
	if doc.IsDeleted {
		common.RespErrorCode(c, http.StatusNotFound, ecode.ErrDocumentDeleted, "document has been deleted")
		return
	}

	path, cleanup, err := service.OpenDocumentForDownload(h.Store, doc)
	if err != nil {
		if errors.Is(err, service.ErrFileMissing) {
			common.RespErrorCode(c, http.StatusNotFound, ecode.ErrFileMissing, "file not found on server")
			return
		}
		common.RespError(c, http.StatusInternalServerError, "failed to prepare download", err)
		return
	}
	defer cleanup()

	if err := doc.RecordDownload(); err != nil {
		common.SysError("failed to record download of document " + strconv.FormatInt(id, 10) + ": " + err.Error())
	}
	c.FileAttachment(path, doc.OriginalFilename)
}

// Preview serves the thumbnail, falling back to the larger preview.
func (h *DocumentHandler) Preview(c *gin.Context) {
	id, ok := paramId(c, "id")
	if !ok {
		return
	}
	doc, err := model.GetDocumentById(id)
	if err != nil {
		h.respondDocumentError(c, err)
		return
	}
	if doc.IsDeleted {
		common.RespErrorCode(c, http.StatusNotFound, ecode.ErrDocumentDeleted, "document has been deleted")
		return
	}

	for _, p := range []string{doc.ThumbnailPath, doc.PreviewPath} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			c.Header("Content-Type", "image/jpeg")
			c.File(p)
			return
		}
	}
	common.RespErrorCode(c, http.StatusNotFound, ecode.ErrNoPreview, "no preview available for this document")
}

// Update applies a partial metadata update.
func (h *DocumentHandler) Update(c *gin.Context) {
	id, ok := paramId(c, "id")
	if !ok {
		return
	}
	var update service.MetadataUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		common.RespError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	doc, err := service.UpdateDocumentMetadata(id, update)
	if err != nil {
		h.respondDocumentError(c, err)
		return
	}
	common.RespSuccessWithMsg(c, "document metadata updated", doc)
}

// Compress manually compresses a stored document.
func (h *DocumentHandler) Compress(c *gin.Context) {
	id, ok := paramId(c, "id")
	if !ok {
		return
	}
	doc, compressed, err := service.CompressDocument(h.Store, id)
	if err != nil {
		h.respondDocumentError(c, err)
		return
	}
	if !compressed {
		common.RespSuccessStr(c, "file is not suitable for compression or already optimally compressed")
		return
	}
	common.RespSuccessWithMsg(c, "document compressed", gin.H{
		"id":                doc.Id,
		"compressed_size":   doc.CompressedSize,
		"compression_ratio": doc.CompressionRatio,
		"space_saved":       doc.FileSize - doc.CompressedSize,
	})
}

// SoftDelete marks a document deleted; the files stay on disk.
func (h *DocumentHandler) SoftDelete(c *gin.Context) {
	id, ok := paramId(c, "id")
	if !ok {
		return
	}
	if _, err := service.SoftDeleteDocument(id, actorId(c)); err != nil {
		h.respondDocumentError(c, err)
		return
	}
	common.RespSuccessStr(c, "document deleted")
}

// PermanentDelete removes the record and unlinks all its files.
func (h *DocumentHandler) PermanentDelete(c *gin.Context) {
	id, ok := paramId(c, "id")
	if !ok {
		return
	}
	if err := service.PermanentDeleteDocument(h.Store, id); err != nil {
		h.respondDocumentError(c, err)
		return
	}
	common.RespSuccessStr(c, "document permanently deleted")
}

// CascadeMeeting deletes every file of a meeting and its activities.
func (h *DocumentHandler) CascadeMeeting(c *gin.Context) {
	id, ok := paramId(c, "id")
	if !ok {
		return
	}
	result, err := service.CascadeDeleteMeetingFiles(h.Store, id, actorId(c))
	if err != nil {
		h.respondDocumentError(c, err)
		return
	}
	common.RespSuccessWithMsg(c, "deleted "+strconv.Itoa(result.DeletedCount)+" files", result)
}

// CascadeMember deletes every file of a member.
func (h *DocumentHandler) CascadeMember(c *gin.Context) {
	id, ok := paramId(c, "id")
	if !ok {
		return
	}
	result, err := service.CascadeDeleteMemberFiles(h.Store, id, actorId(c))
	if err != nil {
		h.respondDocumentError(c, err)
		return
	}
	common.RespSuccessWithMsg(c, "deleted "+strconv.Itoa(result.DeletedCount)+" files", result)
}

// CascadeGroup deletes every file of a group, its meetings and their
// activities.
func (h *DocumentHandler) CascadeGroup(c *gin.Context) {
	id, ok := paramId(c, "id")
	if !ok {
		return
	}
	result, err := service.CascadeDeleteGroupFiles(h.Store, id, actorId(c))
	if err != nil {
		h.respondDocumentError(c, err)
		return
	}
	common.RespSuccessWithMsg(c, "deleted "+strconv.Itoa(result.DeletedCount)+" files", result)
}

// EntityUsage reports storage accounting for one entity.
func (h *DocumentHandler) EntityUsage(c *gin.Context) {
	entityType, entityId, ok := entityParams(c)
	if !ok {
		return
	}
	usage, err := h.Store.EntityUsage(entityType, entityId)
	if err != nil {
		common.RespError(c, http.StatusInternalServerError, "failed to compute storage usage", err)
		return
	}
	common.RespSuccess(c, usage)
}

// TotalUsage reports system-wide storage accounting per entity-type bucket.
func (h *DocumentHandler) TotalUsage(c *gin.Context) {
	usage, err := h.Store.TotalUsage()
	if err != nil {
		common.RespError(c, http.StatusInternalServerError, "failed to compute storage usage", err)
		return
	}
	common.RespSuccess(c, usage)
}

func (h *DocumentHandler) respondDocumentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrDocumentNotFound):
		common.RespErrorCode(c, http.StatusNotFound, ecode.ErrDocumentNotFound, "document not found")
	case errors.Is(err, service.ErrDocumentDeleted):
		common.RespErrorCode(c, http.StatusNotFound, ecode.ErrDocumentDeleted, "document has been deleted")
	case errors.Is(err, service.ErrAlreadyDeleted):
		common.RespErrorCode(c, http.StatusBadRequest, ecode.ErrAlreadyDeleted, "document already deleted")
	case errors.Is(err, service.ErrAlreadyCompressed):
		common.RespErrorCode(c, http.StatusBadRequest, ecode.ErrAlreadyCompressed, "document is already compressed")
	case errors.Is(err, service.ErrEntityNotFound):
		common.RespErrorCode(c, http.StatusNotFound, ecode.ErrEntityNotFound, "entity not found")
	default:
		common.RespError(c, http.StatusInternalServerError, "internal error", err)
	}
}
