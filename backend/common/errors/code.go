package errors

// Generic error codes
const (
	ErrInternalServer = "ERR_INTERNAL_SERVER"
	ErrInvalidParam   = "ERR_INVALID_PARAM"
)

// Document error codes
const (
	ErrDocumentNotFound  = "ERR_DOCUMENT_NOT_FOUND"
	ErrDocumentDeleted   = "ERR_DOCUMENT_DELETED"
	ErrAlreadyDeleted    = "ERR_ALREADY_DELETED"
	ErrAlreadyCompressed = "ERR_ALREADY_COMPRESSED"
	ErrNoPreview         = "ERR_NO_PREVIEW"
	ErrFileMissing       = "ERR_FILE_MISSING"
)

// Upload error codes
const (
	ErrNoFilesProvided   = "ERR_NO_FILES_PROVIDED"
	ErrFileTypeForbidden = "ERR_FILE_TYPE_FORBIDDEN"
	ErrFileTooLarge      = "ERR_FILE_TOO_LARGE"
)

// Entity error codes
const (
	ErrEntityNotFound    = "ERR_ENTITY_NOT_FOUND"
	ErrUnknownEntityType = "ERR_UNKNOWN_ENTITY_TYPE"
)
