package model

import "time"

// AttachmentType is static reference data resolved by name when a file is uploaded.
type AttachmentType struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Attachment is an uploaded file. It exists on its own and may later be bound to one Request.
// This is a pure domain model with no database-specific dependencies or tags.
type Attachment struct {
	ID             int64          `json:"id"`
	FileName       string         `json:"fileName"`
	FileType       string         `json:"fileType"`
	StoragePath    string         `json:"-"`
	UploadDateTime time.Time      `json:"uploadDateTime"`
	AttachmentType AttachmentType `json:"attachmentType"`
	// RequestID is nil while the attachment is detached.
	RequestID *int64 `json:"requestId,omitempty"`
}

// BoundToOther reports whether the attachment already belongs to a request other than requestID.
// Pass 0 for a request that does not exist yet.
func (a *Attachment) BoundToOther(requestID int64) bool {
	return a.RequestID != nil && *a.RequestID != requestID
}
