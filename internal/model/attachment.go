package model

import "time"

// Attachment represents a file uploaded to an issue. The file bytes live
// behind the attachment service; the record only carries metadata.
type Attachment struct {
	ID          string    `json:"id"`
	IssueID     string    `json:"issue_id"`
	FileName    string    `json:"file_name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	UploaderID  string    `json:"uploader_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RecordID implements the store record interface.
func (a Attachment) RecordID() string { return a.ID }

// UploadStatus is the ephemeral progress record for an in-flight upload.
// It is keyed by a client-generated temporary id and exists only between
// the start of a createAttachment call and its settlement, success or
// failure.
type UploadStatus struct {
	TempID   string `json:"temp_id"`
	IssueID  string `json:"issue_id"`
	FileName string `json:"file_name"`
	Size     int64  `json:"size"`
	Progress int    `json:"progress"` // 0-100
}
