package models

import (
	"time"
)

// ProposalDocument is the metadata row of an attachment; the bytes live in
// the document store under StoredKey.
type ProposalDocument struct {
	DocumentID       uint       `gorm:"primaryKey;column:document_id" json:"document_id"`
	ProposalID       uint       `gorm:"column:proposal_id;index" json:"proposal_id"`
	DocumentType     string     `gorm:"column:document_type;size:50" json:"document_type"`
	UploadedBy       uint       `gorm:"column:uploaded_by" json:"uploaded_by"`
	OriginalFilename string     `gorm:"column:original_filename" json:"original_filename"`
	StoredKey        string     `gorm:"column:stored_key" json:"-"`
	MimeType         string     `gorm:"column:mime_type" json:"mime_type"`
	FileSize         int64      `gorm:"column:file_size" json:"file_size"`
	UploadedAt       time.Time  `gorm:"column:uploaded_at" json:"uploaded_at"`
	DeleteAt         *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// TableName overrides
func (ProposalDocument) TableName() string {
	return "proposal_documents"
}

func (d *ProposalDocument) GetFileSizeInMB() float64 {
	return float64(d.FileSize) / (1024 * 1024)
}
