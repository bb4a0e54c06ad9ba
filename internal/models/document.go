package models

import (
	"time"

	"gorm.io/gorm"
)

// DocumentType identifies what an uploaded document is supposed to be.
type DocumentType string

const (
	DocumentTypeIdentity         DocumentType = "identity"
	DocumentTypeProofOfAddress   DocumentType = "proof_of_address"
	DocumentTypeBirthCertificate DocumentType = "birth_certificate"
	DocumentTypeOther            DocumentType = "other"
)

// RequiredDocumentTypes are the types that must be verified before an
// account can be activated.
var RequiredDocumentTypes = []DocumentType{
	DocumentTypeIdentity,
	DocumentTypeProofOfAddress,
	DocumentTypeBirthCertificate,
}

// DocumentStatus is the review state of a document. Verified and Rejected
// are terminal; a rejected document is superseded by a new upload, never
// reopened.
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "pending"
	DocumentStatusVerified DocumentStatus = "verified"
	DocumentStatusRejected DocumentStatus = "rejected"
)

// Final reports whether the status can no longer change.
func (s DocumentStatus) Final() bool {
	return s == DocumentStatusVerified || s == DocumentStatusRejected
}

// Document is one uploaded file belonging to one applicant. Rejected
// documents stay on record as an audit trail.
type Document struct {
	gorm.Model
	UserID            uint         `gorm:"index;not null"`
	Type              DocumentType `gorm:"type:varchar(30);not null"`
	FilePath          string       `gorm:"not null"`
	FileType          string
	Status            DocumentStatus `gorm:"type:varchar(10);default:'pending'"`
	VerificationNotes string
	VerifiedBy        *uint
	VerifiedAt        *time.Time
	ExtractedData     JSON `gorm:"type:jsonb"`
}
