package models

import (
	"time"

	"gorm.io/gorm"
)

// ESignature is an e-signature request for one applicant. At most one
// request per applicant may have a null SignedAt; a partial unique index
// created at migration time enforces this against concurrent creators.
// Signing is terminal.
type ESignature struct {
	gorm.Model
	UserID        uint   `gorm:"index;not null"`
	SignatureData string `gorm:"type:text"`
	SignedAt      *time.Time
}

// Signed reports whether the request has reached its terminal state.
func (s *ESignature) Signed() bool { return s.SignedAt != nil }
