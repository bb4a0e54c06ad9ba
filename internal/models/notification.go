package models

import (
	"time"

	"gorm.io/gorm"
)

// Process types tracked by ProcessNotification.
const (
	ProcessRegistration      = "registration"
	ProcessDocumentUpload    = "document_upload"
	ProcessTwoFactorSetup    = "2fa_setup"
	ProcessESignature        = "e_signature"
	ProcessAccountActivation = "account_activation"
	ProcessAppointment       = "appointment"
)

// ProcessNotification statuses.
const (
	NotificationStatusPending   = "pending"
	NotificationStatusSent      = "sent"
	NotificationStatusCompleted = "completed"
)

// ProcessNotification tracks an incomplete multi-step process for one
// applicant. The reminder scheduler nudges it by email; only an explicit
// completion signal from the owning step marks it completed.
type ProcessNotification struct {
	gorm.Model
	UserID           uint   `gorm:"index;not null"`
	ProcessType      string `gorm:"type:varchar(50);not null"`
	Status           string `gorm:"type:varchar(20);not null;default:'pending'"`
	LastStep         string `gorm:"type:varchar(50);not null"`
	ReminderCount    int    `gorm:"default:0"`
	LastReminderSent *time.Time
}

// ApplicationProgress is one row per pipeline step per applicant. Rows are
// created when a step starts, updated as it advances, never deleted.
type ApplicationProgress struct {
	gorm.Model
	UserID      uint   `gorm:"index;not null"`
	Step        string `gorm:"type:varchar(50);not null"`
	Status      string `gorm:"type:varchar(20);default:'pending'"`
	Notes       string `gorm:"type:text"`
	CompletedAt *time.Time
}

// Appointment is an in-person meeting scheduled for a medium or high risk
// applicant before activation.
type Appointment struct {
	gorm.Model
	UserID   uint `gorm:"index;not null"`
	AdminID  *uint
	DateTime time.Time `gorm:"not null"`
	Status   string    `gorm:"type:varchar(20);default:'pending'"`
	Notes    string
}
