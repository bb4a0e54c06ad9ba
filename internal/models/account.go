package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountStatus is the activation state of an account.
//
//	inactive -> pending_activation -> active
//	                               -> requires_meeting -> active
//
// Transitions are performed only by the verification service; illegal
// moves are rejected with an explicit reason.
type AccountStatus string

const (
	AccountStatusInactive          AccountStatus = "inactive"
	AccountStatusPendingActivation AccountStatus = "pending_activation"
	AccountStatusRequiresMeeting   AccountStatus = "requires_meeting"
	AccountStatusActive            AccountStatus = "active"
)

// Account belongs to one applicant. ClientCode is allocated only upon
// activation, formatted YYYY-NNNNN, strictly increasing within a calendar
// year and never reused.
type Account struct {
	gorm.Model
	UserID        uint   `gorm:"index;not null"`
	AccountNumber string `gorm:"uniqueIndex;not null"`
	AccountType   string `gorm:"type:varchar(20);default:'current'"`

	Balance  decimal.Decimal `gorm:"type:numeric(18,2)"`
	Currency string          `gorm:"type:varchar(3);default:'DZD'"`

	Status      AccountStatus `gorm:"type:varchar(20);default:'inactive'"`
	IsActive    bool          `gorm:"default:false"`
	ActivatedAt *time.Time
	ActivatedBy *uint
	ClientCode  *string `gorm:"uniqueIndex"`
}

// Transaction is a ledger entry. The pipeline only reads transactions to
// compute cumulative volume for the signature gate; ledger CRUD itself
// lives outside this service.
type Transaction struct {
	gorm.Model
	AccountID   uint            `gorm:"index;not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Type        string          `gorm:"type:varchar(20);not null"`
	Status      string          `gorm:"type:varchar(20);default:'pending'"`
	Description string
}
