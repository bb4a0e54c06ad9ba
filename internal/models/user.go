package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UserRole classifies actors in the pipeline.
type UserRole string

const (
	RoleUser     UserRole = "user"
	RoleAdmin    UserRole = "admin"
	RoleDirector UserRole = "director"
)

// User is an applicant going through onboarding, or a bank-side actor
// reviewing them. Applicant rows are never deleted while a pipeline is open.
type User struct {
	gorm.Model
	Username     string   `gorm:"uniqueIndex;not null"`
	Email        string   `gorm:"uniqueIndex;not null"`
	PasswordHash string   `json:"-"`
	Role         UserRole `gorm:"type:varchar(20);default:'user'"`

	FirstName  string
	LastName   string
	Phone      string
	Revenue    decimal.Decimal `gorm:"type:numeric(14,2)"`
	Profession string
	Employer   string

	BirthDate  *time.Time `gorm:"type:date"`
	BirthPlace string
	Nationality string

	FatherFirstName string
	MotherFirstName string
	MotherLastName  string

	AddressStreet     string
	AddressCity       string
	AddressWilaya     string
	AddressPostalCode string

	// SelfiePath references the stored selfie used for face matching.
	SelfiePath string

	RiskLevel         RiskLevel       `gorm:"type:varchar(10);default:'low'"`
	VerificationScore float64         `gorm:"default:0"`
	TotalVolume       decimal.Decimal `gorm:"type:numeric(18,2)"`

	TwoFactorEnabled bool `gorm:"default:false"`

	Documents []Document `gorm:"foreignKey:UserID"`
}

// Age returns the applicant's age in full years. ok is false when no
// birth date has been declared.
func (u *User) Age() (int, bool) {
	if u.BirthDate == nil {
		return 0, false
	}
	now := time.Now()
	age := now.Year() - u.BirthDate.Year()
	if now.Month() < u.BirthDate.Month() ||
		(now.Month() == u.BirthDate.Month() && now.Day() < u.BirthDate.Day()) {
		age--
	}
	return age, true
}
