package models

import "gorm.io/gorm"

// RiskLevel is the coarse classification derived from the weighted
// risk score. It gates the activation path.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// RiskAssessment is a derived, recomputable artifact of one scoring run.
// It is always produced fresh from the current applicant, document and
// selfie state, never patched in place. Rows are kept for audit.
type RiskAssessment struct {
	gorm.Model
	UserID uint `gorm:"index;not null"`

	ScoreDocuments float64
	ScorePersonal  float64
	ScoreBehavior  float64
	ScoreAML       float64
	ScoreIncome    float64
	ScoreContacts  float64

	GlobalScore float64
	RiskLevel   RiskLevel `gorm:"type:varchar(10)"`

	// Flags carries raised screening flags, e.g. a watchlist hit.
	Flags JSON `gorm:"type:jsonb"`
}

// SubScores returns the sub-scores keyed the way the API reports them.
func (a *RiskAssessment) SubScores() map[string]float64 {
	return map[string]float64{
		"documents": a.ScoreDocuments,
		"personal":  a.ScorePersonal,
		"behavior":  a.ScoreBehavior,
		"aml":       a.ScoreAML,
		"income":    a.ScoreIncome,
		"contacts":  a.ScoreContacts,
	}
}
