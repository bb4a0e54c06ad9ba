package verification

import (
	"context"
	"log"
	"os"

	"sahel/internal/models"
	"sahel/internal/repositories"
	"sahel/internal/services/kyc"
)

// Assessor produces a fresh risk assessment from the applicant's current
// state. The state machine never reuses a stored score for a decision.
type Assessor interface {
	Assess(ctx context.Context, user *models.User) (*models.RiskAssessment, error)
}

// FileAssessor feeds the scoring engine with the applicant's latest
// verified identity document and stored selfie. Missing files degrade the
// relevant sub-scores instead of failing the assessment.
type FileAssessor struct {
	engine *kyc.Engine
	store  repositories.VerificationStore
}

// NewFileAssessor creates an assessor over stored document files.
func NewFileAssessor(engine *kyc.Engine, store repositories.VerificationStore) *FileAssessor {
	return &FileAssessor{engine: engine, store: store}
}

// Assess scores the applicant from current documents and selfie.
func (a *FileAssessor) Assess(ctx context.Context, user *models.User) (*models.RiskAssessment, error) {
	var identity, selfie []byte

	if doc, err := a.store.LatestVerifiedDocument(ctx, user.ID, models.DocumentTypeIdentity); err == nil {
		if data, readErr := os.ReadFile(doc.FilePath); readErr == nil {
			identity = data
		} else {
			log.Printf("identity document %d unreadable, scoring without it: %v", doc.ID, readErr)
		}
	}

	if user.SelfiePath != "" {
		if data, err := os.ReadFile(user.SelfiePath); err == nil {
			selfie = data
		} else {
			log.Printf("selfie for user %d unreadable, scoring without it: %v", user.ID, err)
		}
	}

	return a.engine.Score(ctx, user, identity, selfie), nil
}
