// Package verification advances documents and accounts through their
// lifecycles. Document decisions are reviewer-only and terminal; the
// activation decision re-checks the verified document set and recomputes
// the risk assessment inside one database transaction.
package verification

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sahel/internal/models"
	"sahel/internal/repositories"
	"sahel/internal/services/extract"
	"sahel/internal/services/notification"
	"sahel/internal/services/quality"
	"sahel/internal/services/signature"

	"github.com/google/uuid"
)

// Activation outcomes reported to the API.
const (
	OutcomeActive          = "active"
	OutcomeRequiresMeeting = "requires_meeting"
)

// ActivationResult is the outcome of one activation attempt.
type ActivationResult struct {
	Status     string           `json:"status"`
	ClientCode string           `json:"client_code,omitempty"`
	RiskLevel  models.RiskLevel `json:"risk_level"`
}

// Service is the verification state machine.
type Service struct {
	store         repositories.VerificationStore
	docs          repositories.DocumentRepository
	progress      repositories.ProgressRepository
	gate          *quality.Gate
	extractor     *extract.Extractor
	assessor      Assessor
	notifications *notification.Service
	signatures    *signature.Service
	uploadDir     string

	now func() time.Time
}

// NewService creates the verification service.
func NewService(
	store repositories.VerificationStore,
	docs repositories.DocumentRepository,
	progress repositories.ProgressRepository,
	gate *quality.Gate,
	extractor *extract.Extractor,
	assessor Assessor,
	notifications *notification.Service,
	signatures *signature.Service,
	uploadDir string,
) *Service {
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	return &Service{
		store:         store,
		docs:          docs,
		progress:      progress,
		gate:          gate,
		extractor:     extractor,
		assessor:      assessor,
		notifications: notifications,
		signatures:    signatures,
		uploadDir:     uploadDir,
		now:           time.Now,
	}
}

// SubmitDocument runs the upload pipeline: quality gate, field
// extraction, then a new pending Document row. Gate and extraction
// failures notify the applicant and change nothing else; a re-upload
// after a rejection always creates a new row, the old one stays as an
// audit trail.
func (s *Service) SubmitDocument(ctx context.Context, userID uint, docType models.DocumentType, filename string, data []byte) (*models.Document, map[string]string, error) {
	fileType := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))

	if res := s.gate.Check(data); !res.OK {
		s.notifications.NotifyStatus(ctx, userID,
			"Problème de qualité de document",
			fmt.Sprintf("<p>Votre document (%s) n'a pas pu être accepté : %s. Merci de le déposer à nouveau.</p>", docType, res.Reason))
		return nil, nil, &QualityError{Reason: res.Reason}
	}

	fields, err := s.extractor.Extract(ctx, data, fileType, docType)
	if err != nil {
		s.notifications.NotifyStatus(ctx, userID,
			"Problème de traitement de document",
			fmt.Sprintf("<p>Votre document (%s) n'a pas pu être traité. Merci de le déposer à nouveau.</p>", docType))
		return nil, nil, &ExtractionError{Err: err}
	}

	path, err := s.storeFile(data, fileType)
	if err != nil {
		return nil, nil, fmt.Errorf("storing document file: %w", err)
	}

	extracted := models.JSON{}
	for k, v := range fields {
		extracted[k] = v
	}
	doc := &models.Document{
		UserID:        userID,
		Type:          docType,
		FilePath:      path,
		FileType:      fileType,
		Status:        models.DocumentStatusPending,
		ExtractedData: extracted,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, nil, fmt.Errorf("saving document: %w", err)
	}

	if err := s.progress.Track(ctx, userID, "document_upload", "in_progress", string(docType)); err != nil {
		return nil, nil, err
	}
	if _, err := s.notifications.StartProcess(ctx, userID, models.ProcessDocumentUpload, "document_upload"); err != nil {
		return nil, nil, err
	}
	return doc, fields, nil
}

func (s *Service) storeFile(data []byte, fileType string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", err
	}
	name := uuid.New().String()
	if fileType != "" {
		name += "." + fileType
	}
	path := filepath.Join(s.uploadDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ReviewDocument records a reviewer's decision. Pending is the only state
// a decision can leave; verified and rejected are terminal.
func (s *Service) ReviewDocument(ctx context.Context, reviewer *models.UserClaims, docID uint, decision models.DocumentStatus, notes string) (*models.Document, error) {
	if !reviewer.IsReviewer() {
		return nil, ErrUnauthorized
	}
	if decision != models.DocumentStatusVerified && decision != models.DocumentStatusRejected {
		return nil, ErrInvalidDecision
	}

	doc, err := s.docs.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.Status.Final() {
		return nil, ErrDocumentFinalized
	}

	now := s.now()
	doc.Status = decision
	doc.VerificationNotes = notes
	doc.VerifiedBy = &reviewer.UserID
	doc.VerifiedAt = &now
	if err := s.docs.Update(ctx, doc); err != nil {
		return nil, err
	}

	s.notifications.NotifyStatus(ctx, doc.UserID,
		"Mise à jour de vérification de document",
		fmt.Sprintf("<p>Votre document (%s) a été %s.</p>", doc.Type, decisionLabel(decision)))

	if decision == models.DocumentStatusVerified {
		if done, err := s.allRequiredVerified(ctx, doc.UserID); err == nil && done {
			if err := s.progress.Track(ctx, doc.UserID, "document_upload", "completed", ""); err != nil {
				return nil, err
			}
			if err := s.notifications.CompleteProcess(ctx, doc.UserID, models.ProcessDocumentUpload); err != nil {
				return nil, err
			}
		}
	}
	return doc, nil
}

func decisionLabel(d models.DocumentStatus) string {
	if d == models.DocumentStatusVerified {
		return "vérifié"
	}
	return "rejeté"
}

func (s *Service) allRequiredVerified(ctx context.Context, userID uint) (bool, error) {
	verified, err := s.store.VerifiedDocumentTypes(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, t := range models.RequiredDocumentTypes {
		if !verified[t] {
			return false, nil
		}
	}
	return true, nil
}

// Activate runs the activation decision for an applicant. The document
// check, scoring and code allocation happen inside one transaction with
// the account row locked, so concurrent reviewer actions cannot activate
// on a stale document set or duplicate a client code.
//
// Low risk activates immediately with a freshly allocated client code.
// Medium and high risk move to requires_meeting, which only a director
// re-running this step can activate.
func (s *Service) Activate(ctx context.Context, actor *models.UserClaims, userID uint, meetingDate *time.Time) (*ActivationResult, error) {
	if !actor.IsReviewer() {
		return nil, ErrUnauthorized
	}

	var result *ActivationResult
	var applicant *models.User
	var signatureRequired bool

	err := s.store.Transaction(ctx, func(tx repositories.VerificationStore) error {
		user, err := tx.UserByID(ctx, userID)
		if err != nil {
			return err
		}
		applicant = user

		acct, err := tx.AccountByUser(ctx, userID)
		if err != nil {
			return err
		}
		if acct.Status == models.AccountStatusActive {
			return ErrAlreadyActive
		}

		verified, err := tx.VerifiedDocumentTypes(ctx, userID)
		if err != nil {
			return err
		}
		for _, t := range models.RequiredDocumentTypes {
			if !verified[t] {
				return ErrMissingDocuments
			}
		}

		directorOverride := acct.Status == models.AccountStatusRequiresMeeting && actor.IsDirector()
		acct.Status = models.AccountStatusPendingActivation

		assessment, err := s.assessor.Assess(ctx, user)
		if err != nil {
			return fmt.Errorf("computing risk assessment: %w", err)
		}
		if err := tx.CreateAssessment(ctx, assessment); err != nil {
			return err
		}
		user.RiskLevel = assessment.RiskLevel
		user.VerificationScore = assessment.GlobalScore
		if err := tx.SaveUser(ctx, user); err != nil {
			return err
		}

		if assessment.RiskLevel == models.RiskLevelLow || directorOverride {
			code, err := s.allocateClientCode(ctx, tx)
			if err != nil {
				return err
			}
			now := s.now()
			acct.Status = models.AccountStatusActive
			acct.IsActive = true
			acct.ActivatedAt = &now
			acct.ActivatedBy = &actor.UserID
			acct.ClientCode = &code
			if err := tx.SaveAccount(ctx, acct); err != nil {
				return err
			}
			result = &ActivationResult{Status: OutcomeActive, ClientCode: code, RiskLevel: assessment.RiskLevel}
			return nil
		}

		if meetingDate == nil {
			return ErrMeetingRequired
		}
		acct.Status = models.AccountStatusRequiresMeeting
		if err := tx.SaveAccount(ctx, acct); err != nil {
			return err
		}
		if err := tx.CreateAppointment(ctx, &models.Appointment{
			UserID:   userID,
			AdminID:  &actor.UserID,
			DateTime: *meetingDate,
			Status:   "pending",
			Notes:    "account activation meeting",
		}); err != nil {
			return err
		}
		result = &ActivationResult{Status: OutcomeRequiresMeeting, RiskLevel: assessment.RiskLevel}
		return nil
	})
	if err != nil {
		return nil, err
	}

	signatureRequired = s.signatures.RequiredFor(applicant)

	switch result.Status {
	case OutcomeActive:
		if signatureRequired {
			if _, err := s.signatures.Request(ctx, userID); err != nil {
				return nil, err
			}
			if _, err := s.notifications.StartProcess(ctx, userID, models.ProcessAccountActivation, "e_signature_required"); err != nil {
				return nil, err
			}
		} else {
			if err := s.notifications.CompleteProcess(ctx, userID, models.ProcessAccountActivation); err != nil {
				return nil, err
			}
		}
		s.notifications.NotifyStatus(ctx, userID,
			"Compte activé",
			fmt.Sprintf("<p>Votre compte a été activé. Votre code client est %s.</p>", result.ClientCode))
	case OutcomeRequiresMeeting:
		if _, err := s.notifications.StartProcess(ctx, userID, models.ProcessAccountActivation, "meeting_required"); err != nil {
			return nil, err
		}
		s.notifications.NotifyStatus(ctx, userID,
			"Rendez-vous d'activation de compte",
			fmt.Sprintf("<p>Merci de vous présenter en agence le %s pour finaliser l'activation de votre compte.</p>", meetingDate.Format("02/01/2006 15:04")))
	}
	return result, nil
}

// allocateClientCode issues the next YYYY-NNNNN code for the current
// year. Runs inside the activation transaction; sequences are never
// reused even when an attempt is retried after a failure, because the
// failed transaction never committed a code.
func (s *Service) allocateClientCode(ctx context.Context, tx repositories.VerificationStore) (string, error) {
	year := s.now().Year()
	max, err := tx.MaxClientSequence(ctx, year)
	if err != nil {
		return "", fmt.Errorf("allocating client code: %w", err)
	}
	return fmt.Sprintf("%d-%05d", year, max+1), nil
}

// Progress returns the applicant's pipeline progress rows.
func (s *Service) Progress(ctx context.Context, userID uint) ([]models.ApplicationProgress, error) {
	return s.progress.ListByUser(ctx, userID)
}

// IsQualityError reports whether err is a quality gate failure.
func IsQualityError(err error) bool {
	var qe *QualityError
	return errors.As(err, &qe)
}

// IsExtractionError reports whether err is an extraction failure.
func IsExtractionError(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}
