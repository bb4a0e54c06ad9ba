package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"sahel/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAccountNotFound is returned when an applicant has no account row.
var ErrAccountNotFound = errors.New("account not found")

// VerificationStore is the storage surface of the activation state
// machine. Transaction yields a store bound to one database transaction;
// the activation decision runs entirely inside it so the verified-document
// check and the client-code allocation cannot race with concurrent
// reviewer actions.
type VerificationStore interface {
	Transaction(ctx context.Context, fn func(VerificationStore) error) error

	UserByID(ctx context.Context, id uint) (*models.User, error)
	// AccountByUser locks the account row for update when called inside
	// a transaction.
	AccountByUser(ctx context.Context, userID uint) (*models.Account, error)
	SaveAccount(ctx context.Context, acct *models.Account) error
	SaveUser(ctx context.Context, user *models.User) error

	// VerifiedDocumentTypes returns the set of document types the
	// applicant currently has in verified status.
	VerifiedDocumentTypes(ctx context.Context, userID uint) (map[models.DocumentType]bool, error)
	// LatestVerifiedDocument returns the newest verified document of one
	// type, used to feed the scoring engine.
	LatestVerifiedDocument(ctx context.Context, userID uint, t models.DocumentType) (*models.Document, error)

	// MaxClientSequence returns the highest sequence number already
	// issued for the calendar year, 0 when none exist.
	MaxClientSequence(ctx context.Context, year int) (int, error)

	CreateAppointment(ctx context.Context, appt *models.Appointment) error
	CreateAssessment(ctx context.Context, a *models.RiskAssessment) error
}

type verificationStore struct {
	db   *gorm.DB
	inTx bool
}

// NewVerificationStore creates the gorm-backed verification store.
func NewVerificationStore(db *gorm.DB) VerificationStore {
	return &verificationStore{db: db}
}

func (s *verificationStore) Transaction(ctx context.Context, fn func(VerificationStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&verificationStore{db: tx, inTx: true})
	})
}

func (s *verificationStore) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *verificationStore) AccountByUser(ctx context.Context, userID uint) (*models.Account, error) {
	var acct models.Account
	q := s.db.WithContext(ctx)
	if s.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.Where("user_id = ?", userID).First(&acct).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acct, nil
}

func (s *verificationStore) SaveAccount(ctx context.Context, acct *models.Account) error {
	return s.db.WithContext(ctx).Save(acct).Error
}

func (s *verificationStore) SaveUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}

func (s *verificationStore) VerifiedDocumentTypes(ctx context.Context, userID uint) (map[models.DocumentType]bool, error) {
	var types []models.DocumentType
	err := s.db.WithContext(ctx).Model(&models.Document{}).
		Where("user_id = ? AND status = ?", userID, models.DocumentStatusVerified).
		Distinct().
		Pluck("type", &types).Error
	if err != nil {
		return nil, err
	}
	set := make(map[models.DocumentType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set, nil
}

func (s *verificationStore) LatestVerifiedDocument(ctx context.Context, userID uint, t models.DocumentType) (*models.Document, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND type = ? AND status = ?", userID, t, models.DocumentStatusVerified).
		Order("created_at DESC").
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (s *verificationStore) MaxClientSequence(ctx context.Context, year int) (int, error) {
	prefix := fmt.Sprintf("%d-", year)
	var code string
	err := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("client_code LIKE ?", prefix+"%").
		Order("client_code DESC").
		Limit(1).
		Pluck("client_code", &code).Error
	if err != nil {
		return 0, err
	}
	if code == "" {
		return 0, nil
	}
	seq, err := strconv.Atoi(strings.TrimPrefix(code, prefix))
	if err != nil {
		return 0, fmt.Errorf("malformed client code %q: %w", code, err)
	}
	return seq, nil
}

func (s *verificationStore) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	return s.db.WithContext(ctx).Create(appt).Error
}

func (s *verificationStore) CreateAssessment(ctx context.Context, a *models.RiskAssessment) error {
	return s.db.WithContext(ctx).Create(a).Error
}
