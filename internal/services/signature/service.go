// Package signature implements the e-signature gate. Each applicant has
// at most one open request at a time; signing is terminal. Above the
// configured volume threshold, activation is only complete once signed.
package signature

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sahel/internal/config"
	"sahel/internal/models"
	"sahel/internal/repositories"
	"sahel/internal/services/notification"

	"gorm.io/gorm"
)

var (
	// ErrNoPendingRequest is returned by Sign when there is nothing to sign.
	ErrNoPendingRequest = errors.New("no pending signature request")
	// ErrNoRequest is returned by Status when no request was ever created.
	ErrNoRequest = errors.New("no signature request")
)

// Status values reported to the API.
const (
	StatusNoRequest = "no_request"
	StatusPending   = "pending"
	StatusSigned    = "signed"
)

// RequestResult reports a creation attempt. AlreadyPending is true when
// an existing open request was returned instead of a new one.
type RequestResult struct {
	Signature      *models.ESignature
	AlreadyPending bool
}

// StatusResult is the signature state of one applicant.
type StatusResult struct {
	HasSignature bool       `json:"has_signature"`
	SignedAt     *time.Time `json:"signed_at"`
	Status       string     `json:"status"`
}

// Service is the e-signature gate.
type Service struct {
	repo          repositories.SignatureRepository
	notifications *notification.Service
	cfg           config.SignatureConfig
}

// NewService creates a signature service.
func NewService(repo repositories.SignatureRepository, notifications *notification.Service, cfg config.SignatureConfig) *Service {
	return &Service{repo: repo, notifications: notifications, cfg: cfg}
}

// Request creates an e-signature request for the applicant. If an open
// request already exists it is returned unchanged with AlreadyPending
// set; this is the gate's core invariant, backed by the partial unique
// index for concurrent creators.
func (s *Service) Request(ctx context.Context, userID uint) (*RequestResult, error) {
	if existing, err := s.repo.Open(ctx, userID); err == nil {
		return &RequestResult{Signature: existing, AlreadyPending: true}, nil
	} else if !errors.Is(err, repositories.ErrNoOpenSignature) {
		return nil, err
	}

	sig := &models.ESignature{UserID: userID}
	if err := s.repo.Create(ctx, sig); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race; the winner's request is the open one.
			winner, openErr := s.repo.Open(ctx, userID)
			if openErr != nil {
				return nil, openErr
			}
			return &RequestResult{Signature: winner, AlreadyPending: true}, nil
		}
		return nil, fmt.Errorf("creating signature request: %w", err)
	}

	if _, err := s.notifications.StartProcess(ctx, userID, models.ProcessESignature, "requested"); err != nil {
		return nil, err
	}
	return &RequestResult{Signature: sig}, nil
}

// Sign stamps the applicant's open request with the signature payload.
// The request reaches its terminal state; there is no un-signing.
func (s *Service) Sign(ctx context.Context, userID uint, payload map[string]interface{}) (*models.ESignature, error) {
	sig, err := s.repo.Open(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNoOpenSignature) {
			return nil, ErrNoPendingRequest
		}
		return nil, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding signature payload: %w", err)
	}

	now := time.Now()
	sig.SignatureData = string(data)
	sig.SignedAt = &now
	if err := s.repo.Update(ctx, sig); err != nil {
		return nil, err
	}

	if err := s.notifications.CompleteProcess(ctx, userID, models.ProcessESignature); err != nil {
		return nil, err
	}
	return sig, nil
}

// Status reports the applicant's signature state.
func (s *Service) Status(ctx context.Context, userID uint) (*StatusResult, error) {
	sig, err := s.repo.LatestByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNoOpenSignature) {
			return &StatusResult{Status: StatusNoRequest}, nil
		}
		return nil, err
	}

	result := &StatusResult{HasSignature: true, SignedAt: sig.SignedAt, Status: StatusPending}
	if sig.Signed() {
		result.Status = StatusSigned
	}
	return result, nil
}

// Verified reports whether the applicant has completed a signature.
func (s *Service) Verified(ctx context.Context, userID uint) (bool, error) {
	sig, err := s.repo.LatestByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNoOpenSignature) {
			return false, nil
		}
		return false, err
	}
	return sig.Signed(), nil
}

// RequiredFor reports whether full activation for this applicant is gated
// on a signed request, based on cumulative transaction volume.
func (s *Service) RequiredFor(user *models.User) bool {
	return user.TotalVolume.GreaterThan(s.cfg.VolumeThreshold)
}
