// Package cache provides a Redis-backed cache for applicant lookups and
// the latest risk assessments. Caching is best effort: a cache error never
// fails the request that triggered it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sahel/internal/models"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when a key is absent.
var ErrCacheMiss = errors.New("cache miss")

// CacheService wraps a Redis client with JSON marshalling and a default TTL.
type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCacheService creates a cache service. A nil client yields a disabled
// service whose operations are no-ops.
func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{client: client, ttl: defaultTTL}
}

func (s *CacheService) enabled() bool { return s != nil && s.client != nil }

// Set stores a value under the default TTL.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	if !s.enabled() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, s.ttl).Err()
}

// Get loads a value into dest. Returns ErrCacheMiss when absent.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	if !s.enabled() {
		return ErrCacheMiss
	}
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get cache value: %w", err)
	}
	return json.Unmarshal(data, dest)
}

// Delete removes keys.
func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if !s.enabled() {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// FlushAll clears the cache.
func (s *CacheService) FlushAll(ctx context.Context) error {
	if !s.enabled() {
		return nil
	}
	return s.client.FlushAll(ctx).Err()
}

// Close releases the underlying client.
func (s *CacheService) Close() error {
	if !s.enabled() {
		return nil
	}
	return s.client.Close()
}

func userKey(id uint) string          { return fmt.Sprintf("user:id:%d", id) }
func assessmentKey(userID uint) string { return fmt.Sprintf("assessment:user:%d", userID) }

// CacheUser stores an applicant by id.
func (s *CacheService) CacheUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("cannot cache nil user")
	}
	return s.Set(ctx, userKey(user.ID), user)
}

// GetUser loads a cached applicant.
func (s *CacheService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.Get(ctx, userKey(id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// InvalidateUser drops a cached applicant.
func (s *CacheService) InvalidateUser(ctx context.Context, id uint) error {
	return s.Delete(ctx, userKey(id))
}

// CacheAssessment stores the latest risk assessment for an applicant.
func (s *CacheService) CacheAssessment(ctx context.Context, a *models.RiskAssessment) error {
	if a == nil {
		return errors.New("cannot cache nil assessment")
	}
	return s.Set(ctx, assessmentKey(a.UserID), a)
}

// GetAssessment loads the cached latest assessment for an applicant.
func (s *CacheService) GetAssessment(ctx context.Context, userID uint) (*models.RiskAssessment, error) {
	var a models.RiskAssessment
	if err := s.Get(ctx, assessmentKey(userID), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// InvalidateAssessment drops the cached assessment after a rescoring.
func (s *CacheService) InvalidateAssessment(ctx context.Context, userID uint) error {
	return s.Delete(ctx, assessmentKey(userID))
}
