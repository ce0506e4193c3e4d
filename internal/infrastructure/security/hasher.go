package security

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/infrastructure/queue"
)

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// HashObserver receives the duration of each bcrypt operation ("hash" or "verify").
type HashObserver func(op string, d time.Duration)

// BcryptHasher implements ports.PasswordHasher with bcrypt.
type BcryptHasher struct {
	cost     int
	pool     *queue.Pool
	observer HashObserver
}

type HasherOption func(*BcryptHasher)

// WithPool runs every bcrypt call on pool instead of the caller's goroutine.
func WithPool(pool *queue.Pool) HasherOption {
	return func(h *BcryptHasher) {
		h.pool = pool
	}
}

func WithObserver(observer HashObserver) HasherOption {
	return func(h *BcryptHasher) {
		h.observer = observer
	}
}

// NewBcryptHasher returns a hasher using cost, clamped to bcrypt's valid range.
func NewBcryptHasher(cost int, opts ...HasherOption) *BcryptHasher {
	switch {
	case cost == 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	h := &BcryptHasher{cost: cost}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Cost is the effective work factor.
func (h *BcryptHasher) Cost() int { return h.cost }

func (h *BcryptHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", domain.NewValidationError("password must be at most 72 bytes")
	}

	var (
		hash    []byte
		hashErr error
	)
	if err := h.run(ctx, "hash", func() {
		hash, hashErr = bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	}); err != nil {
		return "", err
	}
	if hashErr != nil {
		return "", fmt.Errorf("bcrypt: %w", hashErr)
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	if hash == "" {
		return false, nil
	}

	var cmpErr error
	if err := h.run(ctx, "verify", func() {
		cmpErr = bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	}); err != nil {
		return false, err
	}
	// Mismatch and malformed hash both land here.
	return cmpErr == nil, nil
}

func (h *BcryptHasher) run(ctx context.Context, op string, fn func()) error {
	timed := func() {
		start := time.Now()
		fn()
		if h.observer != nil {
			h.observer(op, time.Since(start))
		}
	}
	if h.pool == nil {
		timed()
		return nil
	}
	return h.pool.Do(ctx, timed)
}
