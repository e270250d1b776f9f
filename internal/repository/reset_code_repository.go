package repository

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/campus-hub/clearance-api/pkg/errors"
)

// ResetCodeRepository stores one-time password reset codes in Redis. The TTL
// is enforced by Redis itself; a consumed code is deleted so it cannot be
// replayed.
type ResetCodeRepository struct {
	client *redis.Client
}

// NewResetCodeRepository constructs the repository.
func NewResetCodeRepository(client *redis.Client) *ResetCodeRepository {
	return &ResetCodeRepository{client: client}
}

func resetCodeKey(email string) string {
	return fmt.Sprintf("reset_code:%s", email)
}

// unavailable covers the degraded mode where the process started without
// redis. Reset codes have nowhere to live, so the flow reports an error
// instead of panicking.
func (r *ResetCodeRepository) unavailable() error {
	if r.client == nil {
		return appErrors.Clone(appErrors.ErrInternal, "password reset is temporarily unavailable")
	}
	return nil
}

// Save stores the code for the email, replacing any outstanding one.
func (r *ResetCodeRepository) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := r.unavailable(); err != nil {
		return err
	}
	if err := r.client.Set(ctx, resetCodeKey(email), code, ttl).Err(); err != nil {
		return fmt.Errorf("save reset code: %w", err)
	}
	return nil
}

// Verify checks the code without consuming it.
func (r *ResetCodeRepository) Verify(ctx context.Context, email, code string) error {
	if err := r.unavailable(); err != nil {
		return err
	}
	stored, err := r.client.Get(ctx, resetCodeKey(email)).Result()
	if err != nil {
		if err == redis.Nil {
			return appErrors.Clone(appErrors.ErrValidation, "invalid or expired reset code")
		}
		return fmt.Errorf("load reset code: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return appErrors.Clone(appErrors.ErrValidation, "invalid or expired reset code")
	}
	return nil
}

// Consume verifies the code and deletes it so it is single use.
func (r *ResetCodeRepository) Consume(ctx context.Context, email, code string) error {
	if err := r.Verify(ctx, email, code); err != nil {
		return err
	}
	if err := r.client.Del(ctx, resetCodeKey(email)).Err(); err != nil {
		return fmt.Errorf("consume reset code: %w", err)
	}
	return nil
}
