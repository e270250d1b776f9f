package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErrors "github.com/campus-hub/clearance-api/pkg/errors"
)

func TestResetCodeRepositoryDegradedWithoutRedis(t *testing.T) {
	repo := NewResetCodeRepository(nil)
	ctx := context.Background()

	err := repo.Save(ctx, "asha@example.com", "123456", time.Minute)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)

	err = repo.Verify(ctx, "asha@example.com", "123456")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)

	err = repo.Consume(ctx, "asha@example.com", "123456")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
