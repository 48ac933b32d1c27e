package repository

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_cart/checkout-pipeline/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	repo, err := NewRepository(creds)
	require.NoError(t, err)

	err = repo.RunMigrations(creds)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func newAttempt(key string) *CheckoutAttempt {
	return &CheckoutAttempt{
		ID:             uuid.NewString(),
		IdempotencyKey: key,
		UserID:         "user-1",
		TotalAmount:    decimal.RequireFromString("69.00"),
	}
}

func TestGetAttemptByIdempotencyKey_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	a, err := repo.GetAttemptByIdempotencyKey(context.Background(), "nonexistent-key")

	assert.ErrorIs(t, err, ErrIdempotencyKeyNotFound)
	assert.Nil(t, a)
}

func TestRecordSubmitting_ThenSucceeded(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	key := uuid.NewString()

	require.NoError(t, repo.RecordSubmitting(ctx, newAttempt(key)))

	a, err := repo.GetAttemptByIdempotencyKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionSubmitting, a.Status)
	assert.Equal(t, 1, a.SubmitCount)
	assert.True(t, decimal.RequireFromString("69.00").Equal(a.TotalAmount))
	assert.Nil(t, a.OrderID)

	require.NoError(t, repo.MarkSucceeded(ctx, key, "order-42"))

	a, err = repo.GetAttemptByIdempotencyKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionSucceeded, a.Status)
	require.NotNil(t, a.OrderID)
	assert.Equal(t, "order-42", *a.OrderID)
}

func TestRecordSubmitting_RetryBumpsCount(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	key := uuid.NewString()

	require.NoError(t, repo.RecordSubmitting(ctx, newAttempt(key)))
	require.NoError(t, repo.MarkFailed(ctx, key, "order service unavailable"))

	a, err := repo.GetAttemptByIdempotencyKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionFailed, a.Status)
	require.NotNil(t, a.LastError)
	assert.Equal(t, "order service unavailable", *a.LastError)

	// retry under the same key reuses the row
	require.NoError(t, repo.RecordSubmitting(ctx, newAttempt(key)))

	a, err = repo.GetAttemptByIdempotencyKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionSubmitting, a.Status)
	assert.Equal(t, 2, a.SubmitCount)
	assert.Nil(t, a.LastError)
}

func TestSucceededAttemptIsNotReopened(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()
	key := uuid.NewString()

	require.NoError(t, repo.RecordSubmitting(ctx, newAttempt(key)))
	require.NoError(t, repo.MarkSucceeded(ctx, key, "order-7"))

	require.NoError(t, repo.RecordSubmitting(ctx, newAttempt(key)))
	err := repo.MarkFailed(ctx, key, "late failure")
	assert.ErrorIs(t, err, ErrIdempotencyKeyNotFound)

	a, err := repo.GetAttemptByIdempotencyKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionSucceeded, a.Status)
	assert.Equal(t, 1, a.SubmitCount)
}

func TestMarkSucceeded_UnknownKey(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	err := repo.MarkSucceeded(context.Background(), "missing", "order-1")
	assert.ErrorIs(t, err, ErrIdempotencyKeyNotFound)
}
