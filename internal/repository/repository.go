package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/checkout-pipeline/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// CheckoutAttempt is one journal row per idempotency key.
type CheckoutAttempt struct {
	ID             string
	IdempotencyKey string
	UserID         string
	Status         domain.SubmissionState
	OrderID        *string
	TotalAmount    decimal.Decimal
	LastError      *string
	SubmitCount    int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) GetAttemptByIdempotencyKey(ctx context.Context, key string) (*CheckoutAttempt, error) {
	query := `SELECT id, idempotency_key, user_id, status, order_id, total_amount, last_error, submit_count, created_at, updated_at
		FROM checkout_attempts WHERE idempotency_key = $1`

	var (
		a      CheckoutAttempt
		status string
		total  string
	)
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&a.ID, &a.IdempotencyKey, &a.UserID, &status, &a.OrderID, &total, &a.LastError, &a.SubmitCount, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIdempotencyKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select checkout attempt: %w", err)
	}
	a.Status = domain.SubmissionState(status)
	a.TotalAmount, err = decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("parse total_amount %q: %w", total, err)
	}
	return &a, nil
}

// RecordSubmitting inserts the attempt or, for a retry of the same key, flips it back to
// SUBMITTING and bumps submit_count. A succeeded attempt is never reopened.
func (r *Repository) RecordSubmitting(ctx context.Context, attempt *CheckoutAttempt) error {
	query := `INSERT INTO checkout_attempts (id, idempotency_key, user_id, status, total_amount, submit_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, NOW(), NOW())
		ON CONFLICT (idempotency_key) DO UPDATE SET
			status = EXCLUDED.status,
			total_amount = EXCLUDED.total_amount,
			submit_count = checkout_attempts.submit_count + 1,
			last_error = NULL,
			updated_at = NOW()
		WHERE checkout_attempts.status <> $6`

	_, err := r.db.ExecContext(ctx, query,
		attempt.ID,
		attempt.IdempotencyKey,
		attempt.UserID,
		string(domain.SubmissionSubmitting),
		attempt.TotalAmount.String(),
		string(domain.SubmissionSucceeded))
	if err != nil {
		return fmt.Errorf("record checkout attempt: %w", err)
	}
	return nil
}

func (r *Repository) MarkSucceeded(ctx context.Context, key, orderID string) error {
	query := `UPDATE checkout_attempts SET status = $1, order_id = $2, last_error = NULL, updated_at = NOW()
		WHERE idempotency_key = $3`
	return r.update(ctx, query, string(domain.SubmissionSucceeded), orderID, key)
}

func (r *Repository) MarkFailed(ctx context.Context, key, reason string) error {
	query := `UPDATE checkout_attempts SET status = $1, last_error = $2, updated_at = NOW()
		WHERE idempotency_key = $3 AND status <> $4`
	return r.update(ctx, query, string(domain.SubmissionFailed), reason, key, string(domain.SubmissionSucceeded))
}

func (r *Repository) update(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update checkout attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update checkout attempt: %w", err)
	}
	if n == 0 {
		return ErrIdempotencyKeyNotFound
	}
	return nil
}
