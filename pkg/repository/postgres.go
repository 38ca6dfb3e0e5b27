package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/tendant/simple-accounts/pkg/domain"
)

// uniqueViolation is the Postgres error code for unique constraint hits.
const uniqueViolation = "23505"

// AccountsRepository is the Postgres-backed credential store.
type AccountsRepository struct {
	db *sql.DB
}

// NewAccountsRepository creates a new accounts repository.
func NewAccountsRepository(db *sql.DB) *AccountsRepository {
	return &AccountsRepository{db: db}
}

const accountColumns = `id, username, email, password_hash, email_confirmed,
	       failed_access_count, lockout_end, security_stamp, version,
	       created_at, updated_at`

// Create stores a new account.
func (r *AccountsRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, username, email, password_hash, email_confirmed,
		                      failed_access_count, lockout_end, security_stamp, version,
		                      created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		account.ID, account.Username, account.Email, account.PasswordHash,
		account.EmailConfirmed, account.FailedAccessCount, account.LockoutEnd,
		account.SecurityStamp, account.Version, account.CreatedAt, account.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.ErrDuplicateIdentity
	}
	return err
}

// GetByID retrieves an account by ID.
func (r *AccountsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves an account by email, case-insensitively.
func (r *AccountsRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1)`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// Update persists an account using the version column as the
// concurrency token. A stale version means a concurrent writer won and
// the caller must re-read.
func (r *AccountsRepository) Update(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET email = $3, password_hash = $4, email_confirmed = $5,
		    failed_access_count = $6, lockout_end = $7, security_stamp = $8,
		    version = version + 1, updated_at = $9
		WHERE id = $1 AND version = $2
	`
	result, err := r.db.ExecContext(ctx, query,
		account.ID, account.Version, account.Email, account.PasswordHash,
		account.EmailConfirmed, account.FailedAccessCount, account.LockoutEnd,
		account.SecurityStamp, time.Now(),
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Either the account is gone or the version is stale.
		if _, err := r.GetByID(ctx, account.ID); errors.Is(err, domain.ErrAccountNotFound) {
			return domain.ErrAccountNotFound
		}
		return domain.ErrConcurrencyConflict
	}
	account.Version++
	return nil
}

func (r *AccountsRepository) scanOne(row *sql.Row) (*domain.Account, error) {
	account := &domain.Account{}
	err := row.Scan(
		&account.ID, &account.Username, &account.Email, &account.PasswordHash,
		&account.EmailConfirmed, &account.FailedAccessCount, &account.LockoutEnd,
		&account.SecurityStamp, &account.Version, &account.CreatedAt, &account.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}
