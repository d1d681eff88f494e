package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophwallet/internal/common"
	"github.com/dmitrijs2005/gophwallet/internal/dbx"
	"github.com/dmitrijs2005/gophwallet/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectAccount = `SELECT id, created_at, email, pending_email, wallet, signer_address, proxy_address, referral
	FROM accounts`

func scanAccount(row *sql.Row) (*models.Account, error) {
	var a models.Account
	var email, pending, wallet, signer, proxyAddr sql.NullString

	err := row.Scan(&a.ID, &a.CreatedAt, &email, &pending, &wallet, &signer, &proxyAddr, &a.Referral)
	if err != nil {
		return nil, err
	}
	a.Email = email.String
	a.PendingEmail = pending.String
	a.Wallet = wallet.String
	a.SignerAddress = signer.String
	a.ProxyAddress = proxyAddr.String
	return &a, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, selectAccount+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NotFound("Account with ID %s not found.", id)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

// GetByEmail looks up an account by its confirmed email.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, selectAccount+` WHERE lower(email) = lower($1) LIMIT 1`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NotFound("Account for email %s not found.", email)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, id string) (bool, error) {
	var found bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return found, nil
}

// EmailTaken reports whether email is the confirmed or pending email of any
// account.
func (r *PostgresRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	var found bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE lower(email) = lower($1) OR lower(pending_email) = lower($1))`,
		email).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return found, nil
}

func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) error {
	query :=
		`INSERT INTO accounts (id, pending_email, referral, proxy_address)
		 VALUES ($1, $2, $3, NULLIF($4, ''))
		 RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, a.ID, a.PendingEmail, a.Referral, a.ProxyAddress).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// SetWallet stores wallet and signer. An empty proxy keeps the current
// proxy address.
func (r *PostgresRepository) SetWallet(ctx context.Context, id, wallet, signer, proxy string) error {
	query :=
		`UPDATE accounts
		 SET wallet = $2, signer_address = $3, proxy_address = COALESCE(NULLIF($4, ''), proxy_address)
		 WHERE id = $1`

	return r.execOne(ctx, id, query, id, wallet, signer, proxy)
}

// PromoteEmail sets the confirmed email and clears the pending one.
func (r *PostgresRepository) PromoteEmail(ctx context.Context, id, email string) error {
	query :=
		`UPDATE accounts SET email = $2, pending_email = NULL
		 WHERE id = $1`

	return r.execOne(ctx, id, query, id, email)
}

func (r *PostgresRepository) execOne(ctx context.Context, id, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.NotFound("Account with ID %s not found.", id)
	}
	return nil
}
