package referrals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

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

// Codes are stored lowercase; lookups normalise the same way.
func normalize(code string) string {
	return strings.ToLower(code)
}

func (r *PostgresRepository) Get(ctx context.Context, code string) (*models.Referral, error) {
	ref := &models.Referral{}
	err := r.db.QueryRowContext(ctx,
		`SELECT code, owner, allowance FROM refs WHERE code = $1`, normalize(code)).
		Scan(&ref.Code, &ref.Owner, &ref.Allowance)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NotFound("Referral with ID %s not found.", code)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ref, nil
}

// Put inserts a new code. An existing code is left untouched and Put fails
// with a Conflict.
func (r *PostgresRepository) Put(ctx context.Context, ref *models.Referral) error {
	query :=
		`INSERT INTO refs (code, owner, allowance)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (code) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query, normalize(ref.Code), ref.Owner, ref.Allowance)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.Conflict("Referral with ID %s already exists.", ref.Code)
	}
	return nil
}

// SetAllowance overwrites the allowance. It is a blind write, not a
// compare-and-swap.
func (r *PostgresRepository) SetAllowance(ctx context.Context, code string, allowance int) error {
	if allowance < 0 {
		return common.BadRequest("allowance %d below zero for %s.", allowance, code)
	}

	res, err := r.db.ExecContext(ctx, `UPDATE refs SET allowance = $2 WHERE code = $1`, normalize(code), allowance)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.NotFound("Referral with ID %s not found.", code)
	}
	return nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, owner string) ([]models.Referral, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT code, owner, allowance FROM refs WHERE owner = $1 ORDER BY created_at, code`, owner)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Referral
	for rows.Next() {
		var ref models.Referral
		if err := rows.Scan(&ref.Code, &ref.Owner, &ref.Allowance); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
