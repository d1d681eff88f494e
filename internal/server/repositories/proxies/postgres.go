package proxies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophwallet/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Add(ctx context.Context, address string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO proxies (address) VALUES ($1) ON CONFLICT (address) DO NOTHING`,
		strings.ToLower(address))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) LockNext(ctx context.Context) (string, error) {
	query :=
		`SELECT address FROM proxies
		 ORDER BY added_at
		 LIMIT 1
		 FOR UPDATE SKIP LOCKED`

	var address string
	err := r.db.QueryRowContext(ctx, query).Scan(&address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return address, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, address string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM proxies WHERE address = $1`, strings.ToLower(address)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM proxies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
