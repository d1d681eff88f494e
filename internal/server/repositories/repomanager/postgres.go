// Package repomanager wires the PostgreSQL repositories together with the
// goose schema migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/gophwallet/internal/dbx"
	"github.com/dmitrijs2005/gophwallet/internal/server/migrations"
	"github.com/dmitrijs2005/gophwallet/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophwallet/internal/server/repositories/proxies"
	"github.com/dmitrijs2005/gophwallet/internal/server/repositories/referrals"
)

type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Referrals(db dbx.DBTX) referrals.Repository {
	return referrals.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Proxies(db dbx.DBTX) proxies.Repository {
	return proxies.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

// OpenDB opens a pgx-backed *sql.DB and verifies the connection.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}
