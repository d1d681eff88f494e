package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophwallet/internal/dbx"
	"github.com/dmitrijs2005/gophwallet/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophwallet/internal/server/repositories/proxies"
	"github.com/dmitrijs2005/gophwallet/internal/server/repositories/referrals"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code runs
// against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Referrals(db dbx.DBTX) referrals.Repository
	Proxies(db dbx.DBTX) proxies.Repository
}
