// Package storage adapts the PostgreSQL repositories to the store
// interfaces consumed by the services.
package storage

import (
	"context"
	"database/sql"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/gophwallet/internal/common"
	"github.com/dmitrijs2005/gophwallet/internal/dbx"
	"github.com/dmitrijs2005/gophwallet/internal/server/models"
	"github.com/dmitrijs2005/gophwallet/internal/server/repositories/repomanager"
)

type PostgresStore struct {
	db *sql.DB
	rm repomanager.RepositoryManager
}

func NewPostgresStore(db *sql.DB, rm repomanager.RepositoryManager) *PostgresStore {
	return &PostgresStore{db: db, rm: rm}
}

func (s *PostgresStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return s.rm.Accounts(s.db).Get(ctx, id)
}

// CheckConflict fails Conflict when id exists or email is already the
// confirmed or pending email of some account. Both lookups run concurrently.
// The check is not linearizable with the later insert.
func (s *PostgresStore) CheckConflict(ctx context.Context, id, email string) error {
	repo := s.rm.Accounts(s.db)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := repo.Exists(gctx, id)
		if err != nil {
			return err
		}
		if found {
			return common.Conflict("account with same Id %s found.", id)
		}
		return nil
	})
	g.Go(func() error {
		taken, err := repo.EmailTaken(gctx, email)
		if err != nil {
			return err
		}
		if taken {
			return common.Conflict("email %s taken.", email)
		}
		return nil
	})
	return g.Wait()
}

func (s *PostgresStore) PutAccount(ctx context.Context, a *models.Account) error {
	return s.rm.Accounts(s.db).Create(ctx, a)
}

func (s *PostgresStore) SetWallet(ctx context.Context, id, wallet, signer, proxy string) error {
	return s.rm.Accounts(s.db).SetWallet(ctx, id, wallet, signer, proxy)
}

func (s *PostgresStore) PromoteEmail(ctx context.Context, id, email string) error {
	return s.rm.Accounts(s.db).PromoteEmail(ctx, id, email)
}

func (s *PostgresStore) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.rm.Accounts(s.db).GetByEmail(ctx, email)
}

func (s *PostgresStore) GetRef(ctx context.Context, code string) (*models.Referral, error) {
	return s.rm.Referrals(s.db).Get(ctx, code)
}

func (s *PostgresStore) PutRef(ctx context.Context, code, owner string, allowance int) error {
	return s.rm.Referrals(s.db).Put(ctx, &models.Referral{Code: code, Owner: owner, Allowance: allowance})
}

func (s *PostgresStore) SetRefAllowance(ctx context.Context, code string, allowance int) error {
	return s.rm.Referrals(s.db).SetAllowance(ctx, code, allowance)
}

func (s *PostgresStore) ListRefs(ctx context.Context, owner string) ([]models.Referral, error) {
	return s.rm.Referrals(s.db).ListByOwner(ctx, owner)
}

// ClaimProxy removes one proxy from the pool and returns it. Concurrent
// claims never hand out the same proxy. Returns "" when the pool is empty.
func (s *PostgresStore) ClaimProxy(ctx context.Context) (string, error) {
	var claimed string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.rm.Proxies(tx)

		addr, err := repo.LockNext(ctx)
		if err != nil || addr == "" {
			return err
		}
		if err := repo.Delete(ctx, addr); err != nil {
			return err
		}
		claimed = addr
		return nil
	})
	if err != nil {
		return "", err
	}
	return claimed, nil
}

// AddProxy puts a deployed proxy into the pool.
func (s *PostgresStore) AddProxy(ctx context.Context, address string) error {
	return s.rm.Proxies(s.db).Add(ctx, address)
}

func (s *PostgresStore) PoolSize(ctx context.Context) (int, error) {
	return s.rm.Proxies(s.db).Count(ctx)
}
