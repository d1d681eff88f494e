// Package accounts persists Account rows in PostgreSQL.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/gophwallet/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	Exists(ctx context.Context, id string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, a *models.Account) error
	SetWallet(ctx context.Context, id, wallet, signer, proxy string) error
	PromoteEmail(ctx context.Context, id, email string) error
}
