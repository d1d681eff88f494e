// Package referrals persists invite codes and their allowances.
package referrals

import (
	"context"

	"github.com/dmitrijs2005/gophwallet/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, code string) (*models.Referral, error)
	Put(ctx context.Context, ref *models.Referral) error
	SetAllowance(ctx context.Context, code string, allowance int) error
	ListByOwner(ctx context.Context, owner string) ([]models.Referral, error)
}
