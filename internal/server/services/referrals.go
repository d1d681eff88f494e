package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/gophwallet/internal/common"
	"github.com/dmitrijs2005/gophwallet/internal/logging"
	"github.com/dmitrijs2005/gophwallet/internal/server/models"
	"github.com/dmitrijs2005/gophwallet/internal/server/validate"
)

// ReferralLedger gates signup by invite allowances. The global code's
// allowance is a site-wide quota; every other code carries its own.
//
// Check and decrement are separate store calls. Two concurrent signups on
// one code can both pass the check, so a code may be over-allocated by at
// most the number of concurrent requests minus one.
type ReferralLedger struct {
	store AccountStore
	log   logging.Logger

	// randHex is swapped in tests.
	randHex func(size int) (string, error)
}

func NewReferralLedger(store AccountStore, log logging.Logger) *ReferralLedger {
	return &ReferralLedger{store: store, log: log, randHex: common.MakeRandHexString}
}

// fetch loads the referral for code together with the global record. For the
// global code itself both results are the same record.
func (l *ReferralLedger) fetch(ctx context.Context, code string) (ref, glob *models.Referral, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		glob, err = l.store.GetRef(gctx, common.GlobalRefCode)
		return err
	})
	if code != common.GlobalRefCode {
		g.Go(func() error {
			var err error
			ref, err = l.store.GetRef(gctx, code)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if ref == nil {
		ref = glob
	}
	return ref, glob, nil
}

// ReserveInvite checks that code may be used for one more signup and returns
// its record. Nothing is written; call Consume once the account is stored.
func (l *ReferralLedger) ReserveInvite(ctx context.Context, code string) (*models.Referral, error) {
	ref, glob, err := l.fetch(ctx, code)
	if err != nil {
		return nil, err
	}

	if glob.Allowance < 1 {
		return nil, common.EnhanceYourCalm("global limit reached")
	}
	if ref.Allowance < 1 {
		return nil, common.Teapot("referral invite limit reached.")
	}
	if ref.Owner == common.DeactivatedRefOwner {
		return nil, common.BadRequest("passed refCode %s is deactivated.", code)
	}
	if !validate.IsUUID(ref.Owner) {
		return nil, common.BadRequest("passed refCode %s can not be used for signup.", code)
	}
	return ref, nil
}

// Consume takes one invite from a reserved referral.
func (l *ReferralLedger) Consume(ctx context.Context, ref *models.Referral) error {
	if ref.Allowance < 1 {
		return common.Teapot("referral invite limit reached.")
	}
	return l.store.SetRefAllowance(ctx, ref.Code, ref.Allowance-1)
}

// GetRef reports whether code would currently admit a signup and, when the
// global code has a valid owner, offers that owner as the default referrer.
func (l *ReferralLedger) GetRef(ctx context.Context, code string) (*models.RefInfo, error) {
	if err := validate.RefCode(code); err != nil {
		return nil, err
	}

	var (
		ref, glob *models.Referral
		err       error
	)
	if code == common.GlobalRefCode {
		glob, err = l.store.GetRef(ctx, common.GlobalRefCode)
		ref = &models.Referral{Code: code, Allowance: 1}
	} else {
		ref, glob, err = l.fetch(ctx, code)
	}
	if err != nil {
		return nil, err
	}

	if glob.Allowance < 1 {
		return nil, common.EnhanceYourCalm("global limit reached")
	}
	if ref.Allowance < 1 {
		return nil, common.Teapot("account invite limit reached")
	}
	if validate.IsUUID(glob.Owner) {
		return &models.RefInfo{DefaultRef: glob.Owner}, nil
	}
	return &models.RefInfo{}, nil
}

// mintAttempts bounds the retries on colliding ref codes.
const mintAttempts = 8

// MintRef creates a fresh code owned by owner with the standard allowance.
// Codes already in use are never reassigned; a collision draws a new code.
func (l *ReferralLedger) MintRef(ctx context.Context, owner string) (string, error) {
	for range mintAttempts {
		code, err := l.randHex(4)
		if err != nil {
			return "", common.Internal(err, "generate ref code")
		}
		if code == common.GlobalRefCode {
			continue
		}
		err = l.store.PutRef(ctx, code, owner, common.NewRefAllowance)
		if errors.Is(err, common.ErrConflict) {
			l.log.Debug(ctx, "ref code taken", "code", code)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("put ref: %w", err)
		}
		l.log.Debug(ctx, "ref code minted", "owner", owner, "code", code)
		return code, nil
	}
	return "", common.Internal(nil, "no free ref code after %d attempts", mintAttempts)
}

// ListRefs returns the referral codes owned by an account.
func (l *ReferralLedger) ListRefs(ctx context.Context, accountID string) ([]models.Referral, error) {
	if err := validate.AccountID(accountID); err != nil {
		return nil, err
	}
	refs, err := l.store.ListRefs(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, common.NotFound("accountId %s unknown.", accountID)
	}
	return refs, nil
}
