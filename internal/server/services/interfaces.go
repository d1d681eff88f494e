package services

import (
	"context"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/dmitrijs2005/gophwallet/internal/server/models"
)

// AccountStore persists accounts and referral codes. Lookups of missing
// records fail with common.ErrNotFound.
type AccountStore interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	// CheckConflict fails with common.ErrConflict when id or email is taken.
	CheckConflict(ctx context.Context, id, email string) error
	PutAccount(ctx context.Context, a *models.Account) error
	SetWallet(ctx context.Context, id, wallet, signer, proxy string) error
	PromoteEmail(ctx context.Context, id, email string) error
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)

	GetRef(ctx context.Context, code string) (*models.Referral, error)
	PutRef(ctx context.Context, code, owner string, allowance int) error
	SetRefAllowance(ctx context.Context, code string, allowance int) error
	ListRefs(ctx context.Context, owner string) ([]models.Referral, error)
}

// ProxyPool hands out pre-deployed proxy contracts. ClaimProxy returns ""
// when none is available.
type ProxyPool interface {
	ClaimProxy(ctx context.Context) (string, error)
}

type Notifier interface {
	SendConfirmEmail(ctx context.Context, email, receipt, origin string) error
	SendResetEmail(ctx context.Context, email, receipt, origin string) error
	Publish(ctx context.Context, subject string, event any) error
}

// CaptchaVerifier fails with common.ErrBadRequest when the response is rejected.
type CaptchaVerifier interface {
	Verify(ctx context.Context, response, sourceIP string) error
}

// Throttle rejects callers over their quota with common.ErrEnhanceYourCalm.
type Throttle interface {
	Allow(ctx context.Context, key string) error
}

// Archiver keeps a copy of a wallet that is being replaced.
type Archiver interface {
	ArchiveWallet(ctx context.Context, rec models.WalletArchive) error
}

// ChainReader reads proxy state from the chain.
type ChainReader interface {
	// GetProxyAccount resolves the proxy registered for signer. A zero Proxy
	// means none is registered.
	GetProxyAccount(ctx context.Context, signer ethcommon.Address) (*models.ProxyState, error)
	GetProxyState(ctx context.Context, proxy ethcommon.Address) (*models.ProxyState, error)
}

// ChainWriter prepares forward transactions for the relayer.
type ChainWriter interface {
	EstimateForwardGas(ctx context.Context, call models.ForwardCall, from ethcommon.Address) (uint64, error)
	EncodeForward(call models.ForwardCall) ([]byte, error)
}

// Dispatcher enqueues transactions for the relayer.
type Dispatcher interface {
	Enqueue(ctx context.Context, msg models.RelayMessage) error
}
