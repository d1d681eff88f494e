package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophwallet/internal/common"
	"github.com/dmitrijs2005/gophwallet/internal/logging"
	"github.com/dmitrijs2005/gophwallet/internal/server/config"
	"github.com/dmitrijs2005/gophwallet/internal/server/models"
	"github.com/dmitrijs2005/gophwallet/internal/server/receipt"
)

const (
	accountID = "357e44ed-bd9a-4370-b6ca-8de9847d1da8"
	ownerID   = "0b7a2c32-5d3b-4e5c-9c53-6f7d0e2a9b11"

	sessionKey  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	recoveryKey = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	userKey     = "5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a"

	walletA = `{"address":"0x70997970c51812dc3a010c7d01b50e0d17dc79c8","version":3}`
	walletB = `{"address":"0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc","version":3}`
)

// fakeStore is an in-memory AccountStore. calls counts every method call.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	refs     map[string]*models.Referral
	calls    int

	conflictErr error
	putErr      error
	getRefErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: map[string]*models.Account{},
		refs: map[string]*models.Referral{
			common.GlobalRefCode: {Code: common.GlobalRefCode, Allowance: 10},
		},
	}
}

func (f *fakeStore) hit() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeStore) GetAccount(_ context.Context, id string) (*models.Account, error) {
	f.hit()
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, common.NotFound("Account with ID %s not found.", id)
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) CheckConflict(_ context.Context, id, email string) error {
	f.hit()
	if f.conflictErr != nil {
		return f.conflictErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[id]; ok {
		return common.Conflict("account with same Id %s found.", id)
	}
	for _, a := range f.accounts {
		if strings.EqualFold(a.Email, email) || strings.EqualFold(a.PendingEmail, email) {
			return common.Conflict("email %s taken.", email)
		}
	}
	return nil
}

func (f *fakeStore) PutAccount(_ context.Context, a *models.Account) error {
	f.hit()
	if f.putErr != nil {
		return f.putErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	cp.CreatedAt = time.Unix(1000, 0)
	f.accounts[a.ID] = &cp
	return nil
}

func (f *fakeStore) SetWallet(_ context.Context, id, wallet, signer, proxy string) error {
	f.hit()
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return common.NotFound("Account with ID %s not found.", id)
	}
	a.Wallet = wallet
	a.SignerAddress = signer
	if proxy != "" {
		a.ProxyAddress = proxy
	}
	return nil
}

func (f *fakeStore) PromoteEmail(_ context.Context, id, email string) error {
	f.hit()
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return common.NotFound("Account with ID %s not found.", id)
	}
	a.Email = email
	a.PendingEmail = ""
	return nil
}

func (f *fakeStore) GetAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	f.hit()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.NotFound("Account for email %s not found.", email)
}

func (f *fakeStore) GetRef(_ context.Context, code string) (*models.Referral, error) {
	f.hit()
	if f.getRefErr != nil {
		return nil, f.getRefErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.refs[strings.ToLower(code)]
	if !ok {
		return nil, common.NotFound("Referral with ID %s not found.", code)
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) PutRef(_ context.Context, code, owner string, allowance int) error {
	f.hit()
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.refs[code]; ok {
		return common.Conflict("Referral with ID %s already exists.", code)
	}
	f.refs[code] = &models.Referral{Code: code, Owner: owner, Allowance: allowance}
	return nil
}

func (f *fakeStore) SetRefAllowance(_ context.Context, code string, allowance int) error {
	f.hit()
	if allowance < 0 {
		return common.BadRequest("allowance can not be negative.")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.refs[code]
	if !ok {
		return common.NotFound("Referral with ID %s not found.", code)
	}
	r.Allowance = allowance
	return nil
}

func (f *fakeStore) ListRefs(_ context.Context, owner string) ([]models.Referral, error) {
	f.hit()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Referral
	for _, r := range f.refs {
		if r.Owner == owner {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type sentEmail struct {
	to, receipt, origin string
}

type publishedEvent struct {
	subject string
	event   any
}

type fakeNotifier struct {
	mu        sync.Mutex
	confirms  []sentEmail
	resets    []sentEmail
	published []publishedEvent
	err       error
}

func (f *fakeNotifier) SendConfirmEmail(_ context.Context, email, r, origin string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.confirms = append(f.confirms, sentEmail{email, r, origin})
	return nil
}

func (f *fakeNotifier) SendResetEmail(_ context.Context, email, r, origin string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.resets = append(f.resets, sentEmail{email, r, origin})
	return nil
}

func (f *fakeNotifier) Publish(_ context.Context, subject string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishedEvent{subject, event})
	return nil
}

type fakeCaptcha struct {
	err   error
	calls int
}

func (f *fakeCaptcha) Verify(context.Context, string, string) error {
	f.calls++
	return f.err
}

type fakeProxyPool struct {
	next []string
}

func (f *fakeProxyPool) ClaimProxy(context.Context) (string, error) {
	if len(f.next) == 0 {
		return "", nil
	}
	p := f.next[0]
	f.next = f.next[1:]
	return p, nil
}

type fakeThrottle struct {
	deny map[string]bool
	keys []string
}

func (f *fakeThrottle) Allow(_ context.Context, key string) error {
	f.keys = append(f.keys, key)
	if f.deny[key] {
		return common.EnhanceYourCalm("too many requests from %s", key)
	}
	return nil
}

type fakeArchiver struct {
	recs []models.WalletArchive
}

func (f *fakeArchiver) ArchiveWallet(_ context.Context, rec models.WalletArchive) error {
	f.recs = append(f.recs, rec)
	return nil
}

type fakeChain struct {
	accounts map[ethcommon.Address]*models.ProxyState
	states   map[ethcommon.Address]*models.ProxyState
	gas      uint64
	gasErr   error
	reads    int
}

func (f *fakeChain) GetProxyAccount(_ context.Context, signer ethcommon.Address) (*models.ProxyState, error) {
	f.reads++
	if s, ok := f.accounts[signer]; ok {
		return s, nil
	}
	return &models.ProxyState{}, nil
}

func (f *fakeChain) GetProxyState(_ context.Context, proxy ethcommon.Address) (*models.ProxyState, error) {
	f.reads++
	if s, ok := f.states[proxy]; ok {
		return s, nil
	}
	return &models.ProxyState{Proxy: proxy}, nil
}

func (f *fakeChain) EstimateForwardGas(context.Context, models.ForwardCall, ethcommon.Address) (uint64, error) {
	return f.gas, f.gasErr
}

func (f *fakeChain) EncodeForward(call models.ForwardCall) ([]byte, error) {
	return append(call.Destination.Bytes(), call.Data...), nil
}

type fakeDispatcher struct {
	msgs []models.RelayMessage
}

func (f *fakeDispatcher) Enqueue(_ context.Context, msg models.RelayMessage) error {
	f.msgs = append(f.msgs, msg)
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.RelaySenderAddress = "0x90f79bf6eb2c4f870365e785982e1f101e93b906"
	return cfg
}

func mustSigner(t *testing.T, key string) *receipt.Signer {
	t.Helper()
	s, err := receipt.NewSigner(key)
	require.NoError(t, err)
	return s
}

type accountFixture struct {
	svc      *AccountService
	store    *fakeStore
	notifier *fakeNotifier
	captcha  *fakeCaptcha
	session  *receipt.Signer
}

func newAccountFixture(t *testing.T, opts ...AccountOption) *accountFixture {
	t.Helper()
	store := newFakeStore()
	notifier := &fakeNotifier{}
	captcha := &fakeCaptcha{}
	session := mustSigner(t, sessionKey)
	log := logging.Nop()

	ledger := NewReferralLedger(store, log)
	svc := NewAccountService(store, ledger, notifier, captcha, session, testConfig(), log, opts...)
	return &accountFixture{svc: svc, store: store, notifier: notifier, captcha: captcha, session: session}
}

// sign issues a receipt with the given creation time (zero means now).
func sign(t *testing.T, s *receipt.Signer, r receipt.Receipt, created time.Time) string {
	t.Helper()
	r.CreatedAt = created
	out, err := s.Sign(r)
	require.NoError(t, err)
	return out
}
