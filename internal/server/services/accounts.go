// Package services contains the account service's business logic: the
// referral ledger, the account lifecycle driven by signed receipts, and the
// transaction forwarder. Services depend only on the collaborator interfaces
// in interfaces.go.
package services

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/gophwallet/internal/common"
	"github.com/dmitrijs2005/gophwallet/internal/logging"
	"github.com/dmitrijs2005/gophwallet/internal/server/config"
	"github.com/dmitrijs2005/gophwallet/internal/server/models"
	"github.com/dmitrijs2005/gophwallet/internal/server/receipt"
	"github.com/dmitrijs2005/gophwallet/internal/server/validate"
)

// AddAccountRequest carries a signup.
type AddAccountRequest struct {
	AccountID       string
	Email           string
	CaptchaResponse string
	Origin          string
	SourceIP        string
	RefCode         string
}

// AccountService drives the account lifecycle:
// - AddAccount: signup gated by conflict check, captcha and referral
// - ConfirmEmail: promote the pending email
// - SetWallet / ResetRequest / ResetWallet: bind and replace the wallet
type AccountService struct {
	store    AccountStore
	ledger   *ReferralLedger
	notifier Notifier
	captcha  CaptchaVerifier
	session  *receipt.Signer
	window   time.Duration

	proxies  ProxyPool
	throttle Throttle
	archive  Archiver

	log logging.Logger
	now func() time.Time
}

type AccountOption func(*AccountService)

// WithProxyPool binds a pooled proxy to every new wallet.
func WithProxyPool(p ProxyPool) AccountOption {
	return func(s *AccountService) { s.proxies = p }
}

// WithThrottle limits signups and reset requests per source IP.
func WithThrottle(t Throttle) AccountOption {
	return func(s *AccountService) { s.throttle = t }
}

// WithArchiver keeps replaced wallets.
func WithArchiver(a Archiver) AccountOption {
	return func(s *AccountService) { s.archive = a }
}

// NewAccountService constructs an AccountService. session signs and verifies
// CREATE_CONF and RESET_CONF receipts.
func NewAccountService(store AccountStore, ledger *ReferralLedger, notifier Notifier, captcha CaptchaVerifier,
	session *receipt.Signer, cfg *config.Config, log logging.Logger, opts ...AccountOption) *AccountService {
	s := &AccountService{
		store:    store,
		ledger:   ledger,
		notifier: notifier,
		captcha:  captcha,
		session:  session,
		window:   cfg.AccountReceiptWindow,
		log:      log,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *AccountService) fail(ctx context.Context, op string, err error) error {
	kind := common.KindOf(err)
	if kind == common.KindInternal {
		s.log.Error(ctx, op+" failed", "kind", kind.String(), "error", err)
	} else {
		s.log.Info(ctx, op+" rejected", "kind", kind.String(), "error", err)
	}
	return err
}

// AddAccount registers a new account with a pending email. The conflict
// check, captcha and referral reservation run concurrently and all must pass
// before anything is written. The account row and the allowance decrement
// are then written together; the confirmation email goes out last.
func (s *AccountService) AddAccount(ctx context.Context, req AddAccountRequest) error {
	if err := validate.AccountID(req.AccountID); err != nil {
		return err
	}
	if err := validate.Email(req.Email); err != nil {
		return err
	}
	if err := validate.RefCode(req.RefCode); err != nil {
		return err
	}
	if s.throttle != nil {
		if err := s.throttle.Allow(ctx, "signup:"+req.SourceIP); err != nil {
			return s.fail(ctx, "add account", err)
		}
	}

	id, err := uuid.Parse(req.AccountID)
	if err != nil {
		return common.InvalidField("accountId", req.AccountID, "not uuid v4")
	}
	conf, err := s.session.Sign(receipt.NewCreateConf(id))
	if err != nil {
		return s.fail(ctx, "add account", common.Internal(err, "sign receipt"))
	}

	var ref *models.Referral
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.store.CheckConflict(gctx, req.AccountID, req.Email)
	})
	g.Go(func() error {
		return s.captcha.Verify(gctx, req.CaptchaResponse, req.SourceIP)
	})
	g.Go(func() error {
		var err error
		ref, err = s.ledger.ReserveInvite(gctx, req.RefCode)
		return err
	})
	if err := g.Wait(); err != nil {
		return s.fail(ctx, "add account", err)
	}

	w, wctx := errgroup.WithContext(ctx)
	w.Go(func() error {
		return s.store.PutAccount(wctx, &models.Account{
			ID:           req.AccountID,
			PendingEmail: req.Email,
			Referral:     ref.Owner,
		})
	})
	w.Go(func() error {
		return s.ledger.Consume(wctx, ref)
	})
	if err := w.Wait(); err != nil {
		return s.fail(ctx, "add account", err)
	}

	if err := s.notifier.SendConfirmEmail(ctx, req.Email, conf, req.Origin); err != nil {
		return s.fail(ctx, "add account", common.AsInternal(err, "send confirmation email"))
	}

	s.log.Info(ctx, "account created", "account_id", req.AccountID, "referral", ref.Owner)
	return nil
}

// checkSession verifies an account receipt: our signer, within the window,
// and of the required type.
func (s *AccountService) checkSession(sessionReceipt string, t receipt.Type) (*receipt.Receipt, error) {
	r, err := receipt.Parse(sessionReceipt)
	if err != nil {
		return nil, err
	}
	if err := r.CheckSigner(s.session.Address()); err != nil {
		return nil, err
	}
	if err := r.CheckFresh(s.now(), s.window); err != nil {
		return nil, err
	}
	if err := r.CheckType(t); err != nil {
		return nil, err
	}
	return r, nil
}

func checkWallet(wallet string) (models.WalletHeader, error) {
	h, err := models.ParseWalletHeader(wallet)
	if err != nil {
		return h, common.BadRequest("invalid wallet json: %s.", err)
	}
	if !validate.IsAddress(h.Address) {
		return h, common.BadRequest("invalid address %s in wallet.", h.Address)
	}
	return h, nil
}

// ConfirmEmail promotes the pending email. It succeeds once per account.
func (s *AccountService) ConfirmEmail(ctx context.Context, sessionReceipt string) error {
	r, err := s.checkSession(sessionReceipt, receipt.CreateConf)
	if err != nil {
		return s.fail(ctx, "confirm email", err)
	}
	id := r.AccountID.String()

	acc, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return s.fail(ctx, "confirm email", err)
	}
	if acc.Email != "" {
		return s.fail(ctx, "confirm email", common.BadRequest("email already set."))
	}
	if err := s.store.PromoteEmail(ctx, id, acc.PendingEmail); err != nil {
		return s.fail(ctx, "confirm email", err)
	}

	s.log.Info(ctx, "email confirmed", "account_id", id)
	return nil
}

// SetWallet binds the first wallet to an account, mints the account's own
// referral code and announces the new wallet. Returns the minted code.
func (s *AccountService) SetWallet(ctx context.Context, sessionReceipt, wallet string) (string, error) {
	r, err := s.checkSession(sessionReceipt, receipt.CreateConf)
	if err != nil {
		return "", s.fail(ctx, "set wallet", err)
	}
	h, err := checkWallet(wallet)
	if err != nil {
		return "", s.fail(ctx, "set wallet", err)
	}
	id := r.AccountID.String()

	acc, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return "", s.fail(ctx, "set wallet", err)
	}
	if acc.HasWallet() {
		return "", s.fail(ctx, "set wallet", common.Conflict("wallet already set."))
	}

	var proxy string
	if s.proxies != nil {
		// an empty pool leaves the account's proxy unchanged
		if proxy, err = s.proxies.ClaimProxy(ctx); err != nil {
			return "", s.fail(ctx, "set wallet", common.AsInternal(err, "claim proxy"))
		}
	}

	var code string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.store.SetWallet(gctx, id, wallet, h.Address, proxy)
	})
	g.Go(func() error {
		var err error
		code, err = s.ledger.MintRef(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", s.fail(ctx, "set wallet", err)
	}

	event := models.WalletCreated{AccountID: acc.ID, Email: acc.Email, SignerAddr: h.Address}
	if err := s.notifier.Publish(ctx, models.WalletCreatedSubjectPrefix+h.Address, event); err != nil {
		return "", s.fail(ctx, "set wallet", common.AsInternal(err, "publish wallet created"))
	}

	s.log.Info(ctx, "wallet set", "account_id", id, "signer", h.Address, "proxy", proxy, "ref", code)
	return code, nil
}

// ResetRequest emails a RESET_CONF receipt bound to the account's current
// wallet. Unknown emails and accounts without a wallet succeed silently.
func (s *AccountService) ResetRequest(ctx context.Context, email, captchaResponse, origin, sourceIP string) error {
	if err := validate.Email(email); err != nil {
		return err
	}
	if s.throttle != nil {
		if err := s.throttle.Allow(ctx, "reset:"+sourceIP); err != nil {
			return s.fail(ctx, "reset request", err)
		}
	}

	var acc *models.Account
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := s.store.GetAccountByEmail(gctx, email)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		acc = a
		return err
	})
	g.Go(func() error {
		return s.captcha.Verify(gctx, captchaResponse, sourceIP)
	})
	if err := g.Wait(); err != nil {
		return s.fail(ctx, "reset request", err)
	}

	if acc == nil || !acc.HasWallet() {
		s.log.Debug(ctx, "reset request ignored", "email", email)
		return nil
	}

	h, err := models.ParseWalletHeader(acc.Wallet)
	if err != nil {
		return s.fail(ctx, "reset request", common.Internal(err, "stored wallet of %s", acc.ID))
	}
	id, err := uuid.Parse(acc.ID)
	if err != nil {
		return s.fail(ctx, "reset request", common.Internal(err, "stored account id"))
	}

	conf, err := s.session.Sign(receipt.NewResetConf(id, ethcommon.HexToAddress(h.Address)))
	if err != nil {
		return s.fail(ctx, "reset request", common.Internal(err, "sign receipt"))
	}
	if err := s.notifier.SendResetEmail(ctx, acc.Email, conf, origin); err != nil {
		return s.fail(ctx, "reset request", common.AsInternal(err, "send reset email"))
	}

	s.log.Info(ctx, "reset requested", "account_id", acc.ID)
	return nil
}

// ResetWallet replaces an existing wallet. The receipt must name the wallet
// being replaced and the new address must differ from it.
func (s *AccountService) ResetWallet(ctx context.Context, sessionReceipt, wallet string) error {
	r, err := s.checkSession(sessionReceipt, receipt.ResetConf)
	if err != nil {
		return s.fail(ctx, "reset wallet", err)
	}
	h, err := checkWallet(wallet)
	if err != nil {
		return s.fail(ctx, "reset wallet", err)
	}
	id := r.AccountID.String()

	acc, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return s.fail(ctx, "reset wallet", err)
	}
	if !acc.HasWallet() {
		return s.fail(ctx, "reset wallet", common.Conflict("no existing wallet found."))
	}
	existing, err := models.ParseWalletHeader(acc.Wallet)
	if err != nil {
		return s.fail(ctx, "reset wallet", common.Internal(err, "stored wallet of %s", id))
	}

	oldAddr := ethcommon.HexToAddress(existing.Address)
	if oldAddr != r.Wallet {
		return s.fail(ctx, "reset wallet", common.Conflict("wallet changed since reset was requested."))
	}
	if oldAddr == ethcommon.HexToAddress(h.Address) {
		return s.fail(ctx, "reset wallet", common.Conflict("can not reset wallet with same address."))
	}

	if s.archive != nil {
		rec := models.WalletArchive{
			AccountID:  id,
			OldAddress: existing.Address,
			NewAddress: h.Address,
			Wallet:     acc.Wallet,
			ReplacedAt: s.now().Unix(),
		}
		if err := s.archive.ArchiveWallet(ctx, rec); err != nil {
			return s.fail(ctx, "reset wallet", common.AsInternal(err, "archive wallet"))
		}
	}

	if err := s.store.SetWallet(ctx, id, wallet, h.Address, ""); err != nil {
		return s.fail(ctx, "reset wallet", err)
	}

	s.log.Info(ctx, "wallet reset", "account_id", id, "signer", h.Address)
	return nil
}

func (s *AccountService) GetRef(ctx context.Context, code string) (*models.RefInfo, error) {
	info, err := s.ledger.GetRef(ctx, code)
	if err != nil {
		return nil, s.fail(ctx, "get ref", err)
	}
	return info, nil
}

func (s *AccountService) ListRefs(ctx context.Context, accountID string) ([]models.Referral, error) {
	refs, err := s.ledger.ListRefs(ctx, accountID)
	if err != nil {
		return nil, s.fail(ctx, "list refs", err)
	}
	return refs, nil
}

// GetAccount returns the public view of an account.
func (s *AccountService) GetAccount(ctx context.Context, accountID string) (*models.AccountView, error) {
	if err := validate.AccountID(accountID); err != nil {
		return nil, err
	}
	acc, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, s.fail(ctx, "get account", err)
	}
	v := acc.View()
	return &v, nil
}

// QueryAccount returns the wallet stored for email. Unknown emails get a
// deterministic pseudo-wallet so the answer does not reveal whether the
// email is registered.
func (s *AccountService) QueryAccount(ctx context.Context, email string) (string, error) {
	acc, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return "", s.fail(ctx, "query account", err)
	}
	if acc != nil && acc.HasWallet() {
		return acc.Wallet, nil
	}
	return pseudoWallet(email)
}

type pseudoKDFParams struct {
	DKLen int    `json:"dklen"`
	N     int    `json:"n"`
	R     int    `json:"r"`
	P     int    `json:"p"`
	Salt  string `json:"salt"`
}

type pseudoCrypto struct {
	Cipher       string            `json:"cipher"`
	CipherParams map[string]string `json:"cipherparams"`
	CipherText   string            `json:"ciphertext"`
	KDF          string            `json:"kdf"`
	KDFParams    pseudoKDFParams   `json:"kdfparams"`
	MAC          string            `json:"mac"`
}

type pseudoKeystore struct {
	Address string       `json:"address"`
	Crypto  pseudoCrypto `json:"Crypto"`
	Version int          `json:"version"`
}

// saltedHash returns the first n bytes of keccak256(email+salt), hex encoded.
func saltedHash(email, salt string, n int) string {
	return hex.EncodeToString(crypto.Keccak256([]byte(email + salt))[:n])
}

func pseudoWallet(email string) (string, error) {
	ks := pseudoKeystore{
		Address: "0x" + saltedHash(email, "addressawobeqw4cq", 20),
		Crypto: pseudoCrypto{
			Cipher:       "aes-128-ctr",
			CipherParams: map[string]string{"iv": saltedHash(email, "cipherparamsivaic4w6b", 16)},
			CipherText:   saltedHash(email, "ciphertextaoc84noq354", 32),
			KDF:          "scrypt",
			KDFParams: pseudoKDFParams{
				DKLen: 32,
				N:     65536,
				R:     1,
				P:     8,
				Salt:  saltedHash(email, "kdfparamssalta7c465oa754", 32),
			},
			MAC: saltedHash(email, "maco8wb47q5496q38745", 32),
		},
		Version: 3,
	}
	b, err := json.Marshal(ks)
	if err != nil {
		return "", fmt.Errorf("encode pseudo wallet: %w", err)
	}
	return string(b), nil
}
