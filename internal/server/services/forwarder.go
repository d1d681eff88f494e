package services

import (
	"context"
	"math"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/dmitrijs2005/gophwallet/internal/common"
	"github.com/dmitrijs2005/gophwallet/internal/logging"
	"github.com/dmitrijs2005/gophwallet/internal/server/config"
	"github.com/dmitrijs2005/gophwallet/internal/server/models"
	"github.com/dmitrijs2005/gophwallet/internal/server/receipt"
)

// Forwarder relays owner-signed calls through proxy contracts and issues
// unlock receipts for recovery.
type Forwarder struct {
	reader     ChainReader
	writer     ChainWriter
	dispatcher Dispatcher
	recovery   *receipt.Signer

	sender        ethcommon.Address
	maxGas        uint64
	gasMult       float64
	unlockWindow  time.Duration
	forwardWindow time.Duration

	log logging.Logger
	now func() time.Time
}

// NewForwarder constructs a Forwarder. recovery signs UNLOCK receipts; the
// app refuses to start when it shares an address with the session key.
func NewForwarder(reader ChainReader, writer ChainWriter, dispatcher Dispatcher, recovery *receipt.Signer,
	cfg *config.Config, log logging.Logger) *Forwarder {
	return &Forwarder{
		reader:        reader,
		writer:        writer,
		dispatcher:    dispatcher,
		recovery:      recovery,
		sender:        ethcommon.HexToAddress(cfg.RelaySenderAddress),
		maxGas:        cfg.MaxForwardGas,
		gasMult:       cfg.GasMultiplier,
		unlockWindow:  cfg.UnlockReceiptWindow,
		forwardWindow: cfg.ForwardReceiptWindow,
		log:           log,
		now:           time.Now,
	}
}

func (f *Forwarder) fail(ctx context.Context, op string, err error) error {
	kind := common.KindOf(err)
	if kind == common.KindInternal {
		f.log.Error(ctx, op+" failed", "kind", kind.String(), "error", err)
	} else {
		f.log.Info(ctx, op+" rejected", "kind", kind.String(), "error", err)
	}
	return err
}

// Forward validates a fresh FORWARD receipt against the proxy's on-chain
// state and queues the call for the relayer. The signer must be the proxy's owner and
// the proxy must be locked to the service.
func (f *Forwarder) Forward(ctx context.Context, forwardReceipt string) (*models.RelayMessage, error) {
	r, err := receipt.Parse(forwardReceipt)
	if err != nil {
		return nil, f.fail(ctx, "forward", &common.Error{
			Kind: common.KindBadRequest,
			Msg:  "malformed forward receipt.",
			Err:  err,
		})
	}
	if err := r.CheckType(receipt.Forward); err != nil {
		return nil, f.fail(ctx, "forward", err)
	}
	if err := r.CheckFresh(f.now(), f.forwardWindow); err != nil {
		return nil, f.fail(ctx, "forward", err)
	}

	state, err := f.reader.GetProxyState(ctx, r.Proxy)
	if err != nil {
		return nil, f.fail(ctx, "forward", common.AsInternal(err, "read proxy state"))
	}
	if state.Owner != r.Signer {
		return nil, f.fail(ctx, "forward",
			common.BadRequest("signer %s is not owner of proxy %s: wrong owner", r.Signer.Hex(), r.Proxy.Hex()))
	}
	if !state.IsLocked {
		return nil, f.fail(ctx, "forward", common.BadRequest("proxy %s is unlocked", r.Proxy.Hex()))
	}

	call := models.ForwardCall{
		Proxy:       r.Proxy,
		Signer:      r.Signer,
		Destination: r.Destination,
		Value:       r.Value,
		Data:        r.Data,
	}

	gas, err := f.writer.EstimateForwardGas(ctx, call, f.sender)
	if err != nil {
		return nil, f.fail(ctx, "forward", common.Internal(err, "estimate gas"))
	}
	if gas > f.maxGas {
		return nil, f.fail(ctx, "forward", common.Internal(nil, "Too much gas required for tx (%d)", gas))
	}

	data, err := f.writer.EncodeForward(call)
	if err != nil {
		return nil, f.fail(ctx, "forward", common.Internal(err, "encode forward"))
	}

	msg := models.RelayMessage{
		From:       f.sender.Hex(),
		To:         r.Proxy.Hex(),
		Gas:        uint64(math.Round(float64(gas) * f.gasMult)),
		Data:       hexutil.Encode(data),
		SignerAddr: r.Signer.Hex(),
	}
	if err := f.dispatcher.Enqueue(ctx, msg); err != nil {
		return nil, f.fail(ctx, "forward", common.AsInternal(err, "enqueue relay message"))
	}

	f.log.Info(ctx, "forward queued", "proxy", msg.To, "signer", msg.SignerAddr, "gas", msg.Gas)
	return &msg, nil
}

// QueryUnlockReceipt answers a fresh UNLOCK request signed by a proxy's
// signer with an UNLOCK receipt for that proxy, signed by the recovery key.
func (f *Forwarder) QueryUnlockReceipt(ctx context.Context, unlockRequest string) (string, error) {
	r, err := receipt.Parse(unlockRequest)
	if err != nil {
		return "", f.fail(ctx, "unlock", err)
	}
	if err := r.CheckType(receipt.Unlock); err != nil {
		return "", f.fail(ctx, "unlock", err)
	}
	if r.Age(f.now()) > f.unlockWindow {
		return "", f.fail(ctx, "unlock", common.BadRequest("Receipt is outdated"))
	}
	if r.IsFuture(f.now()) {
		return "", f.fail(ctx, "unlock", common.BadRequest("Receipt is dated in the future"))
	}

	acc, err := f.reader.GetProxyAccount(ctx, r.Signer)
	if err != nil {
		return "", f.fail(ctx, "unlock", common.AsInternal(err, "read proxy account"))
	}
	if acc.Proxy == (ethcommon.Address{}) {
		return "", f.fail(ctx, "unlock", common.BadRequest("Proxy for %s doesn't exist", r.Signer.Hex()))
	}

	out, err := f.recovery.Sign(receipt.NewUnlock(acc.Proxy, r.NewOwner))
	if err != nil {
		return "", f.fail(ctx, "unlock", common.Internal(err, "sign unlock receipt"))
	}

	f.log.Info(ctx, "unlock receipt issued", "proxy", acc.Proxy.Hex(), "new_owner", r.NewOwner.Hex())
	return out, nil
}
