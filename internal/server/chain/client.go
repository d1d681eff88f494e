// Package chain reads proxy and factory contract state over JSON-RPC and
// prepares forward calls.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/gophwallet/internal/server/models"
)

// backend is the part of *ethclient.Client the chain client needs.
type backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// Client talks to the factory and proxy contracts. The RPC connection is
// dialed on first use and shared by all requests afterwards; a failed dial
// is not retried.
type Client struct {
	factory ethcommon.Address
	backend func() (backend, error)
	closer  func()
}

// NewClient returns a client for rpcURL. Nothing is dialed until the first
// call.
func NewClient(rpcURL string, factory ethcommon.Address) *Client {
	var (
		mu   sync.Mutex
		conn *ethclient.Client
	)
	dial := sync.OnceValues(func() (backend, error) {
		c, err := ethclient.Dial(rpcURL)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
		}
		mu.Lock()
		conn = c
		mu.Unlock()
		return c, nil
	})
	return &Client{
		factory: factory,
		backend: dial,
		closer: func() {
			mu.Lock()
			defer mu.Unlock()
			if conn != nil {
				conn.Close()
			}
		},
	}
}

func newClientWithBackend(b backend, factory ethcommon.Address) *Client {
	return &Client{
		factory: factory,
		backend: func() (backend, error) { return b, nil },
		closer:  func() {},
	}
}

// Close releases the RPC connection if one was dialed.
func (c *Client) Close() {
	c.closer()
}

func (c *Client) call(ctx context.Context, to ethcommon.Address, data []byte) ([]byte, error) {
	b, err := c.backend()
	if err != nil {
		return nil, err
	}
	return b.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// GetProxyAccount asks the factory which proxy belongs to signer. A zero
// Proxy in the result means the signer has none.
func (c *Client) GetProxyAccount(ctx context.Context, signer ethcommon.Address) (*models.ProxyState, error) {
	data, err := factoryABI.Pack("getAccount", signer)
	if err != nil {
		return nil, fmt.Errorf("pack getAccount: %w", err)
	}
	out, err := c.call(ctx, c.factory, data)
	if err != nil {
		return nil, fmt.Errorf("call getAccount: %w", err)
	}
	vals, err := factoryABI.Unpack("getAccount", out)
	if err != nil {
		return nil, fmt.Errorf("unpack getAccount: %w", err)
	}
	if len(vals) != 3 {
		return nil, fmt.Errorf("unpack getAccount: got %d values", len(vals))
	}

	proxy, ok1 := vals[0].(ethcommon.Address)
	owner, ok2 := vals[1].(ethcommon.Address)
	locked, ok3 := vals[2].(bool)
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("unpack getAccount: unexpected types")
	}
	return &models.ProxyState{Proxy: proxy, Owner: owner, IsLocked: locked}, nil
}

// GetProxyState reads owner and lock flag of a proxy.
func (c *Client) GetProxyState(ctx context.Context, proxy ethcommon.Address) (*models.ProxyState, error) {
	state := &models.ProxyState{Proxy: proxy}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vals, err := c.read(gctx, proxy, "getOwner")
		if err != nil {
			return err
		}
		owner, ok := vals[0].(ethcommon.Address)
		if !ok {
			return fmt.Errorf("unpack getOwner: unexpected type %T", vals[0])
		}
		state.Owner = owner
		return nil
	})
	g.Go(func() error {
		vals, err := c.read(gctx, proxy, "isLocked")
		if err != nil {
			return err
		}
		locked, ok := vals[0].(bool)
		if !ok {
			return fmt.Errorf("unpack isLocked: unexpected type %T", vals[0])
		}
		state.IsLocked = locked
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return state, nil
}

func (c *Client) read(ctx context.Context, proxy ethcommon.Address, method string) ([]any, error) {
	data, err := proxyABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := c.call(ctx, proxy, data)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	vals, err := proxyABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("unpack %s: got %d values", method, len(vals))
	}
	return vals, nil
}

// EncodeForward returns the calldata of proxy.forward(destination, value, data).
func (c *Client) EncodeForward(call models.ForwardCall) ([]byte, error) {
	value := new(big.Int)
	if call.Value != nil {
		value = call.Value.ToBig()
	}
	data := call.Data
	if data == nil {
		data = []byte{}
	}
	out, err := proxyABI.Pack("forward", call.Destination, value, data)
	if err != nil {
		return nil, fmt.Errorf("pack forward: %w", err)
	}
	return out, nil
}

// EstimateForwardGas estimates the forward call as sent by from.
func (c *Client) EstimateForwardGas(ctx context.Context, call models.ForwardCall, from ethcommon.Address) (uint64, error) {
	data, err := c.EncodeForward(call)
	if err != nil {
		return 0, err
	}
	b, err := c.backend()
	if err != nil {
		return 0, err
	}
	gas, err := b.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &call.Proxy, Data: data})
	if err != nil {
		return 0, fmt.Errorf("estimate gas: %w", err)
	}
	return gas, nil
}
