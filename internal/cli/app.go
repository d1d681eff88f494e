// Package cli implements the operator tool that signs and inspects receipts.
//
//	receipt sign -type CREATE_CONF -account <uuid>
//	receipt sign -type RESET_CONF -account <uuid> -wallet <addr>
//	receipt sign -type UNLOCK -proxy <addr> -owner <addr>
//	receipt sign -type FORWARD -proxy <addr> -dest <addr> -value <wei> -data 0x...
//	receipt inspect <receipt>
//	receipt ping|confirm|forward|unlock [-addr host:port] [<receipt>]
//
// sign reads the key from -key or, when omitted, from the terminal. The
// remote commands submit a receipt to the account service over gRPC.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/dmitrijs2005/gophwallet/internal/client"
	"github.com/dmitrijs2005/gophwallet/internal/common"
	"github.com/dmitrijs2005/gophwallet/internal/server/receipt"
)

var errUsage = errors.New("usage: receipt sign -type <TYPE> [flags] | receipt inspect <receipt> | " +
	"receipt ping|confirm|forward|unlock [-addr host:port] [<receipt>]")

const defaultAddr = "localhost:50051"

// getKey is a seam for tests.
var getKey = GetKey

type serviceClient interface {
	Ping(ctx context.Context) error
	ConfirmEmail(ctx context.Context, sessionReceipt string) error
	Forward(ctx context.Context, forwardReceipt string) (string, error)
	QueryUnlockReceipt(ctx context.Context, unlockRequest string) (string, error)
	Close() error
}

// dial is a seam for tests.
var dial = func(addr string) (serviceClient, error) {
	return client.NewGRPCClient(addr)
}

type App struct {
	in  *bufio.Reader
	out io.Writer
}

func NewApp(in io.Reader, out io.Writer) *App {
	return &App{in: bufio.NewReader(in), out: out}
}

// Run executes one command and returns the process exit code.
func (a *App) Run(args []string) int {
	if err := a.run(args); err != nil {
		fmt.Fprintln(a.out, "error:", err)
		return 1
	}
	return 0
}

func (a *App) run(args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "sign":
		return a.sign(args[1:])
	case "inspect":
		return a.inspect(args[1:])
	case "ping", "confirm", "forward", "unlock":
		return a.remote(args[0], args[1:])
	case "help", "-h", "--help":
		fmt.Fprintln(a.out, errUsage.Error())
		return nil
	}
	return errUsage
}

type signArgs struct {
	typ, key, account, wallet, proxy, owner, dest, value, data string
	created                                                    int64
}

func parseSignArgs(args []string) (*signArgs, error) {
	var s signArgs
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&s.typ, "type", "", "receipt type")
	fs.StringVar(&s.key, "key", "", "hex private key")
	fs.StringVar(&s.account, "account", "", "account id")
	fs.StringVar(&s.wallet, "wallet", "", "wallet address")
	fs.StringVar(&s.proxy, "proxy", "", "proxy address")
	fs.StringVar(&s.owner, "owner", "", "new owner address")
	fs.StringVar(&s.dest, "dest", "", "call destination")
	fs.StringVar(&s.value, "value", "0", "call value in wei")
	fs.StringVar(&s.data, "data", "0x", "call data")
	fs.Int64Var(&s.created, "created", 0, "createdAt unix seconds, now when 0")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return &s, nil
}

func address(name, v string) (ethcommon.Address, error) {
	if !ethcommon.IsHexAddress(v) {
		return ethcommon.Address{}, fmt.Errorf("-%s: %q is not an address", name, v)
	}
	return ethcommon.HexToAddress(v), nil
}

func (s *signArgs) receipt() (receipt.Receipt, error) {
	t, err := receipt.ParseType(strings.ToUpper(s.typ))
	if err != nil {
		return receipt.Receipt{}, err
	}

	var r receipt.Receipt
	switch t {
	case receipt.CreateConf, receipt.ResetConf:
		id, err := uuid.Parse(s.account)
		if err != nil {
			return r, fmt.Errorf("-account: %w", err)
		}
		if t == receipt.CreateConf {
			r = receipt.NewCreateConf(id)
			break
		}
		w, err := address("wallet", s.wallet)
		if err != nil {
			return r, err
		}
		r = receipt.NewResetConf(id, w)
	case receipt.Unlock:
		proxy, err := address("proxy", s.proxy)
		if err != nil {
			return r, err
		}
		owner, err := address("owner", s.owner)
		if err != nil {
			return r, err
		}
		r = receipt.NewUnlock(proxy, owner)
	case receipt.Forward:
		proxy, err := address("proxy", s.proxy)
		if err != nil {
			return r, err
		}
		dest, err := address("dest", s.dest)
		if err != nil {
			return r, err
		}
		value, err := uint256.FromDecimal(s.value)
		if err != nil {
			return r, fmt.Errorf("-value: %w", err)
		}
		data, err := hexutil.Decode(s.data)
		if err != nil {
			return r, fmt.Errorf("-data: %w", err)
		}
		r = receipt.NewForward(proxy, dest, value, data)
	}

	if s.created != 0 {
		r.CreatedAt = time.Unix(s.created, 0)
	}
	return r, nil
}

func (a *App) sign(args []string) error {
	s, err := parseSignArgs(args)
	if err != nil {
		return err
	}
	r, err := s.receipt()
	if err != nil {
		return err
	}

	key := s.key
	if key == "" {
		b, err := getKey(a.out)
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		key = strings.TrimSpace(string(b))
		common.WipeByteArray(b)
	}

	signer, err := receipt.NewSigner(key)
	if err != nil {
		return err
	}
	out, err := signer.Sign(r)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, out)
	return nil
}

func (a *App) inspect(args []string) error {
	var raw string
	if len(args) > 0 {
		raw = args[0]
	} else {
		var err error
		if raw, err = GetSimpleText(a.in, "Receipt", a.out); err != nil {
			return err
		}
	}

	r, err := receipt.Parse(raw)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "type:      %s\n", r.Type)
	fmt.Fprintf(a.out, "createdAt: %s (%d)\n", r.CreatedAt.UTC().Format(time.RFC3339), r.CreatedAt.Unix())
	fmt.Fprintf(a.out, "subject:   %s\n", r.Subject())
	switch r.Type {
	case receipt.ResetConf:
		fmt.Fprintf(a.out, "wallet:    %s\n", r.Wallet.Hex())
	case receipt.Unlock:
		fmt.Fprintf(a.out, "newOwner:  %s\n", r.NewOwner.Hex())
	case receipt.Forward:
		fmt.Fprintf(a.out, "dest:      %s\n", r.Destination.Hex())
		fmt.Fprintf(a.out, "value:     %s\n", r.Value.Dec())
		fmt.Fprintf(a.out, "data:      %s\n", hexutil.Encode(r.Data))
	}
	fmt.Fprintf(a.out, "signer:    %s\n", r.Signer.Hex())
	return nil
}

// remote sends a receipt to the service and prints the answer.
func (a *App) remote(cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addr := fs.String("addr", defaultAddr, "service gRPC address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var token string
	if cmd != "ping" {
		if fs.NArg() > 0 {
			token = fs.Arg(0)
		} else {
			var err error
			if token, err = GetSimpleText(a.in, "Receipt", a.out); err != nil {
				return err
			}
		}
	}

	c, err := dial(*addr)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := context.Background()
	switch cmd {
	case "ping":
		err = c.Ping(ctx)
		if err == nil {
			fmt.Fprintln(a.out, "OK")
		}
	case "confirm":
		err = c.ConfirmEmail(ctx, token)
		if err == nil {
			fmt.Fprintln(a.out, "email confirmed")
		}
	case "forward":
		var msg string
		if msg, err = c.Forward(ctx, token); err == nil {
			fmt.Fprintln(a.out, msg)
		}
	case "unlock":
		var r string
		if r, err = c.QueryUnlockReceipt(ctx, token); err == nil {
			fmt.Fprintln(a.out, r)
		}
	}
	return err
}
