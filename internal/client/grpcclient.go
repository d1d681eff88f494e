// Package client is a Go client for the account service's gRPC API.
package client

import (
	"context"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/gophwallet/internal/common"
)

const serviceName = "accounts.v1.AccountService"

const defaultTimeout = 12 * time.Second

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
}

func NewGRPCClient(endpointURL string) (*GRPCClient, error) {
	conn, err := grpc.NewClient(endpointURL, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &GRPCClient{endpointURL: endpointURL, conn: conn}, nil
}

func newWithConn(conn *grpc.ClientConn) *GRPCClient {
	return &GRPCClient{conn: conn}
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// mapError restores the service error kind from the status message, which
// carries the "<Kind>: <msg>" rendering of the server-side error.
func mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return common.Internal(err, "rpc")
	}
	msg := st.Message()
	for k := common.KindBadRequest; k <= common.KindEnhanceYourCalm; k++ {
		if rest, found := strings.CutPrefix(msg, k.String()+": "); found {
			return &common.Error{Kind: k, Msg: rest, Err: err}
		}
	}
	return common.Internal(err, "rpc")
}

func (c *GRPCClient) invoke(ctx context.Context, method string, in map[string]any) (*structpb.Struct, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+serviceName+"/"+method, req, out); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func field(out *structpb.Struct, key string) string {
	return out.GetFields()[key].GetStringValue()
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	_, err := c.invoke(ctx, "Ping", nil)
	return err
}

func (c *GRPCClient) ConfirmEmail(ctx context.Context, sessionReceipt string) error {
	_, err := c.invoke(ctx, "ConfirmEmail", map[string]any{"sessionReceipt": sessionReceipt})
	return err
}

// GetRef returns the default referral code, empty when the service offers none.
func (c *GRPCClient) GetRef(ctx context.Context, code string) (string, error) {
	out, err := c.invoke(ctx, "GetRef", map[string]any{"refCode": code})
	if err != nil {
		return "", err
	}
	return field(out, "defaultRef"), nil
}

// Forward submits a FORWARD receipt and returns the queued relay message
// as JSON.
func (c *GRPCClient) Forward(ctx context.Context, forwardReceipt string) (string, error) {
	out, err := c.invoke(ctx, "Forward", map[string]any{"forwardReceipt": forwardReceipt})
	if err != nil {
		return "", err
	}
	b, err := out.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *GRPCClient) QueryUnlockReceipt(ctx context.Context, unlockRequest string) (string, error) {
	out, err := c.invoke(ctx, "QueryUnlockReceipt", map[string]any{"unlockRequest": unlockRequest})
	if err != nil {
		return "", err
	}
	return field(out, "receipt"), nil
}
