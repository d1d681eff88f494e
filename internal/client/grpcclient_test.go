package client

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/dmitrijs2005/gophwallet/internal/common"
	"github.com/dmitrijs2005/gophwallet/internal/logging"
	gs "github.com/dmitrijs2005/gophwallet/internal/server/grpc"
	"github.com/dmitrijs2005/gophwallet/internal/server/models"
	"github.com/dmitrijs2005/gophwallet/internal/server/services"
)

type fakeAccounts struct {
	gs.AccountAPI
	err     error
	refInfo *models.RefInfo
	got     string
}

func (f *fakeAccounts) ConfirmEmail(_ context.Context, r string) error {
	f.got = r
	return f.err
}

func (f *fakeAccounts) GetRef(_ context.Context, code string) (*models.RefInfo, error) {
	f.got = code
	return f.refInfo, f.err
}

func (f *fakeAccounts) AddAccount(context.Context, services.AddAccountRequest) error { return f.err }

type fakeForwarder struct {
	msg *models.RelayMessage
	err error
}

func (f *fakeForwarder) Forward(context.Context, string) (*models.RelayMessage, error) {
	return f.msg, f.err
}

func (f *fakeForwarder) QueryUnlockReceipt(_ context.Context, r string) (string, error) {
	return "signed:" + r, f.err
}

func newTestClient(t *testing.T, acc *fakeAccounts, fwd *fakeForwarder) *GRPCClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := gs.NewGRPCServer("bufnet", logging.Nop(), nil, acc, fwd).NewServer()
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	c := newWithConn(conn)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_Calls(t *testing.T) {
	acc := &fakeAccounts{refInfo: &models.RefInfo{DefaultRef: "0b7a2c32-5d3b-4e5c-9c53-6f7d0e2a9b11"}}
	fwd := &fakeForwarder{msg: &models.RelayMessage{From: "0x90", To: "0x15", Gas: 120000, Data: "0x", SignerAddr: "0x70"}}
	c := newTestClient(t, acc, fwd)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	require.NoError(t, c.ConfirmEmail(ctx, "session"))
	assert.Equal(t, "session", acc.got)

	ref, err := c.GetRef(ctx, "00000000")
	require.NoError(t, err)
	assert.Equal(t, "0b7a2c32-5d3b-4e5c-9c53-6f7d0e2a9b11", ref)

	msg, err := c.Forward(ctx, "fwd")
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"0x90","to":"0x15","gas":120000,"data":"0x","signerAddr":"0x70"}`, msg)

	r, err := c.QueryUnlockReceipt(ctx, "req")
	require.NoError(t, err)
	assert.Equal(t, "signed:req", r)
}

func TestClient_ErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind common.Kind
		msg  string
	}{
		{common.Teapot("account invite limit reached"), common.KindTeapot, "account invite limit reached"},
		{common.EnhanceYourCalm("global limit reached"), common.KindEnhanceYourCalm, "global limit reached"},
		{common.Unauthorized("invalid session: receipt too short."), common.KindUnauthorized, "invalid session: receipt too short."},
		{common.Internal(errors.New("db down"), "get ref"), common.KindInternal, ""},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			c := newTestClient(t, &fakeAccounts{err: tt.err}, &fakeForwarder{})
			_, err := c.GetRef(context.Background(), "00000000")
			require.Error(t, err)
			assert.Equal(t, tt.kind, common.KindOf(err))
			if tt.msg != "" {
				var e *common.Error
				require.ErrorAs(t, err, &e)
				assert.Equal(t, tt.msg, e.Msg)
			}
		})
	}
}

func TestMapError_Transport(t *testing.T) {
	err := mapError(status.Error(codes.Unavailable, "connection refused"))
	assert.Equal(t, common.KindInternal, common.KindOf(err))

	err = mapError(errors.New("plain"))
	assert.Equal(t, common.KindInternal, common.KindOf(err))
}
