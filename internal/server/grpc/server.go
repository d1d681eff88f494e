// Package grpc exposes the account service over gRPC.
//
// Messages are google.protobuf.Struct values, so clients need no generated
// stubs: conn.Invoke(ctx, "/accounts.v1.AccountService/GetRef", in, out)
// with in and out of type *structpb.Struct.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/gophwallet/internal/logging"
	"github.com/dmitrijs2005/gophwallet/internal/server/metrics"
	"github.com/dmitrijs2005/gophwallet/internal/server/models"
	"github.com/dmitrijs2005/gophwallet/internal/server/services"
)

type AccountAPI interface {
	AddAccount(ctx context.Context, req services.AddAccountRequest) error
	GetAccount(ctx context.Context, accountID string) (*models.AccountView, error)
	ConfirmEmail(ctx context.Context, sessionReceipt string) error
	SetWallet(ctx context.Context, sessionReceipt, wallet string) (string, error)
	ResetRequest(ctx context.Context, email, captchaResponse, origin, sourceIP string) error
	ResetWallet(ctx context.Context, sessionReceipt, wallet string) error
	GetRef(ctx context.Context, code string) (*models.RefInfo, error)
	ListRefs(ctx context.Context, accountID string) ([]models.Referral, error)
	QueryAccount(ctx context.Context, email string) (string, error)
}

type ForwardAPI interface {
	Forward(ctx context.Context, forwardReceipt string) (*models.RelayMessage, error)
	QueryUnlockReceipt(ctx context.Context, unlockRequest string) (string, error)
}

type GRPCServer struct {
	address   string
	accounts  AccountAPI
	forwarder ForwardAPI
	logger    logging.Logger
	metrics   *metrics.Metrics
}

func NewGRPCServer(a string, l logging.Logger, m *metrics.Metrics, accounts AccountAPI, forwarder ForwardAPI) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		metrics:   m,
		accounts:  accounts,
		forwarder: forwarder,
	}
}

// NewServer builds the grpc.Server with the account service and the
// standard health service registered.
func (s *GRPCServer) NewServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.observeInterceptor, s.errorInterceptor))
	srv.RegisterService(&serviceDesc, s)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
