package grpc

import (
	"context"
	"path"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/gophwallet/internal/common"
)

var kindCodes = map[common.Kind]codes.Code{
	common.KindBadRequest:      codes.InvalidArgument,
	common.KindUnauthorized:    codes.Unauthenticated,
	common.KindForbidden:       codes.PermissionDenied,
	common.KindConflict:        codes.AlreadyExists,
	common.KindNotFound:        codes.NotFound,
	common.KindTeapot:          codes.ResourceExhausted,
	common.KindEnhanceYourCalm: codes.Unavailable,
	common.KindInternal:        codes.Internal,
}

// CodeOf maps an error kind to its gRPC status code.
func CodeOf(k common.Kind) codes.Code {
	if c, ok := kindCodes[k]; ok {
		return c
	}
	return codes.Internal
}

// errorInterceptor turns service errors into status errors. Internal
// errors are not echoed to the client.
func (s *GRPCServer) errorInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if err == nil {
		return resp, nil
	}
	if _, ok := status.FromError(err); ok {
		return nil, err
	}

	k := common.KindOf(err)
	if k == common.KindInternal {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return nil, status.Error(CodeOf(k), err.Error())
}

func (s *GRPCServer) observeInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	method := path.Base(info.FullMethod)

	outcome := "ok"
	if err != nil {
		outcome = status.Code(err).String()
	}
	s.logger.Info(ctx, "rpc", "method", method, "outcome", outcome, "latency", time.Since(start))
	if s.metrics != nil {
		s.metrics.ObserveRequest("grpc", method, outcome, time.Since(start))
	}
	return resp, err
}
