package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "accounts.v1.AccountService"

type handlerFunc func(s *GRPCServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

// accountServer is the handler type checked by RegisterService.
type accountServer interface {
	AddAccount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

func unary(name string, h handlerFunc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*GRPCServer)
			call := func(ctx context.Context, req any) (any, error) {
				return h(s, ctx, req.(*structpb.Struct))
			}
			if ic == nil {
				return call(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return ic(ctx, in, info, call)
		},
	}
}

// serviceDesc has no .proto behind it: every message is a structpb.Struct
// keyed by the JSON field names of the HTTP API.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*accountServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("AddAccount", (*GRPCServer).AddAccount),
		unary("GetAccount", (*GRPCServer).GetAccount),
		unary("ConfirmEmail", (*GRPCServer).ConfirmEmail),
		unary("SetWallet", (*GRPCServer).SetWallet),
		unary("ResetRequest", (*GRPCServer).ResetRequest),
		unary("ResetWallet", (*GRPCServer).ResetWallet),
		unary("GetRef", (*GRPCServer).GetRef),
		unary("ListRefs", (*GRPCServer).ListRefs),
		unary("QueryAccount", (*GRPCServer).QueryAccount),
		unary("Forward", (*GRPCServer).Forward),
		unary("QueryUnlockReceipt", (*GRPCServer).QueryUnlockReceipt),
		unary("Ping", (*GRPCServer).Ping),
	},
}
