package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc/peer"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/gophwallet/internal/server/services"
)

func str(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

// sourceIP returns the peer host, or the whole peer address when it has no port.
func sourceIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func empty() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}
}

func (s *GRPCServer) AddAccount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	err := s.accounts.AddAccount(ctx, services.AddAccountRequest{
		AccountID:       str(in, "accountId"),
		Email:           str(in, "email"),
		CaptchaResponse: str(in, "recapResponse"),
		Origin:          str(in, "origin"),
		SourceIP:        sourceIP(ctx),
		RefCode:         str(in, "refCode"),
	})
	if err != nil {
		return nil, err
	}
	return empty(), nil
}

func (s *GRPCServer) GetAccount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	v, err := s.accounts.GetAccount(ctx, str(in, "accountId"))
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{
		"id":            v.ID,
		"createdAt":     v.CreatedAt.Unix(),
		"email":         v.Email,
		"pendingEmail":  v.PendingEmail,
		"signerAddress": v.SignerAddress,
		"proxyAddress":  v.ProxyAddress,
		"referral":      v.Referral,
		"hasWallet":     v.HasWallet,
	})
}

func (s *GRPCServer) ConfirmEmail(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.accounts.ConfirmEmail(ctx, str(in, "sessionReceipt")); err != nil {
		return nil, err
	}
	return empty(), nil
}

func (s *GRPCServer) SetWallet(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	code, err := s.accounts.SetWallet(ctx, str(in, "sessionReceipt"), str(in, "wallet"))
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{"refCode": code})
}

func (s *GRPCServer) ResetRequest(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	err := s.accounts.ResetRequest(ctx, str(in, "email"), str(in, "recapResponse"), str(in, "origin"), sourceIP(ctx))
	if err != nil {
		return nil, err
	}
	return empty(), nil
}

func (s *GRPCServer) ResetWallet(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.accounts.ResetWallet(ctx, str(in, "sessionReceipt"), str(in, "wallet")); err != nil {
		return nil, err
	}
	return empty(), nil
}

func (s *GRPCServer) GetRef(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	info, err := s.accounts.GetRef(ctx, str(in, "refCode"))
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if info.DefaultRef != "" {
		out["defaultRef"] = info.DefaultRef
	}
	return structpb.NewStruct(out)
}

func (s *GRPCServer) ListRefs(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	refs, err := s.accounts.ListRefs(ctx, str(in, "accountId"))
	if err != nil {
		return nil, err
	}
	list := make([]any, 0, len(refs))
	for _, r := range refs {
		list = append(list, map[string]any{"code": r.Code, "allowance": r.Allowance})
	}
	return structpb.NewStruct(map[string]any{"refs": list})
}

func (s *GRPCServer) QueryAccount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	wallet, err := s.accounts.QueryAccount(ctx, str(in, "email"))
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{"wallet": wallet})
}

func (s *GRPCServer) Forward(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	msg, err := s.forwarder.Forward(ctx, str(in, "forwardReceipt"))
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{
		"from":       msg.From,
		"to":         msg.To,
		"gas":        msg.Gas,
		"data":       msg.Data,
		"signerAddr": msg.SignerAddr,
	})
}

func (s *GRPCServer) QueryUnlockReceipt(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	r, err := s.forwarder.QueryUnlockReceipt(ctx, str(in, "unlockRequest"))
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{"receipt": r})
}

func (s *GRPCServer) Ping(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"status": "OK"})
}
