package authority

import (
	"context"

	"google.golang.org/grpc"

	"storefront/internal/platform/rpc/wire"
)

// TokenAuthorityServer is the gRPC surface of the authority.
type TokenAuthorityServer interface {
	Validate(ctx context.Context, req *wire.ValidateTokenRequest) (*wire.ValidateTokenResponse, error)
}

type grpcServer struct {
	svc *Service
}

// NewGRPC adapts the authority service to the gRPC surface.
func NewGRPC(svc *Service) TokenAuthorityServer {
	return &grpcServer{svc: svc}
}

func (g *grpcServer) Validate(ctx context.Context, req *wire.ValidateTokenRequest) (*wire.ValidateTokenResponse, error) {
	identity := g.svc.Validate(ctx, req.Token)
	return &wire.ValidateTokenResponse{
		IsValid: identity.IsValid,
		UserID:  identity.UserID,
		Email:   identity.Email,
		Roles:   identity.Roles,
		Claims:  identity.Claims,
	}, nil
}

func validateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wire.ValidateTokenRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TokenAuthorityServer).Validate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: wire.ValidateFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TokenAuthorityServer).Validate(ctx, req.(*wire.ValidateTokenRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// serviceDesc is hand-built because the wire format is JSON, not protobuf;
// there is no generated code to register.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: wire.TokenAuthorityService,
	HandlerType: (*TokenAuthorityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Validate", Handler: validateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/internal/platform/rpc/wire",
}

// RegisterTokenAuthority registers the authority on a gRPC server.
func RegisterTokenAuthority(s *grpc.Server, srv TokenAuthorityServer) {
	s.RegisterService(&serviceDesc, srv)
}
