package auth

import (
	"context"
	"errors"
	"strings"

	e "github.com/gartstein/safework/internal/safework/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Authorizer turns a bearer token into the caller's identity.
type Authorizer interface {
	Authorize(token string) (*Identity, error)
}

// Interceptor authenticates every gRPC call except the public methods.
type Interceptor struct {
	authorizer    Authorizer
	publicMethods map[string]bool
}

// NewAuthInterceptor creates an Interceptor. The health service is always
// public; additional public methods may be listed.
func NewAuthInterceptor(authorizer Authorizer, public ...string) *Interceptor {
	publicMethods := map[string]bool{
		grpc_health_v1.Health_Check_FullMethodName: true,
		grpc_health_v1.Health_Watch_FullMethodName: true,
	}
	for _, m := range public {
		publicMethods[m] = true
	}

	return &Interceptor{
		authorizer:    authorizer,
		publicMethods: publicMethods,
	}
}

// Unary returns a gRPC unary interceptor for token validation.
func (i *Interceptor) Unary() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if i.publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		ctx, err := i.authenticate(ctx)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// Stream returns the streaming counterpart of Unary.
func (i *Interceptor) Stream() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if i.publicMethods[info.FullMethod] {
			return handler(srv, ss)
		}

		ctx, err := i.authenticate(ss.Context())
		if err != nil {
			return err
		}
		return handler(srv, &identityStream{ServerStream: ss, ctx: ctx})
	}
}

func (i *Interceptor) authenticate(ctx context.Context) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "metadata missing")
	}

	tokenString, err := extractTokenFromMetadata(md)
	if err != nil {
		return nil, err
	}

	id, err := i.authorizer.Authorize(tokenString)
	if err != nil {
		if errors.Is(err, e.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}
	return WithIdentity(ctx, id), nil
}

type identityStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *identityStream) Context() context.Context { return s.ctx }

// extractTokenFromMetadata retrieves a Bearer token from gRPC metadata.
func extractTokenFromMetadata(md metadata.MD) (string, error) {
	authHeaders := md.Get("authorization")
	if len(authHeaders) == 0 {
		return "", status.Error(codes.Unauthenticated, "authorization header missing")
	}

	tokenString, ok := bearerToken(authHeaders[0])
	if !ok {
		return "", status.Error(codes.Unauthenticated, "invalid authorization format")
	}
	return tokenString, nil
}

// bearerToken strips the "Bearer " scheme from an Authorization value.
func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
