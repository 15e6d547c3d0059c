package auth

import (
	"context"
	"testing"
	"time"

	"github.com/gartstein/safework/internal/safework/models"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const protectedMethod = "/safework.v1.RegistryService/ListClients"

func testUser() *models.User {
	return &models.User{
		ID:                uuid.New(),
		Name:              "Admin",
		Email:             "admin@safework.com",
		ProfileID:         models.ProfileAdministratorID,
		ServiceProviderID: models.DefaultProviderID,
		Active:            true,
		Profile:           &models.Profile{ID: models.ProfileAdministratorID, Name: models.ProfileAdministrator},
	}
}

// authorizerFunc lets a plain function stand in for an Authorizer.
type authorizerFunc func(token string) (*Identity, error)

func (f authorizerFunc) Authorize(token string) (*Identity, error) { return f(token) }

func newTestIssuer(t *testing.T, secret string) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(secret, "safework-test", time.Hour)
	if err != nil {
		t.Fatalf("failed to create issuer: %v", err)
	}
	return issuer
}

func TestAuthInterceptor(t *testing.T) {
	const (
		validSecret   = "test-secret"
		invalidSecret = "wrong-secret"
	)

	user := testUser()
	issuer := newTestIssuer(t, validSecret)

	generateToken := func(secret string, now time.Time) string {
		i := newTestIssuer(t, secret)
		i.now = func() time.Time { return now }
		token, _, err := i.Issue(user)
		if err != nil {
			t.Fatalf("failed to issue token: %v", err)
		}
		return token
	}

	tests := []struct {
		name        string
		fullMethod  string
		token       string
		wantError   bool
		expectedErr codes.Code
	}{
		{
			name:        "protected method valid token",
			fullMethod:  protectedMethod,
			token:       generateToken(validSecret, time.Now()),
			expectedErr: codes.OK,
		},
		{
			name:        "protected method invalid token",
			fullMethod:  protectedMethod,
			token:       generateToken(invalidSecret, time.Now()),
			wantError:   true,
			expectedErr: codes.Unauthenticated,
		},
		{
			name:        "protected method expired token",
			fullMethod:  protectedMethod,
			token:       generateToken(validSecret, time.Now().Add(-2*time.Hour)),
			wantError:   true,
			expectedErr: codes.Unauthenticated,
		},
		{
			name:        "protected method missing metadata",
			fullMethod:  protectedMethod,
			wantError:   true,
			expectedErr: codes.Unauthenticated,
		},
		{
			name:        "health check no token",
			fullMethod:  grpc_health_v1.Health_Check_FullMethodName,
			expectedErr: codes.OK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unaryInterceptor := NewAuthInterceptor(authorizerFunc(issuer.Parse)).Unary()

			ctx := context.Background()
			if tt.token != "" {
				md := metadata.Pairs("authorization", "Bearer "+tt.token)
				ctx = metadata.NewIncomingContext(ctx, md)
			}

			handler := func(ctx context.Context, _ interface{}) (interface{}, error) {
				if tt.fullMethod == protectedMethod {
					id, ok := IdentityFromContext(ctx)
					if !ok || id.UserID != user.ID {
						return nil, status.Error(codes.Unauthenticated, "identity not in context")
					}
				}
				return "response", nil
			}

			info := &grpc.UnaryServerInfo{FullMethod: tt.fullMethod}
			resp, err := unaryInterceptor(ctx, nil, info, handler)

			if tt.wantError {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if status.Code(err) != tt.expectedErr {
					t.Errorf("expected error code %v, got %v", tt.expectedErr, status.Code(err))
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if resp != "response" {
					t.Error("handler response mismatch")
				}
			}
		})
	}
}

func TestExtractTokenFromMetadata(t *testing.T) {
	tests := []struct {
		name        string
		metadata    metadata.MD
		wantToken   string
		wantErrCode codes.Code
	}{
		{
			name:        "valid authorization header",
			metadata:    metadata.Pairs("authorization", "Bearer valid-token"),
			wantToken:   "valid-token",
			wantErrCode: codes.OK,
		},
		{
			name:        "lower case scheme",
			metadata:    metadata.Pairs("authorization", "bearer valid-token"),
			wantToken:   "valid-token",
			wantErrCode: codes.OK,
		},
		{
			name:        "missing authorization header",
			metadata:    metadata.MD{},
			wantErrCode: codes.Unauthenticated,
		},
		{
			name:        "malformed authorization header",
			metadata:    metadata.Pairs("authorization", "InvalidPrefix valid-token"),
			wantErrCode: codes.Unauthenticated,
		},
		{
			name:        "empty bearer token",
			metadata:    metadata.Pairs("authorization", "Bearer "),
			wantErrCode: codes.Unauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := extractTokenFromMetadata(tt.metadata)

			if tt.wantErrCode != codes.OK {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if status.Code(err) != tt.wantErrCode {
					t.Errorf("expected error code %v, got %v", tt.wantErrCode, status.Code(err))
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if token != tt.wantToken {
				t.Errorf("expected token %q, got %q", tt.wantToken, token)
			}
		})
	}
}

func TestNewAuthInterceptor(t *testing.T) {
	interceptor := NewAuthInterceptor(authorizerFunc(newTestIssuer(t, "test-secret").Parse), "/safework.v1.Public/Ping")

	publicMethods := []string{
		grpc_health_v1.Health_Check_FullMethodName,
		grpc_health_v1.Health_Watch_FullMethodName,
		"/safework.v1.Public/Ping",
	}
	for _, method := range publicMethods {
		if !interceptor.publicMethods[method] {
			t.Errorf("missing public method: %s", method)
		}
	}
	if interceptor.publicMethods[protectedMethod] {
		t.Errorf("%s must not be public", protectedMethod)
	}
}
