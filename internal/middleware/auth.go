package middleware

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/meshimatch/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// MemberIDKey is the context key for storing the authenticated member ID.
const MemberIDKey contextKey = "member_id"

// GetMemberID extracts the member ID from the context.
// Returns empty string if not found.
func GetMemberID(ctx context.Context) string {
	memberID, _ := ctx.Value(MemberIDKey).(string)
	return memberID
}

// WithMemberID returns ctx carrying memberID.
func WithMemberID(ctx context.Context, memberID string) context.Context {
	return context.WithValue(ctx, MemberIDKey, memberID)
}

// AuthInterceptor validates the bearer token on every unary and streaming call and
// adds the member ID to the request context.
type AuthInterceptor struct {
	jwtManager *auth.JWTManager
}

var _ connect.Interceptor = (*AuthInterceptor)(nil)

// RequireAuth returns an interceptor that rejects calls without a valid token.
func RequireAuth(jwtManager *auth.JWTManager) *AuthInterceptor {
	return &AuthInterceptor{jwtManager: jwtManager}
}

// authenticate validates the Authorization header and returns the enriched context.
func (i *AuthInterceptor) authenticate(ctx context.Context, authHeader string) (context.Context, error) {
	if authHeader == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	// Parse Bearer token
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
	}

	// Validate token
	claims, err := i.jwtManager.Validate(parts[1])
	if err != nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, err)
	}

	return WithMemberID(ctx, claims.MemberID), nil
}

func (i *AuthInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		ctx, err := i.authenticate(ctx, req.Header().Get("Authorization"))
		if err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}

// WrapStreamingClient is a no-op; this interceptor only guards handlers.
func (i *AuthInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *AuthInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		ctx, err := i.authenticate(ctx, conn.RequestHeader().Get("Authorization"))
		if err != nil {
			return err
		}
		return next(ctx, conn)
	}
}

// BearerToken returns a client interceptor that sends token on every call.
func BearerToken(token string) connect.Interceptor {
	return &bearerInterceptor{header: "Bearer " + token}
}

type bearerInterceptor struct {
	header string
}

func (b *bearerInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			req.Header().Set("Authorization", b.header)
		}
		return next(ctx, req)
	}
}

func (b *bearerInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return func(ctx context.Context, spec connect.Spec) connect.StreamingClientConn {
		conn := next(ctx, spec)
		conn.RequestHeader().Set("Authorization", b.header)
		return conn
	}
}

func (b *bearerInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}
