package middleware

import (
	"context"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jali/security/internal/auth"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// AuthenticatedContextKey is the context key for the authenticated context
	AuthenticatedContextKey contextKey = "authenticated_context"
)

// AuthenticatedContext describes who is making the current request.
// It lives only as long as the request. Granted is the authority snapshot
// taken when the request was authenticated.
type AuthenticatedContext struct {
	Principal       auth.Principal
	Granted         []string
	Claims          auth.Claims
	Origin          string // client address
	UserAgent       string
	RequestID       string
	AuthenticatedAt time.Time
}

var _ auth.Principal = (*AuthenticatedContext)(nil)

// Identifier returns the principal's identifier, or the token subject when
// no principal is bound
func (a *AuthenticatedContext) Identifier() string {
	if a.Principal != nil {
		return a.Principal.Identifier()
	}
	return a.Claims.Subject
}

// Authorities returns the authority snapshot
func (a *AuthenticatedContext) Authorities() []string {
	return a.Granted
}

// HasAuthority reports whether the authenticated principal holds authority
func (a *AuthenticatedContext) HasAuthority(authority string) bool {
	return auth.HasAuthority(a, authority)
}

// HasRole reports whether the authenticated principal holds role
func (a *AuthenticatedContext) HasRole(role auth.Role) bool {
	return auth.HasRole(a, role)
}

// GetRequestIDFromContext retrieves the request ID from context.
// Falls back to the id assigned by chi's RequestID middleware.
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return chimw.GetReqID(ctx)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetAuthenticatedContext returns the authenticated context, or nil for
// anonymous requests
func GetAuthenticatedContext(ctx context.Context) *AuthenticatedContext {
	if val := ctx.Value(AuthenticatedContextKey); val != nil {
		if ac, ok := val.(*AuthenticatedContext); ok {
			return ac
		}
	}
	return nil
}

// WithAuthenticatedContext binds ac to the context
func WithAuthenticatedContext(ctx context.Context, ac *AuthenticatedContext) context.Context {
	return context.WithValue(ctx, AuthenticatedContextKey, ac)
}

// GetPrincipalFromContext returns the authenticated principal, or nil
func GetPrincipalFromContext(ctx context.Context) auth.Principal {
	if ac := GetAuthenticatedContext(ctx); ac != nil {
		return ac.Principal
	}
	return nil
}
