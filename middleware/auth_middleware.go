package middleware

import (
	"context"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/jali/security/internal/auth"
	"github.com/jali/security/utils"
	"go.uber.org/zap"
)

// TokenVerifier checks a bearer token and returns its claims
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// PrincipalLoader resolves a token subject to a principal
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, identifier string) (auth.Principal, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	verifier TokenVerifier
	loader   PrincipalLoader
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(verifier TokenVerifier, loader PrincipalLoader, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		loader:   loader,
		logger:   logger,
		now:      time.Now,
	}
}

// Authenticate binds an AuthenticatedContext when the request carries a
// valid bearer token for a known principal. Every failure leaves the request
// anonymous; the request always continues to next.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if GetAuthenticatedContext(ctx) != nil {
			next.ServeHTTP(w, r)
			return
		}

		token := extractBearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		requestID := GetRequestIDFromContext(ctx)

		claims, err := m.verifier.Verify(token)
		if err != nil {
			m.logger.Debug("bearer token rejected",
				zap.String("request_id", requestID),
				zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		principal, err := m.loader.LoadPrincipal(ctx, claims.Subject)
		if err != nil {
			m.logger.Debug("token subject not resolvable",
				zap.String("request_id", requestID),
				zap.String("sub", claims.Subject),
				zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		ac := &AuthenticatedContext{
			Principal:       principal,
			Granted:         slices.Clone(principal.Authorities()),
			Claims:          claims,
			Origin:          clientAddress(r),
			UserAgent:       r.UserAgent(),
			RequestID:       requestID,
			AuthenticatedAt: m.now().UTC(),
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("sub", claims.Subject),
			zap.Strings("authorities", ac.Granted))

		next.ServeHTTP(w, r.WithContext(WithAuthenticatedContext(ctx, ac)))
	})
}

// RequireAuth rejects anonymous requests with 401
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetAuthenticatedContext(r.Context()) == nil {
			m.logger.Debug("authentication required",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("path", r.URL.Path))
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole is a middleware that requires a specific role
func (m *AuthMiddleware) RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			ac := GetAuthenticatedContext(ctx)
			if ac == nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			if !ac.HasRole(role) {
				m.logger.Warn("insufficient permissions",
					zap.String("request_id", requestID),
					zap.Stringer("required_role", role),
					zap.Strings("authorities", ac.Granted))
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractBearerToken extracts the Bearer token from the Authorization header.
// The scheme is matched case-insensitively.
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// clientAddress returns the request's remote host without port
func clientAddress(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
