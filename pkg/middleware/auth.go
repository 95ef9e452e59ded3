package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/savedcarts/pkg/httputil"
	"github.com/utafrali/savedcarts/pkg/logger"
)

type contextKeyType string

const userIDKey contextKeyType = "user_id"

const (
	// UserIDHeader is set by the API gateway after it authenticated the caller.
	UserIDHeader = "X-User-ID"
	// TokenCookie carries the storefront access token on plain browser links.
	TokenCookie = "access_token"
)

// Claims represents the token claims the identity middleware relies on.
type Claims struct {
	UserID string
	Email  string
	Role   string
}

// TokenValidator validates a raw token and returns its claims.
type TokenValidator func(token string) (*Claims, error)

// Identify resolves the caller without ever rejecting the request.
//
// The X-User-ID header is only honoured when the request arrives from one of
// trustedProxies (CIDRs of the API gateway); from anywhere else it is ignored,
// since clients can set it freely. With no trusted proxies the header is never
// honoured. Otherwise, when validate is non-nil, a bearer token or the
// access_token cookie is validated. Unresolved callers proceed anonymously.
func Identify(validate TokenValidator, trustedProxies []string, log *slog.Logger) func(http.Handler) http.Handler {
	proxies := parseCIDRs(trustedProxies, log)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var userID string
			if header := strings.TrimSpace(r.Header.Get(UserIDHeader)); header != "" {
				if _, trusted := proxies.contains(r.RemoteAddr); trusted {
					userID = header
				}
			}
			if userID == "" && validate != nil {
				userID = userFromToken(r, validate)
			}
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func userFromToken(r *http.Request, validate TokenValidator) string {
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		if c, err := r.Cookie(TokenCookie); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		return ""
	}

	claims, err := validate(token)
	if err != nil {
		logger.FromContext(r.Context()).DebugContext(r.Context(), "ignoring invalid access token",
			slog.String("error", err.Error()),
		)
		return ""
	}
	return claims.UserID
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireUser rejects requests without a resolved user with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserIDFromContext(r.Context()) == "" {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
				Error: &httputil.ErrorResponse{
					Code:      "UNAUTHORIZED",
					Message:   "authentication required",
					RequestID: logger.CorrelationIDFromContext(r.Context()),
				},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id, or "" for anonymous callers.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}
