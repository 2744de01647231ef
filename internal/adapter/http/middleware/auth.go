package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iho/pharmledger/internal/domain"
	"github.com/iho/pharmledger/internal/infrastructure/auth"
	"github.com/iho/pharmledger/internal/infrastructure/logger"
	"github.com/iho/pharmledger/internal/infrastructure/metrics"
)

// Headers carrying the scope when token authentication is disabled.
const (
	ActorIDHeader        = "X-Actor-ID"
	OrganizationIDHeader = "X-Organization-ID"
)

// AuthMiddleware resolves the caller's scope and stores it in the request context.
// With a JWT manager the scope comes from a bearer token; without one it is
// read from trusted X-Actor-ID / X-Organization-ID headers.
func AuthMiddleware(jwtManager *auth.JWTManager, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var scope domain.Scope
			if jwtManager != nil {
				claims, reason, err := verifyBearer(jwtManager, r.Header.Get("Authorization"))
				if err != nil {
					authFailed(m, reason)
					writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
					return
				}
				scope = claims.Scope()
			} else {
				scope = domain.Scope{
					ActorID:        strings.TrimSpace(r.Header.Get(ActorIDHeader)),
					OrganizationID: strings.TrimSpace(r.Header.Get(OrganizationIDHeader)),
				}
			}

			if err := scope.Validate(); err != nil {
				authFailed(m, "missing_actor")
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing actor identity")
				return
			}

			ctx := domain.WithScope(r.Context(), scope)
			l := logger.FromContext(ctx, zerolog.Nop()).With().
				Str("actor_id", scope.ActorID).
				Str("organization_id", scope.OrganizationID).
				Logger()
			ctx = logger.WithContext(ctx, l)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func verifyBearer(jwtManager *auth.JWTManager, header string) (*auth.Claims, string, error) {
	if header == "" {
		return nil, "missing_header", errors.New("missing authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, "malformed_header", errors.New("invalid authorization header format")
	}

	claims, err := jwtManager.Verify(parts[1])
	if err != nil {
		if errors.Is(err, domain.ErrExpiredToken) {
			return nil, "expired_token", err
		}
		return nil, "invalid_token", err
	}

	return claims, "", nil
}

func authFailed(m *metrics.Metrics, reason string) {
	if m != nil {
		m.AuthFailures.WithLabelValues(reason).Inc()
	}
}
