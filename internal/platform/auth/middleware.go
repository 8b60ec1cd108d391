package auth

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mediflow/mediflow/internal/platform/apperr"
)

type contextKey string

const principalKey contextKey = "principal"

// Middleware extracts a bearer token, validates it and stores the
// resulting Principal on the request context. Requests without a valid
// token are rejected.
func Middleware(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return apperr.E(apperr.KindUnauthenticated, "missing authorization header")
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return apperr.E(apperr.KindUnauthenticated, "invalid authorization format")
			}

			principal, err := issuer.Parse(parts[1])
			if err != nil {
				return err
			}

			ctx := context.WithValue(c.Request().Context(), principalKey, principal)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RequireRole rejects requests whose principal does not hold the given role.
// It must run after Middleware.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, ok := PrincipalFromContext(c.Request().Context())
			if !ok {
				return apperr.E(apperr.KindUnauthenticated, "no authenticated session")
			}
			if principal.Role != role {
				return apperr.Ef(apperr.KindForbidden, "%s access required", role)
			}
			return next(c)
		}
	}
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// WithPrincipal returns a context carrying the principal. Used by tests
// and by internal callers acting on a user's behalf.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}
