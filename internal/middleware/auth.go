package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	ContextKeyUID  = "uid"
	ContextKeyRole = "role"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is what a verified bearer token says about the caller.
type Identity struct {
	UID  string
	Role string
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenStr, ok := bearerToken(c.Request())
		if !ok {
			return unauthorized(c, "unauthorized", "missing bearer token")
		}
		id, err := m.verifier.Verify(c.Request().Context(), tokenStr)
		if err != nil || id == nil || id.UID == "" {
			return unauthorized(c, "invalid_token", "token could not be verified")
		}
		c.Set(ContextKeyUID, id.UID)
		c.Set(ContextKeyRole, id.Role)
		return next(c)
	}
}

// RequireRole must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if got, _ := c.Get(ContextKeyRole).(string); got != role {
				return c.JSON(http.StatusForbidden, errorBody("forbidden", "requires role "+role))
			}
			return next(c)
		}
	}
}

// bearerToken also accepts ?access_token= because browsers cannot set
// headers on a websocket upgrade.
func bearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		tok := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
		return tok, tok != ""
	}
	if authz == "" && strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		tok := r.URL.Query().Get("access_token")
		return tok, tok != ""
	}
	return "", false
}

func unauthorized(c echo.Context, code, msg string) error {
	return c.JSON(http.StatusUnauthorized, errorBody(code, msg))
}

func errorBody(code, msg string) map[string]map[string]string {
	return map[string]map[string]string{"error": {"code": code, "message": msg}}
}
