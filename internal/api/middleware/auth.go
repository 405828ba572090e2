package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/2emr/sensor-backend/internal/core/ports"
)

const (
	// ContextKeyUserID holds the verified user id for downstream handlers.
	ContextKeyUserID = "user_id"

	msgTokenMissing = "Token não fornecido"
	msgAccessDenied = "Acesso negado"
)

// Auth requires "Authorization: Bearer <token>". A missing or malformed
// header yields 401; a token that fails verification yields 403.
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return authenticate(verifier, false)
}

// RealtimeAuth behaves like Auth but also accepts the token as the "token"
// query parameter, since browsers cannot set headers on a websocket handshake.
func RealtimeAuth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return authenticate(verifier, true)
}

func authenticate(verifier ports.TokenVerifier, allowQuery bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok && allowQuery {
				token = c.QueryParam("token")
				ok = token != ""
			}
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, msgTokenMissing)
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusForbidden, msgAccessDenied).SetInternal(err)
			}

			c.Set(ContextKeyUserID, userID)
			return next(c)
		}
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
