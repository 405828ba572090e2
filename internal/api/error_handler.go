package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/2emr/sensor-backend/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Message string `json:"message"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps domain
// errors to status codes and renders {"message": "<text>"}. Storage and other
// unexpected errors are logged with their cause and surfaced generically.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Message: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil {
			log.Debug().Err(he.Internal).Int("status", he.Code).Str("path", c.Path()).Msg("request rejected")
		}
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "Usuário e senha são obrigatórios"
	case errors.Is(err, domain.ErrCredentialsTooLong):
		return http.StatusBadRequest, fmt.Sprintf("Usuário deve ter no máximo %d caracteres e senha no máximo %d bytes", domain.MaxUsernameLength, domain.MaxPasswordBytes)
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusBadRequest, "Usuário já existe"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusBadRequest, "Usuário ou senha incorretos"
	case errors.Is(err, domain.ErrInvalidReading):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInvalidRange):
		return http.StatusBadRequest, `Os parâmetros de data "inicio" e "fim" são obrigatórios.`
	case errors.Is(err, domain.ErrTokenMissing):
		return http.StatusUnauthorized, "Token não fornecido"
	case errors.Is(err, domain.ErrTokenInvalid), errors.Is(err, domain.ErrTokenExpired):
		return http.StatusForbidden, "Acesso negado"
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "Erro interno do servidor"
}
