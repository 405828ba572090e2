package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/2emr/sensor-backend/internal/api/middleware"
	"github.com/2emr/sensor-backend/internal/core/domain"
	"github.com/2emr/sensor-backend/internal/core/ports"
)

const (
	HeaderDeletedCount = "X-Deleted-Count"

	msgIngestOK     = "Dados recebidos e armazenados com sucesso."
	msgIngestFailed = "Erro ao processar os dados."
	msgFetchFailed  = "Erro ao buscar os dados."
	msgPurgeOK      = "Dados da tabela foram limpos com sucesso."
	msgPurgeFailed  = "Erro ao limpar os dados."
)

// instantLayouts are tried in order for the inicio/fim query parameters and
// the optional ingestion timestamp. Values without a zone are read as UTC.
var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type ReadingHandler struct {
	readings ports.ReadingService
	log      zerolog.Logger
}

func NewReadingHandler(readings ports.ReadingService, log zerolog.Logger) *ReadingHandler {
	return &ReadingHandler{readings: readings, log: log}
}

type ingestRequest struct {
	SensorID    *int64   `json:"sensor_id"   validate:"required"`
	Temperature *float64 `json:"temperatura" validate:"required"`
	Humidity    *float64 `json:"umidade"     validate:"required"`
	Timestamp   *string  `json:"timestamp"`
}

// Ingest stores one reading and broadcasts it. The endpoint is unauthenticated.
//
// @Summary      Submit a sensor reading
// @Tags         readings
// @Accept       json
// @Produce      plain
// @Param        body  body      ingestRequest  true  "Sensor reading"
// @Success      200   {string}  string
// @Failure      400   {object}  map[string]string
// @Failure      500   {string}  string
// @Router       /dados-sensores [post]
func (h *ReadingHandler) Ingest(c echo.Context) error {
	var req ingestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Payload inválido").SetInternal(err)
	}
	if err := c.Validate(&req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidReading, err)
	}

	in := ports.ReadingInput{
		SensorID:    req.SensorID,
		Temperature: req.Temperature,
		Humidity:    req.Humidity,
		Source:      "http",
	}
	if req.Timestamp != nil && strings.TrimSpace(*req.Timestamp) != "" {
		ts, err := ParseInstant(*req.Timestamp)
		if err != nil {
			return fmt.Errorf("%w: timestamp: %v", domain.ErrInvalidReading, err)
		}
		in.Timestamp = &ts
	}

	if _, err := h.readings.Submit(c.Request().Context(), in); err != nil {
		if errors.Is(err, domain.ErrStorage) {
			return c.String(http.StatusInternalServerError, msgIngestFailed)
		}
		return err
	}

	return c.String(http.StatusOK, msgIngestOK)
}

// List returns every stored reading in insertion order.
//
// @Summary      List readings
// @Tags         readings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Reading
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      500  {string}  string
// @Router       /dados-sensores [get]
func (h *ReadingHandler) List(c echo.Context) error {
	readings, err := h.readings.FetchAll(c.Request().Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list readings failed")
		return c.String(http.StatusInternalServerError, msgFetchFailed)
	}
	return c.JSON(http.StatusOK, readings)
}

// ListRange returns the readings whose timestamp falls in [inicio, fim].
//
// @Summary      List readings in a time window
// @Tags         readings
// @Produce      json
// @Security     BearerAuth
// @Param        inicio  query     string  true  "Window start (RFC 3339 or YYYY-MM-DD HH:MM:SS)"
// @Param        fim     query     string  true  "Window end, inclusive"
// @Success      200     {array}   domain.Reading
// @Failure      400     {object}  map[string]string
// @Failure      401     {object}  map[string]string
// @Failure      403     {object}  map[string]string
// @Failure      500     {string}  string
// @Router       /dados-sensores/tempo [get]
func (h *ReadingHandler) ListRange(c echo.Context) error {
	rawStart, rawEnd := c.QueryParam("inicio"), c.QueryParam("fim")
	if rawStart == "" || rawEnd == "" {
		return domain.ErrInvalidRange
	}

	start, err := ParseInstant(rawStart)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, `Parâmetro "inicio" inválido`).SetInternal(err)
	}
	end, err := ParseInstant(rawEnd)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, `Parâmetro "fim" inválido`).SetInternal(err)
	}

	readings, err := h.readings.FetchRange(c.Request().Context(), start, end)
	if err != nil {
		if errors.Is(err, domain.ErrStorage) {
			h.log.Error().Err(err).Msg("list readings in range failed")
			return c.String(http.StatusInternalServerError, msgFetchFailed)
		}
		return err
	}
	return c.JSON(http.StatusOK, readings)
}

// Purge deletes every stored reading.
//
// @Summary      Delete all readings
// @Tags         readings
// @Produce      plain
// @Security     BearerAuth
// @Success      200  {string}  string
// @Header       200  {integer}  X-Deleted-Count  "Number of readings removed"
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      500  {string}  string
// @Router       /limpar-dados [delete]
func (h *ReadingHandler) Purge(c echo.Context) error {
	n, err := h.readings.Purge(c.Request().Context())
	if err != nil {
		h.log.Error().Err(err).Msg("purge readings failed")
		return c.String(http.StatusInternalServerError, msgPurgeFailed)
	}

	userID, _ := c.Get(middleware.ContextKeyUserID).(string)
	h.log.Info().Str("user_id", userID).Int64("deleted", n).Msg("readings purged by request")

	c.Response().Header().Set(HeaderDeletedCount, strconv.FormatInt(n, 10))
	return c.String(http.StatusOK, msgPurgeOK)
}

// ParseInstant parses s with the first matching layout in instantLayouts.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised instant %q", s)
}
