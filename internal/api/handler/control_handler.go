package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/2emr/sensor-backend/internal/core/ports"
)

const (
	statusPause  = "pausar"
	statusResume = "reiniciar"
)

// ControlHandler exposes the soft-pause flag consumed by the self-reporting
// task. Ingestion is unaffected by it.
type ControlHandler struct {
	control ports.ControlService
}

func NewControlHandler(control ports.ControlService) *ControlHandler {
	return &ControlHandler{control: control}
}

type pauseRequest struct {
	Status string `json:"status" validate:"required,oneof=pausar reiniciar"`
}

type pauseResponse struct {
	Message string `json:"message,omitempty"`
	Paused  bool   `json:"paused"`
}

// SetPause pauses or resumes the self-reporting task.
//
// @Summary      Pause or resume the reporter
// @Tags         control
// @Accept       json
// @Produce      json
// @Param        body  body      pauseRequest  true  "pausar or reiniciar"
// @Success      200   {object}  pauseResponse
// @Failure      400   {object}  map[string]string
// @Router       /pausar-servico [post]
func (h *ControlHandler) SetPause(c echo.Context) error {
	var req pauseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Payload inválido").SetInternal(err)
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, `O campo "status" deve ser "pausar" ou "reiniciar"`).SetInternal(err)
	}

	paused := req.Status == statusPause
	h.control.SetPaused(paused)

	msg := "Serviço reiniciado com sucesso"
	if paused {
		msg = "Serviço pausado com sucesso"
	}
	return c.JSON(http.StatusOK, pauseResponse{Message: msg, Paused: paused})
}

// Status reports the pause flag.
//
// @Summary      Get the pause flag
// @Tags         control
// @Produce      json
// @Success      200  {object}  pauseResponse
// @Router       /pausar-servico [get]
func (h *ControlHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, pauseResponse{Paused: h.control.IsPaused()})
}
