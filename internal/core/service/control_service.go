package service

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/2emr/sensor-backend/internal/pkg/metrics"
)

// ControlService owns the soft-pause flag. The flag is advisory: it is read
// by the self-reporting task only and never gates ingestion.
type ControlService struct {
	paused atomic.Bool
	log    zerolog.Logger
}

func NewControlService(log zerolog.Logger) *ControlService {
	return &ControlService{log: log}
}

func (s *ControlService) SetPaused(paused bool) {
	if s.paused.Swap(paused) != paused {
		s.log.Info().Bool("paused", paused).Msg("pause state changed")
	}
	if paused {
		metrics.ServicePaused.Set(1)
	} else {
		metrics.ServicePaused.Set(0)
	}
}

func (s *ControlService) IsPaused() bool {
	return s.paused.Load()
}
