// Package worker holds background tasks that run beside the HTTP server.
package worker

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/2emr/sensor-backend/internal/pkg/metrics"
	"github.com/2emr/sensor-backend/internal/core/ports"
)

const (
	outcomeSubmitted = "submitted"
	outcomeSkipped   = "skipped"
	outcomeFailed    = "failed"
)

var reporterSensors = []int64{1, 2}

// Reporter periodically submits a synthetic reading for one of the demo
// sensors. It is the only consumer of the pause flag: while paused, ticks are
// skipped; ingestion from other sources is unaffected.
type Reporter struct {
	readings ports.ReadingService
	pause    ports.PauseState
	interval time.Duration
	log      zerolog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewReporter(readings ports.ReadingService, pause ports.PauseState, interval time.Duration, log zerolog.Logger) *Reporter {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Reporter{
		readings: readings,
		pause:    pause,
		interval: interval,
		log:      log,
		rnd:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5e15)),
	}
}

// Run ticks every interval until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) error {
	r.log.Info().Dur("interval", r.interval).Msg("reporter started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("reporter stopped")
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Reporter) tick(ctx context.Context) string {
	if r.pause.IsPaused() {
		metrics.ReporterTicksTotal.WithLabelValues(outcomeSkipped).Inc()
		r.log.Debug().Msg("reporter paused, tick skipped")
		return outcomeSkipped
	}

	sensorID, temp, hum := r.sample()
	stored, err := r.readings.Submit(ctx, ports.ReadingInput{
		SensorID:    &sensorID,
		Temperature: &temp,
		Humidity:    &hum,
		Source:      "reporter",
	})
	if err != nil {
		metrics.ReporterTicksTotal.WithLabelValues(outcomeFailed).Inc()
		r.log.Error().Err(err).Msg("reporter submit failed")
		return outcomeFailed
	}

	metrics.ReporterTicksTotal.WithLabelValues(outcomeSubmitted).Inc()
	r.log.Debug().Int64("id", stored.ID).Int64("sensor_id", sensorID).Msg("reporter reading submitted")
	return outcomeSubmitted
}

// sample draws a sensor id, a temperature in [20, 30] and a humidity in
// [40, 70], both rounded to two decimals.
func (r *Reporter) sample() (int64, float64, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := reporterSensors[r.rnd.IntN(len(reporterSensors))]
	temp := round2(20 + r.rnd.Float64()*10)
	hum := round2(40 + r.rnd.Float64()*30)
	return id, temp, hum
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
