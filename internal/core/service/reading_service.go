package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/2emr/sensor-backend/internal/pkg/metrics"
	"github.com/2emr/sensor-backend/internal/core/domain"
	"github.com/2emr/sensor-backend/internal/core/ports"
)

type readingService struct {
	repo      ports.ReadingRepository
	publisher ports.Publisher
	log       zerolog.Logger
}

// NewReadingService returns the ingestion gateway. publisher receives every
// stored reading; it is never consulted before the write.
func NewReadingService(repo ports.ReadingRepository, publisher ports.Publisher, log zerolog.Logger) ports.ReadingService {
	return &readingService{repo: repo, publisher: publisher, log: log}
}

// Submit validates, stores, and publishes a single reading.
func (s *readingService) Submit(ctx context.Context, in ports.ReadingInput) (*domain.Reading, error) {
	if err := validateReading(in); err != nil {
		metrics.ReadingsIngestErrorsTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	r := &domain.Reading{
		SensorID:    *in.SensorID,
		Temperature: *in.Temperature,
		Humidity:    *in.Humidity,
	}
	if in.Timestamp != nil {
		r.Timestamp = in.Timestamp.UTC()
	}

	stored, err := s.repo.Insert(ctx, r)
	if err != nil {
		metrics.ReadingsIngestErrorsTotal.WithLabelValues("storage").Inc()
		s.log.Error().Err(err).Int64("sensor_id", r.SensorID).Str("source", in.Source).Msg("insert reading failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}

	source := in.Source
	if source == "" {
		source = "unknown"
	}
	metrics.ReadingsIngestedTotal.WithLabelValues(source).Inc()

	s.publisher.Publish(ctx, *stored)

	s.log.Debug().
		Int64("id", stored.ID).
		Int64("sensor_id", stored.SensorID).
		Float64("temperatura", stored.Temperature).
		Float64("umidade", stored.Humidity).
		Str("source", source).
		Msg("reading stored")

	return stored, nil
}

func (s *readingService) FetchAll(ctx context.Context) ([]domain.Reading, error) {
	readings, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return nonNil(readings), nil
}

// FetchRange requires both bounds. An inverted range is not an error; it
// simply matches nothing.
func (s *readingService) FetchRange(ctx context.Context, start, end time.Time) ([]domain.Reading, error) {
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("%w: start and end are required", domain.ErrInvalidRange)
	}
	if start.After(end) {
		return []domain.Reading{}, nil
	}

	readings, err := s.repo.ListInRange(ctx, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return nonNil(readings), nil
}

func (s *readingService) Purge(ctx context.Context) (int64, error) {
	n, err := s.repo.Clear(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	metrics.ReadingsPurgedTotal.Add(float64(n))
	s.log.Info().Int64("deleted", n).Msg("readings purged")
	return n, nil
}

func validateReading(in ports.ReadingInput) error {
	switch {
	case in.SensorID == nil:
		return fmt.Errorf("%w: sensor_id is required", domain.ErrInvalidReading)
	case in.Temperature == nil:
		return fmt.Errorf("%w: temperatura is required", domain.ErrInvalidReading)
	case in.Humidity == nil:
		return fmt.Errorf("%w: umidade is required", domain.ErrInvalidReading)
	case !finite(*in.Temperature):
		return fmt.Errorf("%w: temperatura must be a finite number", domain.ErrInvalidReading)
	case !finite(*in.Humidity):
		return fmt.Errorf("%w: umidade must be a finite number", domain.ErrInvalidReading)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func nonNil(rs []domain.Reading) []domain.Reading {
	if rs == nil {
		return []domain.Reading{}
	}
	return rs
}
