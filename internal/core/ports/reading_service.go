package ports

import (
	"context"
	"time"

	"github.com/2emr/sensor-backend/internal/core/domain"
)

// ReadingInput is the DTO passed from a transport (HTTP, MQTT, reporter) to
// ReadingService. Pointer fields distinguish "absent" from zero.
type ReadingInput struct {
	SensorID    *int64
	Temperature *float64
	Humidity    *float64
	Timestamp   *time.Time // optional, server time when nil
	Source      string
}

// ReadingService is the ingestion gateway use-case layer.
type ReadingService interface {
	Submit(ctx context.Context, in ReadingInput) (*domain.Reading, error)
	FetchAll(ctx context.Context) ([]domain.Reading, error)
	FetchRange(ctx context.Context, start, end time.Time) ([]domain.Reading, error)
	Purge(ctx context.Context) (int64, error)
}

// Publisher receives every successfully stored reading for fan-out.
// Delivery is best effort, so there is no error to return.
type Publisher interface {
	Publish(ctx context.Context, r domain.Reading)
}
