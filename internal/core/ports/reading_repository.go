package ports

import (
	"context"
	"time"

	"github.com/2emr/sensor-backend/internal/core/domain"
)

// ReadingRepository is the durable reading store. Implementations must be
// safe for concurrent use.
type ReadingRepository interface {
	// Insert assigns ID (and Timestamp when zero) and stores the reading atomically.
	Insert(ctx context.Context, r *domain.Reading) (*domain.Reading, error)
	// ListAll returns every reading in ascending ID order.
	ListAll(ctx context.Context) ([]domain.Reading, error)
	// ListInRange returns readings with start <= Timestamp <= end, ascending.
	ListInRange(ctx context.Context, start, end time.Time) ([]domain.Reading, error)
	// Clear deletes all readings and reports how many were removed.
	Clear(ctx context.Context) (int64, error)
}
