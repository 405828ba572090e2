package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/2emr/sensor-backend/internal/core/domain"
	"github.com/2emr/sensor-backend/internal/pkg/clock"
)

// ReadingRepository keeps readings in insertion order. IDs and server-side
// timestamps are assigned under the write lock, so both are non-decreasing in
// insertion order.
type ReadingRepository struct {
	mu       sync.RWMutex
	readings []domain.Reading
	nextID   int64
	lastTS   time.Time
	clock    clock.Clock
}

func NewReadingRepository(c clock.Clock) *ReadingRepository {
	if c == nil {
		c = clock.Real()
	}
	return &ReadingRepository{clock: c}
}

func (r *ReadingRepository) Insert(_ context.Context, in *domain.Reading) (*domain.Reading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *in
	r.nextID++
	stored.ID = r.nextID

	if stored.Timestamp.IsZero() {
		ts := r.clock.Now().UTC()
		if ts.Before(r.lastTS) {
			ts = r.lastTS
		}
		stored.Timestamp = ts
		r.lastTS = ts
	}

	r.readings = append(r.readings, stored)
	out := stored
	return &out, nil
}

func (r *ReadingRepository) ListAll(_ context.Context) ([]domain.Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Reading, len(r.readings))
	copy(out, r.readings)
	return out, nil
}

func (r *ReadingRepository) ListInRange(_ context.Context, start, end time.Time) ([]domain.Reading, error) {
	r.mu.RLock()
	out := make([]domain.Reading, 0)
	for _, rd := range r.readings {
		if rd.Timestamp.Before(start) || rd.Timestamp.After(end) {
			continue
		}
		out = append(out, rd)
	}
	r.mu.RUnlock()

	// Explicit timestamps may arrive out of order.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// Clear removes every reading. The ID counter is not reset.
func (r *ReadingRepository) Clear(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.readings))
	r.readings = nil
	return n, nil
}
