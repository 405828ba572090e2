package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2emr/sensor-backend/internal/core/domain"
	"github.com/2emr/sensor-backend/internal/pkg/clock"
)

var t0 = time.Date(2024, 10, 1, 8, 0, 0, 0, time.UTC)

func TestReadingRepository_InsertAssignsIDAndTimestamp(t *testing.T) {
	fc := clock.NewFake(t0)
	repo := NewReadingRepository(fc)
	ctx := context.Background()

	first, err := repo.Insert(ctx, &domain.Reading{SensorID: 1, Temperature: 21.5, Humidity: 55})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)
	assert.True(t, first.Timestamp.Equal(t0))

	fc.Advance(time.Second)
	second, err := repo.Insert(ctx, &domain.Reading{SensorID: 2, Temperature: 22, Humidity: 60})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)
	assert.True(t, second.Timestamp.Equal(t0.Add(time.Second)))
}

func TestReadingRepository_TimestampNeverDecreases(t *testing.T) {
	fc := clock.NewFake(t0)
	repo := NewReadingRepository(fc)
	ctx := context.Background()

	_, err := repo.Insert(ctx, &domain.Reading{SensorID: 1})
	require.NoError(t, err)

	fc.Set(t0.Add(-time.Minute))
	r, err := repo.Insert(ctx, &domain.Reading{SensorID: 1})
	require.NoError(t, err)
	assert.False(t, r.Timestamp.Before(t0), "timestamp went backwards: %v", r.Timestamp)
}

func TestReadingRepository_ExplicitTimestampKept(t *testing.T) {
	repo := NewReadingRepository(clock.NewFake(t0))
	explicit := t0.Add(-24 * time.Hour)

	r, err := repo.Insert(context.Background(), &domain.Reading{SensorID: 3, Timestamp: explicit})
	require.NoError(t, err)
	assert.True(t, r.Timestamp.Equal(explicit))
}

func TestReadingRepository_ConcurrentInserts(t *testing.T) {
	repo := NewReadingRepository(nil)
	ctx := context.Background()
	const n = 50

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Insert(ctx, &domain.Reading{SensorID: int64(i%2 + 1), Temperature: float64(i)})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, n)

	seen := make(map[int64]bool, n)
	for i, r := range all {
		assert.False(t, seen[r.ID], "duplicate id %d", r.ID)
		seen[r.ID] = true
		if i > 0 {
			assert.Greater(t, r.ID, all[i-1].ID)
			assert.False(t, r.Timestamp.Before(all[i-1].Timestamp))
		}
	}
}

func TestReadingRepository_ListInRangeInclusive(t *testing.T) {
	repo := NewReadingRepository(nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := repo.Insert(ctx, &domain.Reading{SensorID: 1, Timestamp: t0.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
	}

	got, err := repo.ListInRange(ctx, t0.Add(time.Minute), t0.Add(3*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].Timestamp.Equal(t0.Add(time.Minute)))
	assert.True(t, got[2].Timestamp.Equal(t0.Add(3*time.Minute)))

	none, err := repo.ListInRange(ctx, t0.Add(time.Hour), t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}

func TestReadingRepository_ListInRangeOrdersByTimestamp(t *testing.T) {
	repo := NewReadingRepository(nil)
	ctx := context.Background()

	_, _ = repo.Insert(ctx, &domain.Reading{SensorID: 1, Timestamp: t0.Add(2 * time.Minute)})
	_, _ = repo.Insert(ctx, &domain.Reading{SensorID: 1, Timestamp: t0})

	got, err := repo.ListInRange(ctx, t0, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(1), got[1].ID)
}

func TestReadingRepository_Clear(t *testing.T) {
	repo := NewReadingRepository(nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.Insert(ctx, &domain.Reading{SensorID: 1})
		require.NoError(t, err)
	}

	n, err := repo.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	next, err := repo.Insert(ctx, &domain.Reading{SensorID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(4), next.ID, "ids must not be reused after clear")
}
