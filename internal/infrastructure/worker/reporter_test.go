package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2emr/sensor-backend/internal/core/domain"
	"github.com/2emr/sensor-backend/internal/core/ports"
)

type stubReadings struct {
	mu     sync.Mutex
	inputs []ports.ReadingInput
	err    error
}

func (s *stubReadings) Submit(_ context.Context, in ports.ReadingInput) (*domain.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.inputs = append(s.inputs, in)
	return &domain.Reading{ID: int64(len(s.inputs)), SensorID: *in.SensorID}, nil
}

func (s *stubReadings) FetchAll(context.Context) ([]domain.Reading, error) { return nil, nil }

func (s *stubReadings) FetchRange(context.Context, time.Time, time.Time) ([]domain.Reading, error) {
	return nil, nil
}

func (s *stubReadings) Purge(context.Context) (int64, error) { return 0, nil }

func (s *stubReadings) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inputs)
}

type flag struct{ v atomic.Bool }

func (f *flag) IsPaused() bool { return f.v.Load() }

func TestReporter_TickSubmits(t *testing.T) {
	readings := &stubReadings{}
	r := NewReporter(readings, &flag{}, time.Second, zerolog.Nop())

	for i := 0; i < 50; i++ {
		require.Equal(t, outcomeSubmitted, r.tick(context.Background()))
	}

	require.Equal(t, 50, readings.count())
	for _, in := range readings.inputs {
		assert.Contains(t, []int64{1, 2}, *in.SensorID)
		assert.GreaterOrEqual(t, *in.Temperature, 20.0)
		assert.LessOrEqual(t, *in.Temperature, 30.0)
		assert.GreaterOrEqual(t, *in.Humidity, 40.0)
		assert.LessOrEqual(t, *in.Humidity, 70.0)
		assert.Equal(t, round2(*in.Temperature), *in.Temperature)
		assert.Equal(t, "reporter", in.Source)
	}
}

func TestReporter_TickSkipsWhilePaused(t *testing.T) {
	readings := &stubReadings{}
	paused := &flag{}
	paused.v.Store(true)
	r := NewReporter(readings, paused, time.Second, zerolog.Nop())

	assert.Equal(t, outcomeSkipped, r.tick(context.Background()))
	assert.Equal(t, 0, readings.count())

	paused.v.Store(false)
	assert.Equal(t, outcomeSubmitted, r.tick(context.Background()))
	assert.Equal(t, 1, readings.count())
}

func TestReporter_TickFailure(t *testing.T) {
	r := NewReporter(&stubReadings{err: errors.New("down")}, &flag{}, time.Second, zerolog.Nop())
	assert.Equal(t, outcomeFailed, r.tick(context.Background()))
}

func TestReporter_RunStopsOnCancel(t *testing.T) {
	readings := &stubReadings{}
	r := NewReporter(readings, &flag{}, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return readings.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 23.46, round2(23.456))
	assert.Equal(t, 40.0, round2(39.999))
}
