package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/2emr/sensor-backend/internal/core/domain"
	"github.com/2emr/sensor-backend/internal/core/ports"
)

type stubReadingRepo struct {
	mu       sync.Mutex
	readings []domain.Reading
	next     int64
	err      error
	lastFrom time.Time
	lastTo   time.Time
}

func (r *stubReadingRepo) Insert(_ context.Context, in *domain.Reading) (*domain.Reading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.next++
	stored := *in
	stored.ID = r.next
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	r.readings = append(r.readings, stored)
	return &stored, nil
}

func (r *stubReadingRepo) ListAll(context.Context) ([]domain.Reading, error) {
	if r.err != nil {
		return nil, r.err
	}
	return nil, nil
}

func (r *stubReadingRepo) ListInRange(_ context.Context, start, end time.Time) ([]domain.Reading, error) {
	r.lastFrom, r.lastTo = start, end
	if r.err != nil {
		return nil, r.err
	}
	return append([]domain.Reading(nil), r.readings...), nil
}

func (r *stubReadingRepo) Clear(context.Context) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	n := int64(len(r.readings))
	r.readings = nil
	return n, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Reading
}

func (p *recordingPublisher) Publish(_ context.Context, r domain.Reading) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, r)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func i64(v int64) *int64 { return &v }

func f64(v float64) *float64 { return &v }

func ts(v time.Time) *time.Time { return &v }

func validInput() ports.ReadingInput {
	return ports.ReadingInput{SensorID: i64(1), Temperature: f64(24.5), Humidity: f64(55.1), Source: "http"}
}

func TestReadingService_Submit_Success(t *testing.T) {
	repo := &stubReadingRepo{}
	pub := &recordingPublisher{}
	svc := NewReadingService(repo, pub, zerolog.Nop())

	stored, err := svc.Submit(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if stored.ID != 1 || stored.SensorID != 1 || stored.Temperature != 24.5 || stored.Humidity != 55.1 {
		t.Fatalf("unexpected stored reading: %+v", stored)
	}
	if pub.count() != 1 {
		t.Fatalf("expected one published event, got %d", pub.count())
	}
	if pub.events[0] != *stored {
		t.Fatalf("published reading differs from stored: %+v vs %+v", pub.events[0], *stored)
	}
}

func TestReadingService_Submit_KeepsTimestamp(t *testing.T) {
	repo := &stubReadingRepo{}
	svc := NewReadingService(repo, &recordingPublisher{}, zerolog.Nop())

	at := time.Date(2024, 3, 1, 10, 30, 0, 0, time.FixedZone("BRT", -3*3600))
	in := validInput()
	in.Timestamp = ts(at)

	stored, err := svc.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if !stored.Timestamp.Equal(at) || stored.Timestamp.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp equal to %v, got %v", at, stored.Timestamp)
	}
}

func TestReadingService_Submit_Validation(t *testing.T) {
	repo := &stubReadingRepo{}
	pub := &recordingPublisher{}
	svc := NewReadingService(repo, pub, zerolog.Nop())

	cases := map[string]func(*ports.ReadingInput){
		"missing sensor":      func(in *ports.ReadingInput) { in.SensorID = nil },
		"missing temperature": func(in *ports.ReadingInput) { in.Temperature = nil },
		"missing humidity":    func(in *ports.ReadingInput) { in.Humidity = nil },
		"nan temperature":     func(in *ports.ReadingInput) { in.Temperature = f64(math.NaN()) },
		"inf humidity":        func(in *ports.ReadingInput) { in.Humidity = f64(math.Inf(1)) },
	}
	for name, mutate := range cases {
		in := validInput()
		mutate(&in)
		if _, err := svc.Submit(context.Background(), in); !errors.Is(err, domain.ErrInvalidReading) {
			t.Fatalf("%s: expected ErrInvalidReading, got %v", name, err)
		}
	}
	if len(repo.readings) != 0 {
		t.Fatalf("invalid readings must not be stored")
	}
	if pub.count() != 0 {
		t.Fatalf("invalid readings must not be published")
	}
}

func TestReadingService_Submit_StorageError(t *testing.T) {
	repo := &stubReadingRepo{err: errors.New("disk full")}
	pub := &recordingPublisher{}
	svc := NewReadingService(repo, pub, zerolog.Nop())

	if _, err := svc.Submit(context.Background(), validInput()); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if pub.count() != 0 {
		t.Fatalf("failed writes must not be published")
	}
}

func TestReadingService_FetchAll_NonNil(t *testing.T) {
	svc := NewReadingService(&stubReadingRepo{}, &recordingPublisher{}, zerolog.Nop())

	readings, err := svc.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}
	if readings == nil || len(readings) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", readings)
	}
}

func TestReadingService_FetchRange(t *testing.T) {
	repo := &stubReadingRepo{}
	svc := NewReadingService(repo, &recordingPublisher{}, zerolog.Nop())

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	if _, err := svc.FetchRange(context.Background(), time.Time{}, end); !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("missing start: expected ErrInvalidRange, got %v", err)
	}
	if _, err := svc.FetchRange(context.Background(), start, time.Time{}); !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("missing end: expected ErrInvalidRange, got %v", err)
	}

	inverted, err := svc.FetchRange(context.Background(), end, start)
	if err != nil || inverted == nil || len(inverted) != 0 {
		t.Fatalf("inverted range: expected empty slice, got %#v, %v", inverted, err)
	}

	if _, err := svc.FetchRange(context.Background(), start, end); err != nil {
		t.Fatalf("FetchRange returned error: %v", err)
	}
	if !repo.lastFrom.Equal(start) || !repo.lastTo.Equal(end) {
		t.Fatalf("repository received wrong bounds: %v..%v", repo.lastFrom, repo.lastTo)
	}
}

func TestReadingService_Purge(t *testing.T) {
	repo := &stubReadingRepo{}
	svc := NewReadingService(repo, &recordingPublisher{}, zerolog.Nop())

	for i := 0; i < 3; i++ {
		if _, err := svc.Submit(context.Background(), validInput()); err != nil {
			t.Fatalf("Submit returned error: %v", err)
		}
	}
	n, err := svc.Purge(context.Background())
	if err != nil {
		t.Fatalf("Purge returned error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 deleted, got %d", n)
	}

	repo.err = errors.New("locked")
	if _, err := svc.Purge(context.Background()); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}
