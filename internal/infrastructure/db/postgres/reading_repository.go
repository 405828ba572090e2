package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/2emr/sensor-backend/internal/core/domain"
)

const readingColumns = `id, sensor_id, temperatura, umidade, timestamp`

// ReadingRepository stores readings in the dados_sensores table. Ids come from
// the BIGSERIAL sequence and are never reused; the timestamp defaults to now()
// on the database side when the caller leaves it zero.
type ReadingRepository struct {
	pool *pgxpool.Pool
}

func NewReadingRepository(pool *pgxpool.Pool) *ReadingRepository {
	return &ReadingRepository{pool: pool}
}

func (r *ReadingRepository) Insert(ctx context.Context, in *domain.Reading) (*domain.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	const q = `INSERT INTO dados_sensores (sensor_id, temperatura, umidade, timestamp)
		VALUES ($1, $2, $3, COALESCE($4, now()))
		RETURNING ` + readingColumns

	var ts *time.Time
	if !in.Timestamp.IsZero() {
		t := in.Timestamp.UTC()
		ts = &t
	}

	row := r.pool.QueryRow(ctx, q, in.SensorID, in.Temperature, in.Humidity, ts)
	stored, err := scanReading(row)
	if err != nil {
		return nil, fmt.Errorf("insert reading: %w", err)
	}
	return &stored, nil
}

func (r *ReadingRepository) ListAll(ctx context.Context) ([]domain.Reading, error) {
	return r.list(ctx, `SELECT `+readingColumns+` FROM dados_sensores ORDER BY id`)
}

func (r *ReadingRepository) ListInRange(ctx context.Context, start, end time.Time) ([]domain.Reading, error) {
	return r.list(ctx,
		`SELECT `+readingColumns+` FROM dados_sensores WHERE timestamp BETWEEN $1 AND $2 ORDER BY timestamp, id`,
		start.UTC(), end.UTC())
}

func (r *ReadingRepository) Clear(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM dados_sensores`)
	if err != nil {
		return 0, fmt.Errorf("clear readings: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *ReadingRepository) list(ctx context.Context, q string, args ...any) ([]domain.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Reading, 0)
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		out = append(out, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	return out, nil
}

func scanReading(row pgx.Row) (domain.Reading, error) {
	var rd domain.Reading
	if err := row.Scan(&rd.ID, &rd.SensorID, &rd.Temperature, &rd.Humidity, &rd.Timestamp); err != nil {
		return domain.Reading{}, err
	}
	rd.Timestamp = rd.Timestamp.UTC()
	return rd, nil
}
