package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/2emr/sensor-backend/internal/core/domain"
	"github.com/2emr/sensor-backend/internal/pkg/clock"
)

const (
	readingsCollection = "dados_sensores"
	countersCollection = "counters"
	readingsCounterID  = "dados_sensores"
)

// ReadingRepository stores readings in MongoDB. Numeric ids come from an
// atomic $inc on a counter document; ids are never reused, also not after Clear.
type ReadingRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
	clock    clock.Clock
}

func NewReadingRepository(db *mongo.Database, c clock.Clock) *ReadingRepository {
	if c == nil {
		c = clock.Real()
	}
	return &ReadingRepository{
		col:      db.Collection(readingsCollection),
		counters: db.Collection(countersCollection),
		clock:    c,
	}
}

type counterDoc struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

func (r *ReadingRepository) nextID(ctx context.Context) (int64, error) {
	var doc counterDoc
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": readingsCounterID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("next reading id: %w", err)
	}
	return doc.Seq, nil
}

// Insert assigns the id and (when zero) the timestamp, then inserts the document.
func (r *ReadingRepository) Insert(ctx context.Context, in *domain.Reading) (*domain.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.nextID(ctx)
	if err != nil {
		return nil, err
	}

	stored := *in
	stored.ID = id
	if stored.Timestamp.IsZero() {
		stored.Timestamp = r.clock.Now().UTC()
	}
	// BSON dates carry millisecond precision; truncate so the returned record
	// matches what a later read yields.
	stored.Timestamp = stored.Timestamp.Truncate(time.Millisecond)

	if _, err := r.col.InsertOne(ctx, stored); err != nil {
		return nil, fmt.Errorf("insert reading: %w", err)
	}
	return &stored, nil
}

func (r *ReadingRepository) ListAll(ctx context.Context) ([]domain.Reading, error) {
	return r.find(ctx, bson.M{}, bson.D{{Key: "_id", Value: 1}})
}

func (r *ReadingRepository) ListInRange(ctx context.Context, start, end time.Time) ([]domain.Reading, error) {
	filter := bson.M{"timestamp": bson.M{"$gte": start.UTC(), "$lte": end.UTC()}}
	return r.find(ctx, filter, bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
}

func (r *ReadingRepository) Clear(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("clear readings: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *ReadingRepository) find(ctx context.Context, filter bson.M, sort bson.D) ([]domain.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("find readings: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]domain.Reading, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode readings: %w", err)
	}
	for i := range out {
		out[i].Timestamp = out[i].Timestamp.UTC()
	}
	return out, nil
}

// EnsureIndexes creates the timestamp index used by range queries.
func (r *ReadingRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "timestamp", Value: 1}},
	})
	return err
}
