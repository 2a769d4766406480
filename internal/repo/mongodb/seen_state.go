package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nguyentranbao-ct/deal-monitor/internal/models"
	"github.com/nguyentranbao-ct/deal-monitor/internal/repository"
	"github.com/nguyentranbao-ct/deal-monitor/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const seenStateCollection = "seen_state"

// seenStateDocument stores the whole state in one document so a replace is
// atomic without needing a replica set for transactions.
type seenStateDocument struct {
	Key       string                      `bson:"_id"`
	DealIDs   []string                    `bson:"deal_ids"`
	Deals     map[string]models.SeenEntry `bson:"deals"`
	UpdatedAt time.Time                   `bson:"updated_at"`
}

var _ repository.SeenStateRepository = (*seenStateRepo)(nil)

type seenStateRepo struct {
	collection *mongo.Collection
	key        string
	log        *zap.SugaredLogger
}

func NewSeenStateRepository(db *DB, key string) repository.SeenStateRepository {
	return &seenStateRepo{
		collection: db.Database.Collection(seenStateCollection),
		key:        key,
		log:        logger.Named("mongodb"),
	}
}

func (r *seenStateRepo) Load(ctx context.Context) *models.SeenState {
	var doc seenStateDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": r.key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		r.log.Infow("no seen state document, treating as first run", "key", r.key)
		return models.NewSeenState()
	}
	if err != nil {
		r.log.Warnw("seen state unreadable, treating as first run", "key", r.key, "error", err)
		return models.NewSeenState()
	}
	return fromDocument(doc)
}

func (r *seenStateRepo) Save(ctx context.Context, state *models.SeenState) error {
	doc := toDocument(r.key, state)
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": r.key}, doc, opts); err != nil {
		return fmt.Errorf("%w: failed to save seen state: %w", models.ErrPersistence, err)
	}
	return nil
}

func toDocument(key string, state *models.SeenState) seenStateDocument {
	if state == nil {
		state = models.NewSeenState()
	}
	doc := seenStateDocument{
		Key:       key,
		DealIDs:   state.IDs(),
		Deals:     make(map[string]models.SeenEntry, state.Len()),
		UpdatedAt: bsonTime(state.UpdatedAt),
	}
	for id, e := range state.Entries {
		e.FirstSeen = bsonTime(e.FirstSeen)
		doc.Deals[id] = e
	}
	return doc
}

// bsonTime drops what a BSON datetime cannot hold, so Save then Load is lossless.
func bsonTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func fromDocument(doc seenStateDocument) *models.SeenState {
	state := models.NewSeenState()
	state.UpdatedAt = doc.UpdatedAt.UTC()
	for id, e := range doc.Deals {
		e.FirstSeen = e.FirstSeen.UTC()
		state.Entries[id] = e
	}
	for _, id := range doc.DealIDs {
		if !state.Has(id) {
			state.Entries[id] = models.SeenEntry{FirstSeen: state.UpdatedAt}
		}
	}
	return state
}
