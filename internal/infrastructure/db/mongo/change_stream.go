package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
	"github.com/travelog/partner-lifecycle/internal/core/ports"
)

const (
	// ChangeStreamHistoryLost: the saved resume token has left the oplog.
	codeHistoryLost = 286

	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

// TokenStore persists the change stream position across restarts.
type TokenStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, token []byte) error
}

// ChangeWatcher tails the users collection and hands every update, with
// its pre- and post-image, to the sink.
type ChangeWatcher struct {
	db     *mongo.Database
	coll   *mongo.Collection
	sink   ports.ChangeSink
	tokens TokenStore
	log    zerolog.Logger
}

func NewChangeWatcher(db *mongo.Database, sink ports.ChangeSink, tokens TokenStore, log zerolog.Logger) *ChangeWatcher {
	return &ChangeWatcher{
		db:     db,
		coll:   db.Collection(accountsCollection),
		sink:   sink,
		tokens: tokens,
		log:    log,
	}
}

// EnablePreImages turns on pre- and post-images for the users collection.
// Without it the watcher sees no before snapshot and every change is ignored.
func (w *ChangeWatcher) EnablePreImages(ctx context.Context) error {
	cmd := bson.D{
		{Key: "collMod", Value: accountsCollection},
		{Key: "changeStreamPreAndPostImages", Value: bson.D{{Key: "enabled", Value: true}}},
	}
	if err := w.db.RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("enable pre-images: %w", err)
	}
	return nil
}

// Run watches until ctx is cancelled, reopening the stream with backoff.
func (w *ChangeWatcher) Run(ctx context.Context) error {
	backoff := minBackoff
	for {
		err := w.watch(ctx)
		if ctx.Err() != nil {
			return nil
		}

		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) && cmdErr.Code == codeHistoryLost {
			w.log.Error().Bool("alarm", true).Err(err).Msg("resume token lost, restarting stream from now")
			_ = w.tokens.Save(ctx, nil)
		} else {
			w.log.Warn().Err(err).Dur("backoff", backoff).Msg("change stream interrupted")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (w *ChangeWatcher) watch(ctx context.Context) error {
	opts := options.ChangeStream().
		SetFullDocument(options.WhenAvailable).
		SetFullDocumentBeforeChange(options.WhenAvailable)

	token, err := w.tokens.Load(ctx)
	if err != nil {
		return err
	}
	if len(token) > 0 {
		opts.SetResumeAfter(bson.Raw(token))
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"update", "replace"}}}}}}},
	}
	cs, err := w.coll.Watch(ctx, pipeline, opts)
	if err != nil {
		return fmt.Errorf("open change stream: %w", err)
	}
	defer cs.Close(context.Background())

	w.log.Info().Bool("resumed", len(token) > 0).Msg("change stream opened")

	for cs.Next(ctx) {
		var ev changeEvent
		if err := cs.Decode(&ev); err != nil {
			w.log.Error().Err(err).Msg("undecodable change event")
			continue
		}

		change := ev.toChange(w.log)
		if err := w.sink.Enqueue(ctx, change); err != nil {
			return fmt.Errorf("enqueue change %s: %w", change.ID, err)
		}
		// Saved after enqueue: a crash in between redelivers the event and
		// the dedup claim absorbs it.
		if err := w.tokens.Save(ctx, cs.ResumeToken()); err != nil {
			w.log.Warn().Err(err).Msg("resume token not saved")
		}
	}
	return cs.Err()
}

type changeEvent struct {
	ID            bson.Raw            `bson:"_id"`
	OperationType string              `bson:"operationType"`
	ClusterTime   primitive.Timestamp `bson:"clusterTime"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument             *accountDoc `bson:"fullDocument"`
	FullDocumentBeforeChange *accountDoc `bson:"fullDocumentBeforeChange"`
}

// toChange converts the event. Snapshots that fail to decode are dropped,
// which makes the trigger ignore the change.
func (ev changeEvent) toChange(log zerolog.Logger) domain.AccountChange {
	change := domain.AccountChange{
		ID:         resumeID(ev.ID),
		AccountID:  ev.DocumentKey.ID,
		ObservedAt: time.Now().UTC(),
	}
	if ev.ClusterTime.T != 0 {
		change.ObservedAt = time.Unix(int64(ev.ClusterTime.T), 0).UTC()
	}
	change.Before = snapshot(ev.FullDocumentBeforeChange, ev.DocumentKey.ID, "before", log)
	change.After = snapshot(ev.FullDocument, ev.DocumentKey.ID, "after", log)
	return change
}

func snapshot(doc *accountDoc, id, which string, log zerolog.Logger) *domain.Account {
	if doc == nil {
		return nil
	}
	a, err := doc.toDomain()
	if err != nil {
		log.Warn().Err(err).Str("account_id", id).Str("snapshot", which).Msg("snapshot not decodable")
		return nil
	}
	return a
}

func resumeID(token bson.Raw) string {
	if v, ok := token.Lookup("_data").StringValueOK(); ok {
		return v
	}
	return token.String()
}
