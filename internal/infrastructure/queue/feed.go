package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/travelog/partner-lifecycle/internal/core/domain"
	"github.com/travelog/partner-lifecycle/internal/core/ports"
)

// enqueueTimeout bounds how long an Update waits for a full worker queue.
const enqueueTimeout = 2 * time.Second

// FeedRepository decorates an AccountRepository so that every successful
// Update is published as an AccountChange. It is the in-process change
// feed; the trigger itself must write through the undecorated store.
type FeedRepository struct {
	ports.AccountRepository
	sink    ports.ChangeSink
	log     zerolog.Logger
	timeout time.Duration
}

func NewFeedRepository(inner ports.AccountRepository, sink ports.ChangeSink, log zerolog.Logger) *FeedRepository {
	return &FeedRepository{AccountRepository: inner, sink: sink, log: log, timeout: enqueueTimeout}
}

func (r *FeedRepository) Update(ctx context.Context, id string, patch ports.AccountPatch) (*domain.Account, *domain.Account, error) {
	before, after, err := r.AccountRepository.Update(ctx, id, patch)
	if err != nil {
		return nil, nil, err
	}

	change := domain.AccountChange{
		ID:         uuid.NewString(),
		AccountID:  id,
		Before:     before.Clone(),
		After:      after.Clone(),
		ObservedAt: time.Now().UTC(),
	}
	// The write already happened; losing the event only loses the side
	// effect, which the resend action can replay.
	ectx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	if err := r.sink.Enqueue(ectx, change); err != nil {
		ev := r.log.Error().Err(err).Str("account_id", id).Str("change_id", change.ID)
		if errors.Is(err, context.DeadlineExceeded) {
			ev = ev.Dur("waited", r.timeout)
		}
		ev.Msg("change not enqueued")
	}
	return before, after, nil
}
