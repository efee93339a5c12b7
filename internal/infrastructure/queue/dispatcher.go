package queue

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/travelog/partner-lifecycle/internal/api/metrics"
	"github.com/travelog/partner-lifecycle/internal/core/domain"
	"github.com/travelog/partner-lifecycle/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Dispatcher routes account changes to a fixed set of workers using
// consistent hashing on the account id, guaranteeing per-account ordering.
type Dispatcher struct {
	workers []chan domain.AccountChange
	handler ports.ChangeHandler
	log     zerolog.Logger
	done    chan struct{}
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, handler ports.ChangeHandler, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.AccountChange, numWorkers),
		handler: handler,
		log:     log,
		done:    make(chan struct{}),
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AccountChange, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled;
// Done is closed once every worker has returned.
func (d *Dispatcher) Start(ctx context.Context) {
	finished := make(chan struct{}, len(d.workers))
	for i, ch := range d.workers {
		go func(id int, ch <-chan domain.AccountChange) {
			d.runWorker(ctx, id, ch)
			finished <- struct{}{}
		}(i, ch)
	}
	go func() {
		for range d.workers {
			<-finished
		}
		close(d.done)
	}()
}

// Done is closed after all workers stopped.
func (d *Dispatcher) Done() <-chan struct{} { return d.done }

// Enqueue sends a change to the worker responsible for its account. It
// blocks while that worker's buffer is full, until ctx is done.
func (d *Dispatcher) Enqueue(ctx context.Context, change domain.AccountChange) error {
	idx := d.shardIndex(change.AccountID)
	select {
	case d.workers[idx] <- change:
		metrics.ChangeQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps an account id deterministically to a worker index.
func (d *Dispatcher) shardIndex(accountID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(accountID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AccountChange) {
	depth := metrics.ChangeQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-ch:
			if !ok {
				return
			}
			depth.Set(float64(len(ch)))
			outcome := d.handler.Handle(ctx, change)
			d.log.Debug().
				Str("change_id", change.ID).
				Str("account_id", change.AccountID).
				Str("outcome", string(outcome)).
				Int("worker_id", id).
				Msg("change handled")
		}
	}
}
