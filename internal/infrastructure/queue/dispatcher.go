package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/docuchat/admin-gateway/internal/api/metrics"
	"github.com/docuchat/admin-gateway/internal/core/domain"
	"github.com/docuchat/admin-gateway/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 128
	writeTimeout   = 5 * time.Second
)

// Dispatcher routes transcript writes to a fixed set of workers using
// consistent hashing on the conversation ID, so exchanges of one
// conversation are persisted in ask order.
type Dispatcher struct {
	workers []chan domain.ChatExchange
	repo    ports.ChatRepository
	log     zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, repo ports.ChatRepository, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.ChatExchange, numWorkers),
		repo:    repo,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.ChatExchange, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers run until Stop drains them.
func (d *Dispatcher) Start() {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(i, ch)
	}
}

// Enqueue hands an exchange to the worker responsible for its conversation.
// Non-blocking up to channelBuffer capacity per worker. After Stop the
// exchange is dropped with a log line instead of panicking on a closed
// channel.
func (d *Dispatcher) Enqueue(ex domain.ChatExchange) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.log.Warn().Str("conversation_id", ex.ConversationID).Msg("transcript dropped, dispatcher stopped")
		return
	}
	idx := d.shardIndex(ex.ConversationID)
	d.workers[idx] <- ex
	metrics.TranscriptQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
}

// Stop closes the worker queues and blocks until every buffered exchange
// has been written, so a graceful shutdown loses no transcripts that were
// accepted before it. Idempotent.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

// shardIndex maps a conversation ID deterministically to a worker index.
func (d *Dispatcher) shardIndex(conversationID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(conversationID))
	return int(h.Sum32()) % len(d.workers)
}

// runWorker drains its queue until it is closed. Each write gets its own
// timeout context so the drain cannot hang on a stuck repository.
func (d *Dispatcher) runWorker(id int, ch <-chan domain.ChatExchange) {
	defer d.wg.Done()
	for ex := range ch {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := d.repo.Append(ctx, ex); err != nil {
			d.log.Error().Err(err).
				Str("conversation_id", ex.ConversationID).
				Int("worker_id", id).
				Msg("transcript write failed")
		}
		cancel()
		metrics.TranscriptQueueDepth.WithLabelValues(strconv.Itoa(id)).Set(float64(len(ch)))
	}
}
