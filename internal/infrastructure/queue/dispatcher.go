package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/africtivistes/adisa/internal/core/ports"
	"github.com/africtivistes/adisa/internal/pkg/metrics"
)

const (
	defaultWorkers = 2
	channelBuffer  = 128
	sendTimeout    = 15 * time.Second
	maxAttempts    = 3
)

var (
	ErrQueueFull   = errors.New("mail queue full")
	ErrQueueClosed = errors.New("mail queue closed")
)

// MailDispatcher hands messages to a fixed set of workers that deliver them
// through the wrapped Mailer. Messages to the same recipient go to the same
// worker and are delivered in order.
type MailDispatcher struct {
	workers []chan ports.Message
	mailer  ports.Mailer
	log     zerolog.Logger
	backoff time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewMailDispatcher creates a MailDispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewMailDispatcher(numWorkers int, mailer ports.Mailer, log zerolog.Logger) *MailDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &MailDispatcher{
		workers: make([]chan ports.Message, numWorkers),
		mailer:  mailer,
		log:     log,
		backoff: time.Second,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.Message, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled or
// after Close has drained their queue.
func (d *MailDispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Send queues msg for delivery and returns without waiting for it.
func (d *MailDispatcher) Send(_ context.Context, msg ports.Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}

	select {
	case d.workers[d.shardIndex(msg.To)] <- msg:
		return nil
	default:
		metrics.EmailsTotal.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

// Close stops accepting messages and waits for queued ones to be delivered.
func (d *MailDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *MailDispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipient))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *MailDispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.Message) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			d.deliver(ctx, id, msg)
		}
	}
}

func (d *MailDispatcher) deliver(ctx context.Context, worker int, msg ports.Message) {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err = d.mailer.Send(sendCtx, msg)
		cancel()
		if err == nil {
			metrics.EmailsTotal.WithLabelValues("sent").Inc()
			return
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.backoff * time.Duration(attempt)):
		}
	}

	metrics.EmailsTotal.WithLabelValues("failed").Inc()
	d.log.Error().Err(err).
		Str("subject", msg.Subject).
		Int("worker_id", worker).
		Int("attempts", maxAttempts).
		Msg("email delivery failed")
}
