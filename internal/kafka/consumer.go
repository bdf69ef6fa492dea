package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler processes one message. A returned error is logged; the offset is
// committed either way since nothing is retried.
type Handler func(ctx context.Context, m kafka.Message) error

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r       reader
	workers int
	log     *zap.Logger
	// HandlerTimeout bounds one handler call. Handlers do not see the
	// cancellation of Start's context, so an in-flight message finishes on shutdown.
	HandlerTimeout time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // commit manual
	})
	return newConsumer(r, workers, log)
}

func newConsumer(r reader, workers int, log *zap.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{r: r, workers: workers, log: log.Named("kafka.consumer"), HandlerTimeout: 30 * time.Second}
}

// Start fetches messages and hands them to the workers until ctx is cancelled.
// It returns nil on cancellation and the fetch error otherwise.
//
// A partition always goes to the same worker, so its offsets are committed in
// order. Messages fetched but not yet handed to a worker when ctx ends are left
// uncommitted and the group delivers them again.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	jobs := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range jobs {
		jobs[i] = make(chan kafka.Message)
		wg.Add(1)
		go func(worker int, in <-chan kafka.Message) {
			defer wg.Done()
			for m := range in {
				c.handle(ctx, worker, h, m)
			}
		}(i, jobs[i])
	}

	err := c.dispatch(ctx, jobs)
	for _, ch := range jobs {
		close(ch)
	}
	wg.Wait()
	if cerr := c.r.Close(); cerr != nil {
		c.log.Warn("close reader", zap.Error(cerr))
	}
	return err
}

func (c *Consumer) dispatch(ctx context.Context, jobs []chan kafka.Message) error {
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		select {
		case jobs[m.Partition%len(jobs)] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Consumer) handle(ctx context.Context, worker int, h Handler, m kafka.Message) {
	log := c.log.With(zap.Int("worker", worker), zap.String("topic", m.Topic),
		zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset))
	if ctx.Err() != nil {
		log.Debug("shutting down, message left for redelivery")
		return
	}

	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.HandlerTimeout)
	defer cancel()
	if err := h(hctx, m); err != nil {
		log.Warn("handle message", zap.Error(err))
	}
	if err := c.r.CommitMessages(hctx, m); err != nil {
		log.Error("commit message", zap.Error(err))
	}
}
