package kafka

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler returns nil once the message is done with, processed or dropped.
// An error means "try again": the consumer retries the same message and does
// not commit past it.
type Handler func(ctx context.Context, m kafka.Message) error

const (
	retryBase = 200 * time.Millisecond
	retryMax  = 10 * time.Second
)

type Consumer struct {
	r       *kafka.Reader
	workers int
	topic   string
}

func NewConsumer(brokers []string, group, topic string, workers int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, topic: topic}
}

// Start fetches until ctx ends. Every partition is pinned to one worker so its
// offsets are handled and committed in order; a committed offset never skips
// a message that is still being retried.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range jobs {
		jobs[i] = make(chan kafka.Message, 64)
		wg.Add(1)
		go func(in <-chan kafka.Message) {
			defer wg.Done()
			for m := range in {
				if !handleWithRetry(ctx, h, m, retryBase, retryMax) {
					// shutting down; the uncommitted message is fetched again on restart
					continue
				}
				if err := c.r.CommitMessages(ctx, m); err != nil {
					log.Printf("[kafka] %s commit partition=%d offset=%d: %v", c.topic, m.Partition, m.Offset, err)
				}
			}
		}(jobs[i])
	}
	defer wg.Wait()
	defer func() {
		for _, ch := range jobs {
			close(ch)
		}
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			// quiet on shutdown
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		select {
		case jobs[m.Partition%c.workers] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

// handleWithRetry runs h until it succeeds, backing off between attempts. It
// reports false only when ctx ended first.
func handleWithRetry(ctx context.Context, h Handler, m kafka.Message, base, ceiling time.Duration) bool {
	wait := base
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			return true
		}
		log.Printf("[kafka] %s partition=%d offset=%d attempt=%d: %v", m.Topic, m.Partition, m.Offset, attempt, err)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
		if wait *= 2; wait > ceiling {
			wait = ceiling
		}
	}
}
