package source

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/stetsonscene/scene/backend/internal/domain"
)

// messageReader is the part of *kafka.Reader the feed uses.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// readRetryDelay is how long a consumer waits after a failed read.
const readRetryDelay = time.Second

// KafkaFeed turns two topics into the channels the session watches: any
// message on the update topic requests a refresh, and each message on the
// counter topic carries one numberAttending value.
type KafkaFeed struct {
	updates  messageReader
	counters messageReader
	log      *slog.Logger

	refreshCh chan struct{}
	counterCh chan domain.CounterUpdate
	closeOnce sync.Once
}

// FeedConfig names the brokers and topics of a KafkaFeed.
type FeedConfig struct {
	Brokers      []string
	UpdateTopic  string
	CounterTopic string
	GroupID      string
}

// NewKafkaFeed creates one reader per topic in the given consumer group.
func NewKafkaFeed(cfg FeedConfig, log *slog.Logger) *KafkaFeed {
	updates := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.UpdateTopic,
		GroupID: cfg.GroupID,
	})
	counters := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.CounterTopic,
		GroupID: cfg.GroupID,
	})
	return newKafkaFeed(updates, counters, log)
}

func newKafkaFeed(updates, counters messageReader, log *slog.Logger) *KafkaFeed {
	if log == nil {
		log = slog.Default()
	}
	return &KafkaFeed{
		updates:   updates,
		counters:  counters,
		log:       log,
		refreshCh: make(chan struct{}, 1),
		counterCh: make(chan domain.CounterUpdate, 64),
	}
}

// Refreshes yields one value per burst of update messages. Pending
// requests coalesce, so a slow consumer sees at most one queued refresh.
func (f *KafkaFeed) Refreshes() <-chan struct{} { return f.refreshCh }

// Counters yields live numberAttending values.
func (f *KafkaFeed) Counters() <-chan domain.CounterUpdate { return f.counterCh }

// Run consumes both topics until ctx is done or both readers are
// exhausted, then closes the channels.
func (f *KafkaFeed) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		f.consume(ctx, f.updates, f.handleUpdate)
	}()
	go func() {
		defer wg.Done()
		f.consume(ctx, f.counters, f.handleCounter)
	}()
	wg.Wait()
	close(f.refreshCh)
	close(f.counterCh)
}

// Close unsubscribes from both topics.
func (f *KafkaFeed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		err = errors.Join(f.updates.Close(), f.counters.Close())
	})
	return err
}

func (f *KafkaFeed) consume(ctx context.Context, r messageReader, handle func(context.Context, kafka.Message)) {
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			f.log.WarnContext(ctx, "kafka read failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(readRetryDelay):
			}
			continue
		}
		handle(ctx, msg)
	}
}

func (f *KafkaFeed) handleUpdate(_ context.Context, _ kafka.Message) {
	select {
	case f.refreshCh <- struct{}{}:
	default:
	}
}

// handleCounter falls back to the message key when the payload has no id.
func (f *KafkaFeed) handleCounter(ctx context.Context, msg kafka.Message) {
	var u domain.CounterUpdate
	if err := json.Unmarshal(msg.Value, &u); err != nil {
		f.log.WarnContext(ctx, "invalid counter message", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return
	}
	if u.ID == "" {
		u.ID = string(msg.Key)
	}
	if u.ID == "" {
		f.log.WarnContext(ctx, "counter message without event id", "topic", msg.Topic, "offset", msg.Offset)
		return
	}
	select {
	case f.counterCh <- u:
	case <-ctx.Done():
	}
}
