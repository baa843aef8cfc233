package source

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stetsonscene/scene/backend/internal/domain"
)

// fakeReader replays msgs, then reports io.EOF or blocks until ctx ends.
type fakeReader struct {
	msgs   []kafka.Message
	errs   []error
	block  bool
	closed bool
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return kafka.Message{}, err
	}
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		return m, nil
	}
	if r.block {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	return kafka.Message{}, io.EOF
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

var _ messageReader = (*fakeReader)(nil)

func TestKafkaFeed_Run(t *testing.T) {
	updates := &fakeReader{msgs: []kafka.Message{{Value: []byte("a")}, {Value: []byte("b")}, {Value: []byte("c")}}}
	counters := &fakeReader{msgs: []kafka.Message{
		{Value: []byte(`{"id":"evt-1","numberAttending":4}`)},
		{Value: []byte(`not json`)},
		{Key: []byte("evt-2"), Value: []byte(`{"numberAttending":9}`)},
		{Value: []byte(`{"numberAttending":1}`)},
	}}
	f := newKafkaFeed(updates, counters, nil)

	f.Run(context.Background())

	var refreshes int
	for range f.Refreshes() {
		refreshes++
	}
	assert.Equal(t, 1, refreshes, "bursts coalesce")

	var got []domain.CounterUpdate
	for u := range f.Counters() {
		got = append(got, u)
	}
	assert.Equal(t, []domain.CounterUpdate{
		{ID: "evt-1", NumberAttending: 4},
		{ID: "evt-2", NumberAttending: 9},
	}, got)
}

func TestKafkaFeed_Run_stopsOnContext(t *testing.T) {
	f := newKafkaFeed(&fakeReader{block: true}, &fakeReader{block: true}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	_, open := <-f.Refreshes()
	assert.False(t, open)
}

func TestKafkaFeed_Close(t *testing.T) {
	updates, counters := &fakeReader{}, &fakeReader{}
	f := newKafkaFeed(updates, counters, nil)

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	assert.True(t, updates.closed)
	assert.True(t, counters.closed)
}

func TestKafkaFeed_consume_retriesAfterError(t *testing.T) {
	updates := &fakeReader{
		errs: []error{errors.New("broker unavailable")},
		msgs: []kafka.Message{{Value: []byte("x")}},
	}
	f := newKafkaFeed(updates, &fakeReader{}, nil)

	f.Run(context.Background())

	_, ok := <-f.Refreshes()
	assert.True(t, ok, "message after the failed read is delivered")
}
