package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// fakeReader serves queued messages, then io.EOF.
type fakeReader struct {
	messages  []kafka.Message
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(context.Context) (kafka.Message, error) {
	if len(r.messages) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumer_Run(t *testing.T) {
	good := testEvent()
	value, err := json.Marshal(good)
	require.NoError(t, err)
	failing := testEvent()
	failingValue, err := json.Marshal(failing)
	require.NoError(t, err)

	reader := &fakeReader{messages: []kafka.Message{
		{Offset: 1, Value: value},
		{Offset: 2, Value: []byte("{not json")},
		{Offset: 3, Value: failingValue},
	}}
	core, recorded := observer.New(zap.ErrorLevel)
	c := &Consumer{reader: reader, logger: zap.New(core)}

	var handled []Event
	c.RegisterHandler(func(_ context.Context, ev Event) error {
		if ev.ID == failing.ID {
			return errors.New("handler failed")
		}
		handled = append(handled, ev)
		return nil
	})

	require.NoError(t, c.Run(context.Background()))

	require.Len(t, handled, 1)
	assert.Equal(t, good.ID, handled[0].ID)
	assert.Equal(t, 1, recorded.FilterMessage("Failed to parse event").Len())
	assert.Equal(t, 1, recorded.FilterMessage("Failed to handle event").Len())

	offsets := make([]int64, 0, len(reader.committed))
	for _, m := range reader.committed {
		offsets = append(offsets, m.Offset)
	}
	assert.Equal(t, []int64{1, 2}, offsets)
}

func TestConsumer_RunWithoutHandler(t *testing.T) {
	c := &Consumer{reader: &fakeReader{}, logger: zaptest.NewLogger(t)}
	assert.Error(t, c.Run(context.Background()))
}

func TestConsumer_Start(t *testing.T) {
	ev := testEvent()
	value, err := json.Marshal(ev)
	require.NoError(t, err)

	t.Run("done closes when the topic drains", func(t *testing.T) {
		reader := &fakeReader{messages: []kafka.Message{{Offset: 7, Value: value}}}
		c := &Consumer{reader: reader, logger: zaptest.NewLogger(t)}
		handled := make(chan Event, 1)
		c.RegisterHandler(func(_ context.Context, got Event) error {
			handled <- got
			return nil
		})

		select {
		case <-c.Start(context.Background()):
		case <-time.After(5 * time.Second):
			t.Fatal("consumer did not stop")
		}
		require.Len(t, handled, 1)
		assert.Equal(t, ev.ID, (<-handled).ID)
		require.Len(t, reader.committed, 1)
		assert.Equal(t, int64(7), reader.committed[0].Offset)
	})

	t.Run("run error is logged", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		c := &Consumer{reader: &fakeReader{}, logger: zap.New(core)}

		select {
		case <-c.Start(context.Background()):
		case <-time.After(5 * time.Second):
			t.Fatal("consumer did not stop")
		}
		assert.Equal(t, 1, recorded.FilterMessage("Consumer stopped").Len())
	})
}

func TestLogHandler(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	ev := testEvent()

	require.NoError(t, LogHandler(zap.New(core))(context.Background(), ev))

	entries := recorded.FilterMessage("Entity event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, ev.ID.String(), entries[0].ContextMap()["entity_id"])
}
