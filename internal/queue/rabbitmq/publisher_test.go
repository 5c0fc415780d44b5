package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/dreamluck-server/internal/model"
	"github.com/dtroode/dreamluck-server/internal/testutil"
)

type fakeChannel struct {
	published []amqp.Publishing
	keys      []string
	err       error
	closed    bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher("events", func() (channel, error) { return ch, nil }, nil, testutil.MakeNoopLogger())

	event := model.Event{
		Type:       model.EventDreamCompleted,
		UserID:     "u1",
		RecordID:   "r1",
		Color:      "blue",
		OccurredAt: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, "events", ch.keys[0])
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "dream.completed", msg.Type)
	assert.NotEmpty(t, msg.MessageId)

	var got model.Event
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, event, got)
}

func TestPublisher_ReopensAfterFailure(t *testing.T) {
	broken := &fakeChannel{err: errors.New("channel closed")}
	healthy := &fakeChannel{}
	opened := 0
	p := newPublisher("events", func() (channel, error) {
		opened++
		if opened == 1 {
			return broken, nil
		}
		return healthy, nil
	}, nil, testutil.MakeNoopLogger())

	err := p.Publish(context.Background(), model.Event{Type: model.EventDreamFailed})
	require.ErrorContains(t, err, "failed to publish event")
	assert.True(t, broken.closed)

	require.NoError(t, p.Publish(context.Background(), model.Event{Type: model.EventDreamFailed}))
	assert.Equal(t, 2, opened)
	assert.Len(t, healthy.published, 1)
}

func TestPublisher_OpenError(t *testing.T) {
	p := newPublisher("events", func() (channel, error) { return nil, errors.New("no broker") }, nil, testutil.MakeNoopLogger())
	assert.Error(t, p.Publish(context.Background(), model.Event{}))
}

func TestPublisher_Close(t *testing.T) {
	ch := &fakeChannel{}
	connClosed := false
	p := newPublisher("events", func() (channel, error) { return ch, nil }, func() error {
		connClosed = true
		return nil
	}, testutil.MakeNoopLogger())
	require.NoError(t, p.Publish(context.Background(), model.Event{}))

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
	assert.True(t, connClosed)
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.Publish(context.Background(), model.Event{}))
	assert.NoError(t, Noop{}.Close())
}
