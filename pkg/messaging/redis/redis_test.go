package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-api/pkg/circuitbreaker"
	"github.com/jwalitptl/patient-api/pkg/messaging"
)

func newBroker(t *testing.T) (*RedisBroker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	b, err := NewRedisBroker(context.Background(), Config{
		URL:             "redis://" + mr.Addr(),
		MaxRetries:      -1,
		BreakerFailures: 2,
		BreakerTimeout:  time.Hour,
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b, mr
}

func TestPublishDeliversToSubscribers(t *testing.T) {
	b, mr := newBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = consumer.Close() })

	channel := messaging.Channel("patients", "patient.created")
	sub := consumer.Subscribe(ctx, channel)
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	sent := messaging.Message{ID: "1", Type: "patient.created", Payload: json.RawMessage(`{"patient_id":7}`)}
	require.NoError(t, b.Publish(ctx, channel, sent))

	select {
	case msg := <-sub.Channel():
		var got messaging.Message
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "patient.created", got.Type)
		assert.JSONEq(t, `{"patient_id":7}`, string(got.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}
}

func TestPublishOpensBreakerWhenRedisIsDown(t *testing.T) {
	b, mr := newBroker(t)
	mr.Close()

	ctx := context.Background()
	assert.Error(t, b.Publish(ctx, "c", "x"))
	assert.Error(t, b.Publish(ctx, "c", "x"))
	assert.ErrorIs(t, b.Publish(ctx, "c", "x"), circuitbreaker.ErrOpen)
}

func TestNewRedisBrokerRejectsBadURL(t *testing.T) {
	_, err := NewRedisBroker(context.Background(), Config{URL: "://nope"}, zerolog.Nop())
	assert.Error(t, err)
}
