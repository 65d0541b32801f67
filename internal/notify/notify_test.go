package notify

import (
	"testing"
	"time"

	"github.com/storefront/commerce-backend/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchDeliversInBackground(t *testing.T) {
	rec := NewRecorder()

	Dispatch(rec, Message{Kind: KindOTP, To: "a@example.com", Subject: "code"})
	Dispatch(rec, Message{Kind: KindOrderConfirmation, To: "b@example.com"})

	msgs := rec.WaitFor(2, time.Second)
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.False(t, m.CreatedAt.IsZero())
	}
}

func TestDispatchNilNotifier(t *testing.T) {
	assert.NotPanics(t, func() { Dispatch(nil, Message{}) })
}

func TestNew(t *testing.T) {
	t.Run("Log driver", func(t *testing.T) {
		n, err := New(config.NotifierConfig{Driver: "log", From: "x@y"})
		require.NoError(t, err)
		assert.IsType(t, &LogNotifier{}, n)
	})

	t.Run("Kafka driver without brokers", func(t *testing.T) {
		_, err := New(config.NotifierConfig{Driver: "kafka", Brokers: []string{" "}})
		assert.ErrorIs(t, err, ErrNoBrokers)
	})

	t.Run("Kafka driver builds writer", func(t *testing.T) {
		n, err := New(config.NotifierConfig{Driver: "kafka", Brokers: []string{"localhost:9092"}, Topic: "t"})
		require.NoError(t, err)
		assert.IsType(t, &KafkaNotifier{}, n)
		assert.NoError(t, n.Close())
	})

	t.Run("Unknown driver", func(t *testing.T) {
		_, err := New(config.NotifierConfig{Driver: "carrier-pigeon"})
		assert.Error(t, err)
	})
}

func TestMessageKey(t *testing.T) {
	assert.Equal(t, "business-7", messageKey(Message{BusinessID: 7}))
}
