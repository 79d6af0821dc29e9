package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridate/veridate/internal/ids"
	"github.com/veridate/veridate/internal/types"
)

func TestHub_DeliversToRecipientOnly(t *testing.T) {
	h := NewHub()
	alice, bob := ids.New(), ids.New()

	aliceCh, unsubAlice := h.Subscribe(alice)
	defer unsubAlice()
	bobCh, unsubBob := h.Subscribe(bob)
	defer unsubBob()

	require.NoError(t, h.Publish(context.Background(), types.Notification{ID: "n1", RecipientID: alice}))

	got := <-aliceCh
	assert.Equal(t, "n1", got.ID)
	select {
	case n := <-bobCh:
		t.Fatalf("unexpected notification for bob: %+v", n)
	default:
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub()
	recipient := ids.New()

	ch, unsub := h.Subscribe(recipient)
	_, unsub2 := h.Subscribe(recipient)
	assert.Equal(t, 2, h.Subscribers(recipient))

	unsub()
	unsub()
	assert.Equal(t, 1, h.Subscribers(recipient))
	_, open := <-ch
	assert.False(t, open)

	unsub2()
	assert.Equal(t, 0, h.Subscribers(recipient))
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub()
	recipient := ids.New()
	ch, unsub := h.Subscribe(recipient)
	defer unsub()

	for i := 0; i < subscriberBuffer*2; i++ {
		require.NoError(t, h.Publish(context.Background(), types.Notification{RecipientID: recipient}))
	}
	assert.Len(t, ch, subscriberBuffer)
}
