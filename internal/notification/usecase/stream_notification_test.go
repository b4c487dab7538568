package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/coincraze/authd/internal/notification/entity"
	"github.com/stretchr/testify/assert"
)

func TestStreamNotifications_ReceivesOwnEntriesOnly(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := h.uc.StreamNotifications(ctx, 1)
	h.seed(t, 2, 1)
	seeded := h.seed(t, 1, 1)

	select {
	case got := <-stream:
		assert.Equal(t, seeded[0].ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("no entry on stream")
	}
}

func TestStreamNotifications_ClosedOnCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	stream := h.uc.StreamNotifications(ctx, 1)
	cancel()

	select {
	case _, ok := <-stream:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("stream not closed")
	}

	assert.Zero(t, h.uc.hub.accounts())
}

func TestStreamNotifications_SlowReaderDoesNotBlock(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = h.uc.StreamNotifications(ctx, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range defaultStreamBuffer + 5 {
			_, err := h.uc.Create(authed(1), CreateInput{Title: "t", Message: "m", Currency: "BTC", Amount: ptr(1.0)})
			assert.NoError(t, err)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("create blocked on a full stream")
	}
}

func TestHub_SkipsFullStreams(t *testing.T) {
	// Arrange
	hb := newHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	slow := hb.subscribe(ctx, 1, 1)
	fast := hb.subscribe(ctx, 1, 4)

	// Act
	skipped := []int{
		hb.publish(entity.Notification{ID: 1, AccountID: 1}),
		hb.publish(entity.Notification{ID: 2, AccountID: 1}),
		hb.publish(entity.Notification{ID: 3, AccountID: 2}),
	}

	// Assert
	assert.Equal(t, []int{0, 1, 0}, skipped)
	assert.Len(t, slow, 1)
	assert.Len(t, fast, 2)
}
