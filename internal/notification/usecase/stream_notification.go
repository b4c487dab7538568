package usecase

import (
	"context"
	"sync"

	"github.com/coincraze/authd/internal/notification/entity"
)

const defaultStreamBuffer = 16

// hub fans new entries out to the open streams of their owner.
type hub struct {
	mu   sync.RWMutex
	subs map[int64]map[chan entity.Notification]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[int64]map[chan entity.Notification]struct{})}
}

// subscribe registers a stream for accountID that lives until ctx is done,
// at which point the channel is closed.
func (h *hub) subscribe(ctx context.Context, accountID int64, buffer int) <-chan entity.Notification {
	ch := make(chan entity.Notification, buffer)

	h.mu.Lock()
	if h.subs[accountID] == nil {
		h.subs[accountID] = make(map[chan entity.Notification]struct{})
	}
	h.subs[accountID][ch] = struct{}{}
	h.mu.Unlock()

	context.AfterFunc(ctx, func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		delete(h.subs[accountID], ch)
		if len(h.subs[accountID]) == 0 {
			delete(h.subs, accountID)
		}
		close(ch)
	})
	return ch
}

// publish never blocks: a stream whose buffer is full misses n. It reports
// how many streams did. Sends happen under the read lock so no channel is
// closed mid-send.
func (h *hub) publish(n entity.Notification) (skipped int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[n.AccountID] {
		select {
		case ch <- n:
		default:
			skipped++
		}
	}
	return skipped
}

func (h *hub) accounts() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// StreamNotifications streams entries created for accountID from now on.
// The channel closes once ctx is done.
func (s *Usecase) StreamNotifications(ctx context.Context, accountID int64) <-chan entity.Notification {
	buffer := s.cfg.GetInt("modules.notification.stream_buffer")
	if buffer <= 0 {
		buffer = defaultStreamBuffer
	}
	return s.hub.subscribe(ctx, accountID, buffer)
}
