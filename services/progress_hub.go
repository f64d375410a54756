package services

import (
	"sync"
	"time"

	"career-progress-service/models"
)

const (
	EventStreak = "streak"
	EventBadge  = "badge"
)

// ProgressEvent is pushed to a user's open streams after a progress change.
type ProgressEvent struct {
	Type          string        `json:"type"`
	UserID        string        `json:"user_id"`
	CurrentStreak int           `json:"current_streak,omitempty"`
	LongestStreak int           `json:"longest_streak,omitempty"`
	Badge         *models.Badge `json:"badge,omitempty"`
	At            time.Time     `json:"at"`
}

// ProgressHub fans progress events out to per-user subscribers. Publish never
// blocks: a subscriber whose buffer is full misses the event.
type ProgressHub struct {
	mu     sync.RWMutex
	subs   map[string]map[chan ProgressEvent]struct{}
	buffer int
}

func NewProgressHub(buffer int) *ProgressHub {
	if buffer < 1 {
		buffer = 8
	}
	return &ProgressHub{
		subs:   make(map[string]map[chan ProgressEvent]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a channel for userID. The returned cancel func must be
// called once; it unregisters and closes the channel.
func (h *ProgressHub) Subscribe(userID string) (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, h.buffer)

	h.mu.Lock()
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[chan ProgressEvent]struct{})
		h.subs[userID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[userID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, userID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber of ev.UserID and returns how many received it.
func (h *ProgressHub) Publish(ev ProgressEvent) int {
	if h == nil {
		return 0
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for ch := range h.subs[ev.UserID] {
		select {
		case ch <- ev:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers returns the number of open subscriptions for userID.
func (h *ProgressHub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
