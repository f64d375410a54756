package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestProgressHubDeliversPerUser(t *testing.T) {
	hub := NewProgressHub(4)

	a, cancelA := hub.Subscribe("a")
	b, cancelB := hub.Subscribe("b")
	defer cancelA()
	defer cancelB()

	n := hub.Publish(ProgressEvent{Type: EventStreak, UserID: "a", CurrentStreak: 3})
	assert.Equal(t, 1, n)

	ev := <-a
	assert.Equal(t, 3, ev.CurrentStreak)
	assert.False(t, ev.At.IsZero())

	select {
	case <-b:
		t.Fatal("user b received user a's event")
	default:
	}
}

func TestProgressHubPublishNeverBlocks(t *testing.T) {
	hub := NewProgressHub(1)
	_, cancel := hub.Subscribe("a")
	defer cancel()

	assert.Equal(t, 1, hub.Publish(ProgressEvent{UserID: "a"}))
	// buffer full: dropped instead of blocking
	assert.Equal(t, 0, hub.Publish(ProgressEvent{UserID: "a"}))
	assert.Equal(t, 0, hub.Publish(ProgressEvent{UserID: "nobody"}))
}

func TestProgressHubCancelClosesAndUnregisters(t *testing.T) {
	hub := NewProgressHub(1)
	ch, cancel := hub.Subscribe("a")
	require.Equal(t, 1, hub.Subscribers("a"))

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, hub.Subscribers("a"))
	assert.Zero(t, hub.Publish(ProgressEvent{UserID: "a"}))
}

func TestProgressHubNilIsNoop(t *testing.T) {
	var hub *ProgressHub
	assert.Zero(t, hub.Publish(ProgressEvent{UserID: "a"}))
}

func TestProgressHubConcurrentUse(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewProgressHub(8)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch, cancel := hub.Subscribe("a")
			hub.Publish(ProgressEvent{UserID: "a"})
			cancel()
			for range ch {
			}
		}()
		go func() {
			defer wg.Done()
			hub.Publish(ProgressEvent{UserID: "a", Type: EventBadge})
		}()
	}
	wg.Wait()
	assert.Zero(t, hub.Subscribers("a"))
}
