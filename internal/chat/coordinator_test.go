package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSub struct {
	matchID string
	closed  bool
}

func (s *fakeSub) Close() error {
	s.closed = true
	return nil
}

type fakeFeed struct {
	subs []*fakeSub
}

func (f *fakeFeed) subscribe(matchID string, deliver func(Entry)) (Subscription, error) {
	s := &fakeSub{matchID: matchID}
	f.subs = append(f.subs, s)
	return s, nil
}

func (f *fakeFeed) openCount() int {
	n := 0
	for _, s := range f.subs {
		if !s.closed {
			n++
		}
	}
	return n
}

func TestCoordinatorOpenIsIdempotentPerMatch(t *testing.T) {
	feed := &fakeFeed{}
	c := NewCoordinator(3, feed.subscribe)

	v1, err := c.Open("match-1", nil)
	require.NoError(t, err)
	v2, err := c.Open("match-1", nil)
	require.NoError(t, err)

	assert.Same(t, v1, v2)
	assert.Equal(t, 1, c.OpenCount())
	assert.Equal(t, 1, feed.openCount())
}

func TestCoordinatorEvictsOldestAtCap(t *testing.T) {
	feed := &fakeFeed{}
	c := NewCoordinator(3, feed.subscribe)

	for _, id := range []string{"m-1", "m-2", "m-3", "m-4"} {
		_, err := c.Open(id, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, c.OpenCount())
	assert.Equal(t, 3, feed.openCount())
	assert.True(t, feed.subs[0].closed, "oldest view's subscription must be released")

	// m-1 was evicted, reopening it creates a fresh subscription
	_, err := c.Open("m-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, c.OpenCount())
}

func TestCoordinatorCloseReleasesSubscription(t *testing.T) {
	feed := &fakeFeed{}
	c := NewCoordinator(3, feed.subscribe)

	_, err := c.Open("m-1", nil)
	require.NoError(t, err)

	require.NoError(t, c.Close("m-1"))
	assert.Equal(t, 0, c.OpenCount())
	assert.Equal(t, 0, feed.openCount())

	assert.Error(t, c.Close("m-1"), "closing a closed view should fail")
}

func TestCoordinatorCloseAll(t *testing.T) {
	feed := &fakeFeed{}
	c := NewCoordinator(3, feed.subscribe)
	_, _ = c.Open("m-1", nil)
	_, _ = c.Open("m-2", nil)

	c.CloseAll()
	assert.Equal(t, 0, c.OpenCount())
	assert.Equal(t, 0, feed.openCount())
}

func TestCoordinatorDeliversToTranscript(t *testing.T) {
	feed := &fakeFeed{}
	var deliverFn func(Entry)
	c := NewCoordinator(3, func(matchID string, deliver func(Entry)) (Subscription, error) {
		deliverFn = deliver
		return feed.subscribe(matchID, deliver)
	})

	v, err := c.Open("m-1", nil)
	require.NoError(t, err)

	deliverFn(Entry{ID: "srv-1", SenderID: "u-1", Content: "oi", CreatedAt: base})
	assert.Equal(t, 1, v.Transcript.Len())
}
