package chat

import (
	"errors"
	"sync"
)

// DefaultViewLimit caps how many docked chat windows may be live at once.
const DefaultViewLimit = 3

// Subscription is a live feed registration owned by one open view.
type Subscription interface {
	Close() error
}

// SubscribeFunc opens a feed subscription for a match, delivering each
// inserted message to deliver.
type SubscribeFunc func(matchID string, deliver func(Entry)) (Subscription, error)

// View is one open chat window: a transcript plus the subscription keeping
// it live.
type View struct {
	MatchID    string
	Transcript *Transcript
	sub        Subscription
}

// Coordinator owns the bounded set of open chat views. Each match has at most
// one view and each view exactly one subscription; opening past the limit
// evicts the oldest view, and closing a view releases its subscription.
type Coordinator struct {
	mu        sync.Mutex
	limit     int
	subscribe SubscribeFunc
	views     []*View // open order, oldest first
}

func NewCoordinator(limit int, subscribe SubscribeFunc) *Coordinator {
	if limit <= 0 {
		limit = DefaultViewLimit
	}
	return &Coordinator{limit: limit, subscribe: subscribe}
}

// Open returns the view for matchID, creating it (with its subscription and
// the given initial transcript) if needed.
func (c *Coordinator) Open(matchID string, initial []Entry) (*View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, v := range c.views {
		if v.MatchID == matchID {
			return v, nil
		}
	}

	if len(c.views) >= c.limit {
		oldest := c.views[0]
		c.views = c.views[1:]
		_ = oldest.sub.Close()
	}

	v := &View{MatchID: matchID, Transcript: NewTranscript(initial)}
	sub, err := c.subscribe(matchID, v.Transcript.ApplyInsert)
	if err != nil {
		return nil, err
	}
	v.sub = sub
	c.views = append(c.views, v)
	return v, nil
}

// Close releases the view and its subscription.
func (c *Coordinator) Close(matchID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, v := range c.views {
		if v.MatchID == matchID {
			c.views = append(c.views[:i], c.views[i+1:]...)
			return v.sub.Close()
		}
	}
	return errors.New("view not open")
}

// CloseAll releases every open view.
func (c *Coordinator) CloseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.views {
		_ = v.sub.Close()
	}
	c.views = nil
}

// OpenCount reports how many views are live.
func (c *Coordinator) OpenCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.views)
}
