// Package chat holds the client-side state of a live conversation: an
// ordered transcript that merges load-time history, optimistic local sends,
// and at-least-once insert events from the message feed.
package chat

import (
	"sort"
	"sync"
	"time"
)

// DedupWindow bounds how far apart a feed event and an optimistic entry may
// be and still be treated as the same message by the content heuristic.
const DedupWindow = 5 * time.Second

// Entry is one transcript line. Pending entries are optimistic local sends
// that have not been confirmed by the feed yet.
type Entry struct {
	ID        string
	SenderID  string
	Content   string
	Token     string // client idempotency token, empty on remote messages
	CreatedAt time.Time
	Pending   bool
}

// Transcript is safe for concurrent use; the feed goroutine applies inserts
// while the owner appends sends.
type Transcript struct {
	mu      sync.Mutex
	entries []Entry // arrival order
	byID    map[string]int
}

func NewTranscript(initial []Entry) *Transcript {
	t := &Transcript{byID: make(map[string]int, len(initial))}
	for _, e := range initial {
		e.Pending = false
		t.entries = append(t.entries, e)
		t.byID[e.ID] = len(t.entries) - 1
	}
	return t
}

// AppendLocal adds an optimistic entry for a message the user just sent,
// before the server has acknowledged it. tempID must be locally unique.
func (t *Transcript) AppendLocal(tempID, senderID, content, token string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, Entry{
		ID:        tempID,
		SenderID:  senderID,
		Content:   content,
		Token:     token,
		CreatedAt: at,
		Pending:   true,
	})
	t.byID[tempID] = len(t.entries) - 1
}

// RemoveLocal drops an optimistic entry after a failed send. Returns false if
// the entry was already confirmed or never existed.
func (t *Transcript) RemoveLocal(tempID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.byID[tempID]
	if !ok || !t.entries[i].Pending {
		return false
	}
	t.entries = append(t.entries[:i], t.entries[i+1:]...)
	t.reindex()
	return true
}

// ApplyInsert reconciles one feed event with the transcript:
//
//  1. known server id: drop, redelivery is a no-op
//  2. matching client token on a pending entry: confirm that entry in place
//  3. event without a token: a pending tokenless entry from the same sender
//     with identical content within DedupWindow confirms in place. Tokened
//     traffic never falls through to this, so identical text sent from two
//     devices stays two messages.
//  4. otherwise: append as a new message
//
// Confirming swaps in the server id and timestamp but keeps the entry's
// arrival position, so the sender's view does not jump.
func (t *Transcript) ApplyInsert(m Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.byID[m.ID]; ok {
		return
	}

	if m.Token != "" {
		for i := range t.entries {
			if t.entries[i].Pending && t.entries[i].Token == m.Token {
				t.confirmAt(i, m)
				return
			}
		}
	} else {
		for i := range t.entries {
			e := &t.entries[i]
			if e.Pending && e.Token == "" && e.SenderID == m.SenderID && e.Content == m.Content &&
				absDuration(e.CreatedAt.Sub(m.CreatedAt)) < DedupWindow {
				t.confirmAt(i, m)
				return
			}
		}
	}

	m.Pending = false
	t.entries = append(t.entries, m)
	t.byID[m.ID] = len(t.entries) - 1
}

// Messages returns the display transcript: timestamp ascending, ties broken
// by arrival order.
func (t *Transcript) Messages() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len reports the number of entries, pending included.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Transcript) confirmAt(i int, m Entry) {
	delete(t.byID, t.entries[i].ID)
	t.entries[i].ID = m.ID
	t.entries[i].CreatedAt = m.CreatedAt
	t.entries[i].Pending = false
	t.byID[m.ID] = i
}

func (t *Transcript) reindex() {
	t.byID = make(map[string]int, len(t.entries))
	for i, e := range t.entries {
		t.byID[e.ID] = i
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
