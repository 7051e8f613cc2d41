package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestApplyInsertConfirmsByToken(t *testing.T) {
	tr := NewTranscript(nil)
	tr.AppendLocal("temp-1", "user-a", "hello", "tok-1", base)

	// Server timestamp far outside the heuristic window; the token still
	// identifies the optimistic entry.
	tr.ApplyInsert(Entry{
		ID:        "srv-1",
		SenderID:  "user-a",
		Content:   "hello",
		Token:     "tok-1",
		CreatedAt: base.Add(30 * time.Second),
	})

	msgs := tr.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "srv-1", msgs[0].ID)
	assert.False(t, msgs[0].Pending)
	assert.Equal(t, base.Add(30*time.Second), msgs[0].CreatedAt)
}

func TestApplyInsertConfirmsByContentWindow(t *testing.T) {
	tr := NewTranscript(nil)
	tr.AppendLocal("temp-1", "user-a", "hello", "", base)

	tr.ApplyInsert(Entry{
		ID:        "srv-1",
		SenderID:  "user-a",
		Content:   "hello",
		CreatedAt: base.Add(2 * time.Second),
	})

	msgs := tr.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "srv-1", msgs[0].ID)
	assert.False(t, msgs[0].Pending)
}

func TestApplyInsertOutsideWindowAppends(t *testing.T) {
	tr := NewTranscript(nil)
	tr.AppendLocal("temp-1", "user-a", "hello", "", base)

	tr.ApplyInsert(Entry{
		ID:        "srv-1",
		SenderID:  "user-a",
		Content:   "hello",
		CreatedAt: base.Add(6 * time.Second),
	})

	assert.Equal(t, 2, tr.Len())
}

func TestApplyInsertRedeliveryIsNoOp(t *testing.T) {
	tr := NewTranscript(nil)
	evt := Entry{ID: "srv-1", SenderID: "user-b", Content: "oi", CreatedAt: base}
	tr.ApplyInsert(evt)
	tr.ApplyInsert(evt)
	tr.ApplyInsert(evt)

	assert.Equal(t, 1, tr.Len())
}

func TestIdenticalTextCollapsesWithoutToken(t *testing.T) {
	// The documented limitation of the content heuristic: two distinct sends
	// with identical text inside the window collapse into one entry.
	tr := NewTranscript(nil)
	tr.AppendLocal("temp-1", "user-a", "ok", "", base)
	tr.AppendLocal("temp-2", "user-a", "ok", "", base.Add(time.Second))

	tr.ApplyInsert(Entry{ID: "srv-1", SenderID: "user-a", Content: "ok", CreatedAt: base.Add(time.Second)})
	tr.ApplyInsert(Entry{ID: "srv-2", SenderID: "user-a", Content: "ok", CreatedAt: base.Add(2 * time.Second)})

	// srv-1 confirmed temp-1, srv-2 confirmed temp-2: tokens are what make
	// this fully safe, but the fallback keeps the count right here.
	assert.Equal(t, 2, tr.Len())
}

func TestTokensKeepIdenticalTextApart(t *testing.T) {
	tr := NewTranscript(nil)
	tr.AppendLocal("temp-1", "user-a", "ok", "tok-1", base)
	tr.AppendLocal("temp-2", "user-a", "ok", "tok-2", base.Add(time.Second))

	tr.ApplyInsert(Entry{ID: "srv-2", SenderID: "user-a", Content: "ok", Token: "tok-2", CreatedAt: base.Add(time.Second)})

	msgs := tr.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "temp-1", msgs[0].ID)
	assert.True(t, msgs[0].Pending)
	assert.Equal(t, "srv-2", msgs[1].ID)
	assert.False(t, msgs[1].Pending)
}

func TestUnmatchedTokenNeverCrossMatches(t *testing.T) {
	// The same user sends identical text from a second device. The event
	// carries that device's token, which matches nothing here; it must append
	// rather than confirm this device's pending entry.
	tr := NewTranscript(nil)
	tr.AppendLocal("temp-1", "user-a", "ok", "tok-1", base)

	tr.ApplyInsert(Entry{ID: "srv-other", SenderID: "user-a", Content: "ok", Token: "tok-other", CreatedAt: base.Add(time.Second)})

	msgs := tr.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].Pending)
	assert.Equal(t, "temp-1", msgs[0].ID)
	assert.Equal(t, "srv-other", msgs[1].ID)
}

func TestTokenlessEventSkipsTokenedPending(t *testing.T) {
	// A tokenless event can only belong to a tokenless send; a pending entry
	// that carries a token is waiting for its own echo.
	tr := NewTranscript(nil)
	tr.AppendLocal("temp-1", "user-a", "ok", "tok-1", base)

	tr.ApplyInsert(Entry{ID: "srv-1", SenderID: "user-a", Content: "ok", CreatedAt: base.Add(time.Second)})

	require.Equal(t, 2, tr.Len())
	msgs := tr.Messages()
	assert.True(t, msgs[0].Pending)
}

func TestRemoveLocalAfterSendFailure(t *testing.T) {
	tr := NewTranscript(nil)
	tr.AppendLocal("temp-1", "user-a", "hello", "tok-1", base)

	assert.True(t, tr.RemoveLocal("temp-1"))
	assert.Equal(t, 0, tr.Len())

	// Already removed, and confirmed entries are not removable
	assert.False(t, tr.RemoveLocal("temp-1"))
	tr.ApplyInsert(Entry{ID: "srv-1", SenderID: "user-b", Content: "oi", CreatedAt: base})
	assert.False(t, tr.RemoveLocal("srv-1"))
}

func TestMessagesOrderedByTimestampStable(t *testing.T) {
	tr := NewTranscript([]Entry{
		{ID: "m-1", SenderID: "a", Content: "first", CreatedAt: base},
		{ID: "m-2", SenderID: "b", Content: "second", CreatedAt: base.Add(time.Minute)},
	})

	// Arrives later but carries an earlier timestamp
	tr.ApplyInsert(Entry{ID: "m-3", SenderID: "b", Content: "late delivery", CreatedAt: base.Add(30 * time.Second)})
	// Same timestamp as m-2: arrival order breaks the tie
	tr.ApplyInsert(Entry{ID: "m-4", SenderID: "a", Content: "tie", CreatedAt: base.Add(time.Minute)})

	msgs := tr.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, []string{"m-1", "m-3", "m-2", "m-4"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID, msgs[3].ID})
}

func TestConfirmKeepsPosition(t *testing.T) {
	tr := NewTranscript([]Entry{
		{ID: "m-1", SenderID: "b", Content: "before", CreatedAt: base},
	})
	tr.AppendLocal("temp-1", "a", "mine", "tok-1", base.Add(time.Second))
	tr.ApplyInsert(Entry{ID: "m-2", SenderID: "b", Content: "after", CreatedAt: base.Add(2 * time.Second)})

	tr.ApplyInsert(Entry{ID: "srv-1", SenderID: "a", Content: "mine", Token: "tok-1", CreatedAt: base.Add(time.Second)})

	msgs := tr.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "srv-1", msgs[1].ID)
}
