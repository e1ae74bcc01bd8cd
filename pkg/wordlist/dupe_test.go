package wordlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addAll(t *testing.T, l *List, words ...string) map[string]GlobalWordId {
	t.Helper()
	ids := make(map[string]GlobalWordId)
	for _, w := range words {
		gid, ok := l.AddWord(w, w, 50, 0, false)
		require.True(t, ok)
		ids[w] = gid
	}
	return ids
}

func TestDupesSharedWindow(t *testing.T) {
	l := New(nil, 3, 0)
	ids := addAll(t, l, "abcde", "xabcy", "abde", "zzz")

	dupes := l.Dupes(ids["abcde"])
	// Itself plus the word sharing the "abc" run.
	require.Contains(t, dupes, 5)
	assert.True(t, dupes[5][ids["abcde"].Id])
	assert.True(t, dupes[5][ids["xabcy"].Id])

	// "abde" shares no run of three letters with "abcde".
	assert.NotContains(t, dupes, 4)

	// Words shorter than the window only ever match themselves.
	short := l.Dupes(ids["zzz"])
	assert.True(t, short[3][ids["zzz"].Id])
	assert.Len(t, short, 1)
}

func TestDupesWindowDisabled(t *testing.T) {
	l := New(nil, 0, 0)
	ids := addAll(t, l, "abcde", "xabcy")

	dupes := l.Dupes(ids["abcde"])
	assert.True(t, dupes[5][ids["abcde"].Id])
	assert.False(t, dupes[5][ids["xabcy"].Id])
}

func TestDupePairs(t *testing.T) {
	l := New(nil, 0, 0)
	ids := addAll(t, l, "color", "colour")

	l.AddDupePair(ids["color"], ids["colour"])

	dupes := l.Dupes(ids["color"])
	assert.True(t, dupes[6][ids["colour"].Id])
	// Pairs are symmetric.
	back := l.Dupes(ids["colour"])
	assert.True(t, back[5][ids["color"].Id])

	l.RemoveDupePair(ids["colour"], ids["color"])
	dupes = l.Dupes(ids["color"])
	assert.NotContains(t, dupes, 6)

	// Pairing a word with itself is a no-op.
	l.AddDupePair(ids["color"], ids["color"])
	dupes = l.Dupes(ids["color"])
	assert.Len(t, dupes[5], 1)
}

func TestDupesResetOnReplace(t *testing.T) {
	l := New([]Source{&MemorySource{ID: "a", Words: []Entry{
		{Canonical: "abcde", Score: 50},
		{Canonical: "xabcy", Score: 50},
	}}}, 3, 0)

	l.ReplaceList([]Source{&MemorySource{ID: "b", Words: []Entry{
		{Canonical: "abcde", Score: 50},
	}}})

	gid, ok := l.Lookup("abcde")
	require.True(t, ok)
	dupes := l.Dupes(gid)
	assert.Len(t, dupes[5], 1)
}
