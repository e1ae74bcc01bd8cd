package grid

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoverbird/ingrid-core/pkg/wordlist"
)

func scoredList(t *testing.T, words map[string]int) *wordlist.List {
	t.Helper()
	l := wordlist.New(nil, 0, 0)
	for w, score := range words {
		_, ok := l.AddWord(w, w, score, 0, false)
		require.True(t, ok)
	}
	return l
}

func emptyPrefill(length int) []int32 {
	prefill := make([]int32, length)
	for i := range prefill {
		prefill[i] = CellEmpty
	}
	return prefill
}

func TestSlotOptionsMinScore(t *testing.T) {
	l := scoredList(t, map[string]int{"low": 20, "mid": 50, "top": 90})

	options := SlotOptions(l, 3, emptyPrefill(3), 50, nil, nil)
	names := optionNames(l, 3, options)
	assert.ElementsMatch(t, []string{"mid", "top"}, names)
}

func TestSlotOptionsPrefillMatch(t *testing.T) {
	l := scoredList(t, map[string]int{"cat": 50, "cow": 50, "dog": 50})

	prefill := emptyPrefill(3)
	prefill[0] = int32(l.Intern('c'))
	options := SlotOptions(l, 3, prefill, 50, nil, nil)
	assert.ElementsMatch(t, []string{"cat", "cow"}, optionNames(l, 3, options))

	prefill[2] = int32(l.Intern('t'))
	options = SlotOptions(l, 3, prefill, 50, nil, nil)
	assert.ElementsMatch(t, []string{"cat"}, optionNames(l, 3, options))
}

func TestSlotOptionsPattern(t *testing.T) {
	l := scoredList(t, map[string]int{"cat": 50, "cow": 50, "dog": 50})

	options := SlotOptions(l, 3, emptyPrefill(3), 50, regexp.MustCompile("o"), nil)
	assert.ElementsMatch(t, []string{"cow", "dog"}, optionNames(l, 3, options))
}

func TestSlotOptionsHiddenExcluded(t *testing.T) {
	l := scoredList(t, map[string]int{"cat": 50})
	_, ok := l.LookupOrAddHidden("xyz")
	require.True(t, ok)

	options := SlotOptions(l, 3, emptyPrefill(3), 50, nil, nil)
	assert.ElementsMatch(t, []string{"cat"}, optionNames(l, 3, options))
}

func TestSlotOptionsAllowedBypassesFilters(t *testing.T) {
	l := scoredList(t, map[string]int{"cat": 50, "low": 10})
	hidden, ok := l.LookupOrAddHidden("xyz")
	require.True(t, ok)
	lowID, ok := l.Lookup("low")
	require.True(t, ok)

	allowed := map[wordlist.WordId]bool{hidden.Id: true, lowID.Id: true}
	options := SlotOptions(l, 3, emptyPrefill(3), 50, regexp.MustCompile("^c"), allowed)
	// Allowed entries skip the score, hidden, and pattern filters; the rest
	// are still filtered.
	assert.ElementsMatch(t, []string{"cat", "low", "xyz"}, optionNames(l, 3, options))
}

func TestSlotOptionsCompletePrefill(t *testing.T) {
	l := scoredList(t, map[string]int{"cat": 50})

	prefill := []int32{
		int32(l.Intern('c')),
		int32(l.Intern('a')),
		int32(l.Intern('t')),
	}
	options := SlotOptions(l, 3, prefill, 50, nil, nil)
	require.Len(t, options, 1)
	assert.Equal(t, "cat", l.Bucket(3)[options[0]].Normalized)

	// An unknown full string becomes a hidden entry.
	prefill = []int32{
		int32(l.Intern('z')),
		int32(l.Intern('z')),
		int32(l.Intern('z')),
	}
	options = SlotOptions(l, 3, prefill, 50, nil, nil)
	require.Len(t, options, 1)
	w := l.Bucket(3)[options[0]]
	assert.Equal(t, "zzz", w.Normalized)
	assert.True(t, w.Hidden)
}

func optionNames(l *wordlist.List, length int, options []wordlist.WordId) []string {
	names := make([]string, len(options))
	for i, id := range options {
		names[i] = l.Bucket(length)[id].Normalized
	}
	return names
}
