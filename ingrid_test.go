package ingrid

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoverbird/ingrid-core/pkg/grid"
	"github.com/hoverbird/ingrid-core/pkg/wordlist"
)

func TestMain(m *testing.M) {
	CheckInvariants = true
	os.Exit(m.Run())
}

func sourcesOf(words ...string) []wordlist.Source {
	entries := make([]wordlist.Entry, len(words))
	for i, w := range words {
		entries[i] = wordlist.Entry{Canonical: w, Score: wordlist.DefaultScore}
	}
	return []wordlist.Source{&wordlist.MemorySource{ID: "test", Words: entries}}
}

// assertValidFill checks the structural invariants of a finished fill: one
// choice per slot, crossings agreeing on their shared cell, no word used
// twice, prefilled letters respected.
func assertValidFill(t *testing.T, c *grid.Config, result *FillSuccess) {
	t.Helper()
	require.Len(t, result.Choices, len(c.Slots))

	seen := make(map[grid.SlotId]bool)
	usage := make(map[string]int)
	cells := make(map[int]wordlist.Glyph)
	for _, ch := range result.Choices {
		assert.False(t, seen[ch.Slot], "slot %d chosen twice", ch.Slot)
		seen[ch.Slot] = true

		sc := &c.Slots[ch.Slot]
		w := c.WordList.Bucket(sc.Length)[ch.Word]
		usage[w.Normalized]++

		for cell, g := range w.Glyphs {
			idx := sc.CellIndex(cell, c.Width)
			if prev, ok := cells[idx]; ok {
				assert.Equal(t, prev, g, "cell %d disagrees between crossing slots", idx)
			}
			cells[idx] = g
		}
	}
	for w, n := range usage {
		assert.Equal(t, 1, n, "word %q used %d times", w, n)
	}
	for idx, v := range c.Fill {
		if v >= 0 {
			assert.Equal(t, wordlist.Glyph(v), cells[idx], "prefilled cell %d overwritten", idx)
		}
	}
}

func fillFixture(t *testing.T, template string, dupeWindow int, words ...string) (*grid.Config, *FillSuccess, error) {
	t.Helper()
	entries := make([]wordlist.Entry, len(words))
	for i, w := range words {
		entries[i] = wordlist.Entry{Canonical: w, Score: wordlist.DefaultScore}
	}
	wl := wordlist.New([]wordlist.Source{
		&wordlist.MemorySource{ID: "test", Words: entries},
	}, dupeWindow, 0)
	tmpl, err := grid.ParseTemplate(template)
	require.NoError(t, err)
	c, err := grid.NewConfig(wl, tmpl, grid.ConfigOptions{})
	require.NoError(t, err)

	result, err := Fill(c, FillOptions{})
	return c, result, err
}

// The row words and column words of this fully open grid are the rows and
// columns of a 5x5 letter matrix, so a consistent fill exists.
var openGridWords = []string{
	"acebd", "bdace", "cebda", "daceb", "ebdac",
	"abcde", "cdeab", "eabcd", "bcdea", "deabc",
}

func TestFillOpenGrid(t *testing.T) {
	c, result, err := fillFixture(t, ".....\n.....\n.....\n.....\n.....", 0, openGridWords...)
	require.NoError(t, err)
	assertValidFill(t, c, result)

	s := result.Statistics
	assert.Greater(t, s.States, 0)
	assert.GreaterOrEqual(t, s.Backtracks, 0)
	assert.Greater(t, s.Duration, time.Duration(0))
}

func TestFillBlockedCorners(t *testing.T) {
	c, result, err := fillFixture(t, "#....\n.....\n.....\n.....\n....#", 0,
		"cebd", "bdace", "cebda", "daceb", "ebda",
		"bcde", "cdeab", "eabcd", "bcdea", "deab")
	require.NoError(t, err)
	assertValidFill(t, c, result)
}

func TestFillTwoByTwo(t *testing.T) {
	c, result, err := fillFixture(t, "..\n..", 0, "ab", "cd", "ac", "bd")
	require.NoError(t, err)
	assertValidFill(t, c, result)

	rendered := grid.Render(c, result.Choices)
	assert.Contains(t, []string{"ab\ncd", "ac\nbd"}, rendered)
}

func TestFillUnsolvableIsHardFailure(t *testing.T) {
	// The across and down slot share their first cell, and the duplicate
	// rule forbids giving both the same word, so no fill exists.
	_, _, err := fillFixture(t, "..\n.#", 0, "ab", "cd")
	require.Error(t, err)

	var fe *FillError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, HardFailure, fe.Kind)
}

func TestFillPrefilledCells(t *testing.T) {
	// "zq" isn't a word, so the prefilled top row rides on a hidden entry.
	filled, result, err := FillGrid("zq#\n...\n#..", sourcesOf("abc", "de", "za", "qbd", "ce"), GridOptions{})
	require.NoError(t, err)
	assert.Equal(t, "zq#\nabc\n#de", filled)
	assert.NotNil(t, result)
}

func TestFillGridDeterministicForSeed(t *testing.T) {
	template := ".....\n.....\n.....\n.....\n....."
	opts := GridOptions{Seed: 42}

	first, _, err := FillGrid(template, sourcesOf(openGridWords...), opts)
	require.NoError(t, err)
	second, _, err := FillGrid(template, sourcesOf(openGridWords...), opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFillGridPropagationOnly(t *testing.T) {
	// Every open cell here is forced by the prefilled entry, so the fill
	// falls out of propagation alone, with no search choices.
	template := strings.Join([]string{
		"###############",
		"###############",
		"###############",
		"#cremebrulees##",
		"#.#.#.#.#.#.###",
		"#####.#####.###",
		"###########.###",
		"###############",
		"###############",
		"###############",
		"###############",
		"###############",
		"###############",
		"###############",
		"###############",
	}, "\n")
	want := strings.Join([]string{
		"###############",
		"###############",
		"###############",
		"#cremebrulees##",
		"#a#d#n#a#a#t###",
		"#####d#####a###",
		"###########s###",
		"###############",
		"###############",
		"###############",
		"###############",
		"###############",
		"###############",
		"###############",
		"###############",
	}, "\n")

	sources := sourcesOf("cremebrulees", "ca", "ed", "ra", "la", "end", "etas")
	filled, result, err := FillGrid(template, sources, GridOptions{DupeWindow: 3})
	require.NoError(t, err)
	assert.Equal(t, want, filled)
	assert.Equal(t, 0, result.Statistics.Backtracks)
}

// isolatedSlots builds a template of n independent two-letter across slots,
// plus n distinct words to put in them. With no crossings every slot costs
// one search state, which makes the interrupt cadence observable.
func isolatedSlots(n int) (string, []string) {
	rows := make([]string, 0, 2*n-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			rows = append(rows, "##")
		}
		rows = append(rows, "..")
	}
	words := make([]string, n)
	for i := 0; i < n; i++ {
		words[i] = strings.Repeat(string(rune('a'+i)), 2)
	}
	return strings.Join(rows, "\n"), words
}

func TestFillAbort(t *testing.T) {
	template, words := isolatedSlots(12)
	entries := make([]wordlist.Entry, len(words))
	for i, w := range words {
		entries[i] = wordlist.Entry{Canonical: w, Score: wordlist.DefaultScore}
	}
	wl := wordlist.New([]wordlist.Source{
		&wordlist.MemorySource{ID: "test", Words: entries},
	}, 0, 0)
	tmpl, err := grid.ParseTemplate(template)
	require.NoError(t, err)
	c, err := grid.NewConfig(wl, tmpl, grid.ConfigOptions{})
	require.NoError(t, err)

	c.Abort.Store(true)
	_, err = Fill(c, FillOptions{})
	var fe *FillError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, Abort, fe.Kind)
}

func TestFillTimeout(t *testing.T) {
	template, words := isolatedSlots(12)
	_, _, err := FillGrid(template, sourcesOf(words...), GridOptions{
		Deadline: time.Now().Add(-time.Second),
	})
	var fe *FillError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, Timeout, fe.Kind)
}

func TestFillGridDupeWindowValidation(t *testing.T) {
	for _, window := range []int{1, 2, 11} {
		_, _, err := FillGrid("..\n..", sourcesOf("ab", "cd", "ac", "bd"), GridOptions{
			DupeWindow: window,
		})
		require.Error(t, err, "window %d", window)
		assert.Contains(t, err.Error(), "between 3 and 10")
	}
}

func TestFillGridEmptyWordList(t *testing.T) {
	_, _, err := FillGrid("..\n..", nil, GridOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "word list is empty")
}

func TestFillGridSurfacesSourceErrors(t *testing.T) {
	sources := []wordlist.Source{&wordlist.ContentsSource{
		ID:       "bad",
		Contents: "ok\nbroken;nope",
	}}
	_, _, err := FillGrid("..\n..", sources, GridOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid score")
}

func TestFillGridSharedSubstringLimit(t *testing.T) {
	// Two parallel slots, three candidates; two of them share "abc" and so
	// can't appear together under a window of three.
	template := ".....\n#####\n....."
	filled, _, err := FillGrid(template, sourcesOf("abcde", "abcfg", "zzzzz"), GridOptions{
		DupeWindow: 3,
	})
	require.NoError(t, err)
	assert.Contains(t, filled, "zzzzz")
}

func BenchmarkFill(b *testing.B) {
	b.ReportAllocs()

	for _, tc := range []struct {
		name     string
		template string
		words    []string
	}{
		{name: "5x5_open", template: ".....\n.....\n.....\n.....\n.....", words: openGridWords},
		{name: "5x5_blocked", template: "#....\n.....\n.....\n.....\n....#", words: []string{
			"cebd", "bdace", "cebda", "daceb", "ebda",
			"bcde", "cdeab", "eabcd", "bcdea", "deab"}},
	} {
		b.Run(tc.name, func(b *testing.B) {
			entries := make([]wordlist.Entry, len(tc.words))
			for i, w := range tc.words {
				entries[i] = wordlist.Entry{Canonical: w, Score: wordlist.DefaultScore}
			}
			wl := wordlist.New([]wordlist.Source{
				&wordlist.MemorySource{ID: "bench", Words: entries},
			}, 0, 0)
			tmpl, err := grid.ParseTemplate(tc.template)
			if err != nil {
				b.Fatal(err)
			}
			c, err := grid.NewConfig(wl, tmpl, grid.ConfigOptions{})
			if err != nil {
				b.Fatal(err)
			}

			for b.Loop() {
				result, err := Fill(c, FillOptions{})
				if err != nil {
					b.Fatal(err)
				}
				b.ReportMetric(float64(result.Statistics.States), "states")
			}
		})
	}
}

func TestFillErrorMessages(t *testing.T) {
	assert.Equal(t, "grid cannot be filled with the given word list", (&FillError{Kind: HardFailure}).Error())
	assert.Equal(t, "fill timed out", (&FillError{Kind: Timeout}).Error())
	assert.Equal(t, "fill aborted", (&FillError{Kind: Abort}).Error())
	assert.Contains(t, (&FillError{Kind: ExceededBacktrackLimit, Backtracks: 7}).Error(), "7")
}
