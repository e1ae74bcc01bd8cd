// Package ingrid fills crossword grids: it assigns a word to every slot of a
// grid configuration so that crossings agree, no word repeats, and every
// chosen word meets the configured minimum score. The search is a weighted
// backtracking loop over an arc-consistency propagator.
package ingrid

import (
	"github.com/hoverbird/ingrid-core/pkg/wordlist"
)

// glyphCounts[cell][glyph] is the number of live options for a slot whose
// letter at `cell` is `glyph`. A zero count is a constant-time proof that no
// live option supports that letter, which is what the propagator keys on.
type glyphCounts [][]int32

func buildGlyphCountsByCell(wl *wordlist.List, length int, options []wordlist.WordId) glyphCounts {
	counts := newGlyphCounts(length, wl.GlyphCount())
	bucket := wl.Bucket(length)
	for _, id := range options {
		for cell, g := range bucket[id].Glyphs {
			counts[cell][g]++
		}
	}
	return counts
}

// glyphCountsForWord builds the counts of a slot pinned to a single word:
// zero everywhere except one glyph per cell.
func glyphCountsForWord(wl *wordlist.List, length int, id wordlist.WordId) glyphCounts {
	counts := newGlyphCounts(length, wl.GlyphCount())
	for cell, g := range wl.Bucket(length)[id].Glyphs {
		counts[cell][g] = 1
	}
	return counts
}

func newGlyphCounts(length, glyphSpace int) glyphCounts {
	counts := make(glyphCounts, length)
	for i := range counts {
		counts[i] = make([]int32, glyphSpace)
	}
	return counts
}

func (gc glyphCounts) clone() glyphCounts {
	out := make(glyphCounts, len(gc))
	for i, cell := range gc {
		out[i] = append([]int32(nil), cell...)
	}
	return out
}

// checkGlyphCounts verifies that every cell's counts sum to remaining. Used
// under CheckInvariants only.
func checkGlyphCounts(gc glyphCounts, remaining int) bool {
	for _, cell := range gc {
		var sum int32
		for _, n := range cell {
			sum += n
		}
		if int(sum) != remaining {
			return false
		}
	}
	return true
}
