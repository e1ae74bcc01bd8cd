package grid

import (
	"regexp"

	"github.com/hoverbird/ingrid-core/pkg/wordlist"
)

// SlotOptions enumerates the words allowed in a slot given its current
// partial fill. prefill has one entry per cell: a glyph or CellEmpty.
//
// When every cell is filled the result is a single id: the existing entry
// for that string, or a freshly added hidden entry. Otherwise the
// length-bucket is scanned in insertion order and a word is included iff it
// matches every pre-filled cell and either appears in the allowed set or is
// a visible word meeting the score and pattern requirements. No score sort
// is applied.
func SlotOptions(wl *wordlist.List, length int, prefill []int32, minScore int, pattern *regexp.Regexp, allowed map[wordlist.WordId]bool) []wordlist.WordId {
	complete := true
	for _, v := range prefill {
		if v < 0 {
			complete = false
			break
		}
	}
	if complete {
		runes := make([]rune, length)
		for i, v := range prefill {
			runes[i] = wl.GlyphRune(wordlist.Glyph(v))
		}
		gid, ok := wl.LookupOrAddHidden(string(runes))
		if !ok {
			return nil
		}
		return []wordlist.WordId{gid.Id}
	}

	var options []wordlist.WordId
	bucket := wl.Bucket(length)
scan:
	for id := range bucket {
		w := &bucket[id]
		for cell, v := range prefill {
			if v >= 0 && w.Glyphs[cell] != wordlist.Glyph(v) {
				continue scan
			}
		}
		if allowed[wordlist.WordId(id)] {
			options = append(options, wordlist.WordId(id))
			continue
		}
		if w.Hidden || w.Score < minScore {
			continue
		}
		if pattern != nil && !pattern.MatchString(w.Normalized) {
			continue
		}
		options = append(options, wordlist.WordId(id))
	}
	return options
}
