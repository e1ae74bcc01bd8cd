// Package wordlist holds the words available to the fill engine: a glyph
// interner, length-bucketed word storage, and a duplicate index.
package wordlist

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Glyph is a dense integer id for one visible symbol. Ids are assigned in
// first-seen order starting at 0.
type Glyph = int

// WordId identifies a word within its length bucket.
type WordId = int32

// GlobalWordId identifies a word across the whole list.
type GlobalWordId struct {
	Length int
	Id     WordId
}

// Word is a single list entry. Glyphs has one entry per letter of the
// normalized form.
type Word struct {
	Normalized  string
	Canonical   string
	Glyphs      []Glyph
	Score       int
	LetterScore int
	Hidden      bool

	// SourceIndex is the position of the owning source in the slice passed
	// to ReplaceList, or -1 for words added outside of ingestion.
	SourceIndex int
}

// List is the word store. It is not safe for concurrent mutation; the fill
// engine treats it as read-only apart from hidden-word appends during grid
// construction.
type List struct {
	// buckets[length] holds every word whose normalized form has `length`
	// glyphs, in insertion order. WordIds are indices into these slices.
	buckets [][]Word

	glyphByRune map[rune]Glyph
	runeByGlyph []rune

	idByString map[string]GlobalWordId

	dupes *DupeIndex

	// maxLength, when positive, drops longer words at ingestion time.
	maxLength int

	sourceErrors map[string][]error
}

// New builds a list from the given sources. dupeWindow configures the
// duplicate index; 0 disables shared-substring grouping.
// maxLength, when positive, skips words longer than the grid could use.
func New(sources []Source, dupeWindow, maxLength int) *List {
	l := &List{
		glyphByRune:  make(map[rune]Glyph),
		idByString:   make(map[string]GlobalWordId),
		dupes:        NewDupeIndex(dupeWindow),
		maxLength:    maxLength,
		sourceErrors: make(map[string][]error),
	}
	l.ReplaceList(sources)
	return l
}

// Normalize maps a raw word to its canonical lookup form: NFC-composed,
// lowercased, with all whitespace removed.
func Normalize(raw string) string {
	composed := norm.NFC.String(raw)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, composed)
}

// Intern returns the glyph id for r, assigning the next id on first sight.
func (l *List) Intern(r rune) Glyph {
	if g, ok := l.glyphByRune[r]; ok {
		return g
	}
	g := Glyph(len(l.runeByGlyph))
	l.glyphByRune[r] = g
	l.runeByGlyph = append(l.runeByGlyph, r)
	return g
}

// GlyphRune returns the rune a glyph id stands for.
func (l *List) GlyphRune(g Glyph) rune {
	return l.runeByGlyph[g]
}

// GlyphCount returns the number of interned glyphs.
func (l *List) GlyphCount() int {
	return len(l.runeByGlyph)
}

// Len returns the total number of words, hidden entries included.
func (l *List) Len() int {
	return len(l.idByString)
}

// Bucket returns the words of the given length in insertion order. The
// returned slice is owned by the list and must not be mutated.
func (l *List) Bucket(length int) []Word {
	if length >= len(l.buckets) {
		return nil
	}
	return l.buckets[length]
}

// Word returns the entry for a global id.
func (l *List) Word(gid GlobalWordId) *Word {
	return &l.buckets[gid.Length][gid.Id]
}

// Lookup returns the id registered for a normalized string.
func (l *List) Lookup(normalized string) (GlobalWordId, bool) {
	gid, ok := l.idByString[normalized]
	return gid, ok
}

// AddWord registers a word, interning its glyphs and updating the dupe
// index. If the normalized form is already present, the existing id is
// returned unchanged. Empty normalized strings are rejected with a false
// second result.
func (l *List) AddWord(normalized, canonical string, score, sourceIndex int, hidden bool) (GlobalWordId, bool) {
	if normalized == "" {
		return GlobalWordId{}, false
	}
	if gid, ok := l.idByString[normalized]; ok {
		return gid, true
	}

	runes := []rune(normalized)
	length := len(runes)
	glyphs := make([]Glyph, length)
	letterScore := 0
	for i, r := range runes {
		glyphs[i] = l.Intern(r)
		letterScore += letterPoints(r)
	}

	for len(l.buckets) <= length {
		l.buckets = append(l.buckets, nil)
	}
	gid := GlobalWordId{Length: length, Id: WordId(len(l.buckets[length]))}
	l.buckets[length] = append(l.buckets[length], Word{
		Normalized:  normalized,
		Canonical:   canonical,
		Glyphs:      glyphs,
		Score:       score,
		LetterScore: letterScore,
		Hidden:      hidden,
		SourceIndex: sourceIndex,
	})
	l.idByString[normalized] = gid
	l.dupes.AddWord(gid, glyphs)
	return gid, true
}

// LookupOrAddHidden returns the id for a normalized string, creating a
// hidden zero-score entry if no word by that spelling exists. Hidden entries
// have WordIds like any other word but are skipped during option
// enumeration.
func (l *List) LookupOrAddHidden(normalized string) (GlobalWordId, bool) {
	if gid, ok := l.idByString[normalized]; ok {
		return gid, true
	}
	return l.AddWord(normalized, normalized, 0, -1, true)
}

// ReplaceList clears the list and re-ingests from the given sources in
// order. The first source in which a normalized string appears owns it;
// later duplicates are skipped. Per-source parse errors are collected and
// available from SourceErrors.
func (l *List) ReplaceList(sources []Source) {
	l.buckets = nil
	l.idByString = make(map[string]GlobalWordId)
	l.dupes.reset()
	l.sourceErrors = make(map[string][]error)

	for i, src := range sources {
		entries, errs := src.Entries()
		if len(errs) > 0 {
			l.sourceErrors[src.Name()] = errs
		}
		for _, e := range entries {
			normalized := Normalize(e.Canonical)
			if normalized == "" {
				continue
			}
			if l.maxLength > 0 && len([]rune(normalized)) > l.maxLength {
				continue
			}
			if _, taken := l.idByString[normalized]; taken {
				continue
			}
			l.AddWord(normalized, e.Canonical, e.Score, i, false)
		}
	}
}

// SourceErrors returns the parse errors collected per source name by the
// last ReplaceList call.
func (l *List) SourceErrors() map[string][]error {
	return l.sourceErrors
}

// Dupes returns, bucketed by length, every word considered a duplicate of
// gid: the word itself, words sharing a glyph window, and explicit pair
// mates.
func (l *List) Dupes(gid GlobalWordId) map[int]map[WordId]bool {
	return l.dupes.Dupes(gid, l.Word(gid).Glyphs)
}

// AddDupePair marks two words as duplicates of each other regardless of
// their spelling.
func (l *List) AddDupePair(a, b GlobalWordId) {
	l.dupes.AddPair(a, b)
}

// RemoveDupePair undoes AddDupePair.
func (l *List) RemoveDupePair(a, b GlobalWordId) {
	l.dupes.RemovePair(a, b)
}

// letterPoints is the fixed per-letter scoring table. Letters outside the
// table score 3.
func letterPoints(r rune) int {
	switch r {
	case 'a', 'e', 'i', 'l', 'n', 'o', 'r', 's', 't', 'u':
		return 1
	case 'd', 'g':
		return 2
	case 'b', 'c', 'm', 'p':
		return 3
	case 'f', 'h', 'v', 'w', 'y':
		return 4
	case 'k':
		return 5
	case 'j', 'x':
		return 8
	case 'q', 'z':
		return 10
	default:
		return 3
	}
}
