package wordlist

// DupeIndex groups words that are too similar to appear in the same fill.
// Two words are substring dupes when they share any length-`window` glyph
// run; explicit pairs can also be registered independent of spelling. The
// index is built incrementally as words are added to the list.
type DupeIndex struct {
	window int

	// groups maps a glyph-window key to the words containing that window.
	groups map[string][]GlobalWordId

	pairs map[GlobalWordId]map[GlobalWordId]bool
}

// NewDupeIndex builds an index with the given window size. Window 0 disables
// substring grouping; explicit pairs still apply.
func NewDupeIndex(window int) *DupeIndex {
	return &DupeIndex{
		window: window,
		groups: make(map[string][]GlobalWordId),
		pairs:  make(map[GlobalWordId]map[GlobalWordId]bool),
	}
}

func (d *DupeIndex) reset() {
	d.groups = make(map[string][]GlobalWordId)
	d.pairs = make(map[GlobalWordId]map[GlobalWordId]bool)
}

// AddWord registers every length-window glyph run of the word.
func (d *DupeIndex) AddWord(gid GlobalWordId, glyphs []Glyph) {
	if d.window <= 0 || len(glyphs) < d.window {
		return
	}
	for start := 0; start+d.window <= len(glyphs); start++ {
		key := windowKey(glyphs[start : start+d.window])
		d.groups[key] = append(d.groups[key], gid)
	}
}

// AddPair marks a and b as duplicates of each other.
func (d *DupeIndex) AddPair(a, b GlobalWordId) {
	if a == b {
		return
	}
	d.addMate(a, b)
	d.addMate(b, a)
}

// RemovePair undoes AddPair.
func (d *DupeIndex) RemovePair(a, b GlobalWordId) {
	delete(d.pairs[a], b)
	delete(d.pairs[b], a)
}

func (d *DupeIndex) addMate(from, to GlobalWordId) {
	mates, ok := d.pairs[from]
	if !ok {
		mates = make(map[GlobalWordId]bool)
		d.pairs[from] = mates
	}
	mates[to] = true
}

// Dupes returns every duplicate of gid bucketed by word length: the word
// itself, all words sharing a glyph window with it, and its explicit pair
// mates. Bucketing lets callers probe only slots of a relevant length.
func (d *DupeIndex) Dupes(gid GlobalWordId, glyphs []Glyph) map[int]map[WordId]bool {
	out := make(map[int]map[WordId]bool)
	add := func(other GlobalWordId) {
		bucket, ok := out[other.Length]
		if !ok {
			bucket = make(map[WordId]bool)
			out[other.Length] = bucket
		}
		bucket[other.Id] = true
	}

	add(gid)
	if d.window > 0 && len(glyphs) >= d.window {
		for start := 0; start+d.window <= len(glyphs); start++ {
			key := windowKey(glyphs[start : start+d.window])
			for _, other := range d.groups[key] {
				add(other)
			}
		}
	}
	for mate := range d.pairs[gid] {
		add(mate)
	}
	return out
}

// windowKey packs a glyph run into a map key. Glyph ids are dense and small,
// so a rune-string encoding is collision free.
func windowKey(glyphs []Glyph) string {
	runes := make([]rune, len(glyphs))
	for i, g := range glyphs {
		runes[i] = rune(g)
	}
	return string(runes)
}
