package grid

import (
	"fmt"
	"regexp"
	"sync/atomic"

	"github.com/hoverbird/ingrid-core/pkg/wordlist"
)

// Direction of a slot.
type Direction int

const (
	Across Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Down {
		return "down"
	}
	return "across"
}

// SlotId indexes Config.Slots; CrossingId indexes crossing weights. Both are
// dense from 0.
type (
	SlotId     = int
	CrossingId = int
)

// Fill cell sentinels. Any non-negative value is a wordlist.Glyph.
const (
	CellEmpty int32 = -1
	CellBlock int32 = -2
)

// defaultSeed feeds the solver PRNG when the caller doesn't provide a seed.
// Identical inputs and seeds produce identical fills.
const defaultSeed uint64 = 0x51ab5eed

// Crossing records that one cell of a slot is shared with another slot.
type Crossing struct {
	OtherSlot SlotId

	// OtherCell is the index of the shared cell within the other slot.
	OtherCell int

	// Id is unique per unordered pair of crossing slots.
	Id CrossingId
}

// SlotConfig is the static description of one slot.
type SlotConfig struct {
	Id        SlotId
	Direction Direction
	StartRow  int
	StartCol  int
	Length    int

	// Crossings has one entry per cell; nil where the cell is unchecked.
	Crossings []*Crossing

	// MinScore overrides the grid-wide minimum score for this slot.
	MinScore *int

	// Pattern restricts this slot's options to matching normalized words.
	Pattern *regexp.Regexp
}

// CellIndex returns the row-major fill index of the slot's i-th cell.
func (s *SlotConfig) CellIndex(i, width int) int {
	if s.Direction == Across {
		return s.StartRow*width + s.StartCol + i
	}
	return (s.StartRow+i)*width + s.StartCol
}

// Choice assigns a word to a slot.
type Choice struct {
	Slot SlotId
	Word wordlist.WordId
}

// Config is the static input to a fill: the grid's geometry, the slots and
// their crossings, and each slot's initial option list. Blocked cells appear
// in no slot and are opaque to the solver.
type Config struct {
	Width, Height int

	// Fill holds the pre-placed glyphs, CellEmpty, or CellBlock, row-major.
	Fill []int32

	Slots         []SlotConfig
	SlotOptions   [][]wordlist.WordId
	CrossingCount int

	WordList *wordlist.List
	MinScore int
	Seed     uint64

	// Abort is a cooperative cancellation flag shared with the caller; the
	// solver polls it at bounded intervals.
	Abort atomic.Bool
}

// ConfigOptions tunes grid construction.
type ConfigOptions struct {
	// MinScore is the grid-wide minimum word score; 0 means DefaultScore.
	MinScore int

	// Seed feeds the solver's PRNG; 0 picks the built-in default.
	Seed uint64

	// Override, when set, is called for each extracted slot before its
	// option list is computed, letting callers attach per-slot min-score or
	// pattern filters.
	Override func(s *SlotConfig)
}

// NewConfig builds the static grid configuration for a template against a
// word list. Fully pre-filled slots may append hidden words to the list; no
// other mutation happens here or later.
func NewConfig(wl *wordlist.List, t *Template, opts ConfigOptions) (*Config, error) {
	if t.Width == 0 || t.Height == 0 {
		return nil, fmt.Errorf("grid template is empty")
	}
	minScore := opts.MinScore
	if minScore == 0 {
		minScore = wordlist.DefaultScore
	}
	seed := opts.Seed
	if seed == 0 {
		seed = defaultSeed
	}

	c := &Config{
		Width:    t.Width,
		Height:   t.Height,
		Fill:     make([]int32, len(t.Cells)),
		WordList: wl,
		MinScore: minScore,
		Seed:     seed,
	}
	for i, r := range t.Cells {
		switch r {
		case blockRune:
			c.Fill[i] = CellBlock
		case 0:
			c.Fill[i] = CellEmpty
		default:
			c.Fill[i] = int32(wl.Intern(r))
		}
	}

	c.extractSlots()
	c.assignCrossings()

	if opts.Override != nil {
		for i := range c.Slots {
			opts.Override(&c.Slots[i])
		}
	}

	c.SlotOptions = make([][]wordlist.WordId, len(c.Slots))
	for i := range c.Slots {
		s := &c.Slots[i]
		prefill := make([]int32, s.Length)
		for cell := 0; cell < s.Length; cell++ {
			prefill[cell] = c.Fill[s.CellIndex(cell, c.Width)]
		}
		slotMin := minScore
		if s.MinScore != nil {
			slotMin = *s.MinScore
		}
		c.SlotOptions[i] = SlotOptions(wl, s.Length, prefill, slotMin, s.Pattern, nil)
	}

	return c, nil
}

// extractSlots finds every maximal unblocked run of length >= 2: across
// slots first in row-major order, then down slots in column-major order.
func (c *Config) extractSlots() {
	blocked := func(row, col int) bool {
		return c.Fill[row*c.Width+col] == CellBlock
	}

	addSlot := func(dir Direction, row, col, length int) {
		if length < 2 {
			return
		}
		c.Slots = append(c.Slots, SlotConfig{
			Id:        len(c.Slots),
			Direction: dir,
			StartRow:  row,
			StartCol:  col,
			Length:    length,
			Crossings: make([]*Crossing, length),
		})
	}

	for row := 0; row < c.Height; row++ {
		runStart := -1
		for col := 0; col <= c.Width; col++ {
			if col < c.Width && !blocked(row, col) {
				if runStart < 0 {
					runStart = col
				}
				continue
			}
			if runStart >= 0 {
				addSlot(Across, row, runStart, col-runStart)
				runStart = -1
			}
		}
	}

	for col := 0; col < c.Width; col++ {
		runStart := -1
		for row := 0; row <= c.Height; row++ {
			if row < c.Height && !blocked(row, col) {
				if runStart < 0 {
					runStart = row
				}
				continue
			}
			if runStart >= 0 {
				addSlot(Down, runStart, col, row-runStart)
				runStart = -1
			}
		}
	}
}

// assignCrossings builds the crossing table. Crossing ids are allocated in
// the order crossings are first encountered while walking slots in id order,
// keyed by the unordered slot pair, so they come out dense from 0.
func (c *Config) assignCrossings() {
	type slotCell struct {
		slot SlotId
		cell int
	}
	across := make([]slotCell, len(c.Fill))
	down := make([]slotCell, len(c.Fill))
	for i := range c.Fill {
		across[i] = slotCell{slot: -1}
		down[i] = slotCell{slot: -1}
	}
	for i := range c.Slots {
		s := &c.Slots[i]
		byDir := across
		if s.Direction == Down {
			byDir = down
		}
		for cell := 0; cell < s.Length; cell++ {
			byDir[s.CellIndex(cell, c.Width)] = slotCell{slot: s.Id, cell: cell}
		}
	}

	type pair struct{ lo, hi SlotId }
	idByPair := make(map[pair]CrossingId)
	for i := range c.Slots {
		s := &c.Slots[i]
		other := down
		if s.Direction == Down {
			other = across
		}
		for cell := 0; cell < s.Length; cell++ {
			peer := other[s.CellIndex(cell, c.Width)]
			if peer.slot < 0 {
				continue
			}
			key := pair{lo: min(s.Id, peer.slot), hi: max(s.Id, peer.slot)}
			id, seen := idByPair[key]
			if !seen {
				id = len(idByPair)
				idByPair[key] = id
			}
			s.Crossings[cell] = &Crossing{
				OtherSlot: peer.slot,
				OtherCell: peer.cell,
				Id:        id,
			}
		}
	}
	c.CrossingCount = len(idByPair)
}

// CompleteFill returns the slot's full pre-placed glyph sequence, or false
// if any of its cells is empty.
func (c *Config) CompleteFill(s *SlotConfig) ([]wordlist.Glyph, bool) {
	glyphs := make([]wordlist.Glyph, s.Length)
	for cell := 0; cell < s.Length; cell++ {
		v := c.Fill[s.CellIndex(cell, c.Width)]
		if v < 0 {
			return nil, false
		}
		glyphs[cell] = wordlist.Glyph(v)
	}
	return glyphs, true
}
