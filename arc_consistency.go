package ingrid

import (
	"slices"

	"github.com/hoverbird/ingrid-core/pkg/grid"
	"github.com/hoverbird/ingrid-core/pkg/wordlist"
)

// CheckInvariants enables internal consistency checks that panic on
// programming errors (e.g. a glyph count going negative). Tests turn it on;
// it is off by default.
var CheckInvariants = false

// EliminationSet tracks the words eliminated from one slot during a single
// propagation call: a dense membership array plus the ordered list of ids
// added, giving O(1) add/contains and O(k) reset.
type EliminationSet struct {
	byID []bool
	ids  []wordlist.WordId
}

// NewEliminationSet builds a set able to hold ids in [0, size).
func NewEliminationSet(size int) *EliminationSet {
	return &EliminationSet{
		byID: make([]bool, size),
		ids:  make([]wordlist.WordId, 0, size),
	}
}

// buildEliminationSets allocates one set per slot, with headroom for hidden
// words that grid construction may have appended to a bucket.
func buildEliminationSets(c *grid.Config) []*EliminationSet {
	sets := make([]*EliminationSet, len(c.Slots))
	for i := range c.Slots {
		sets[i] = NewEliminationSet(len(c.WordList.Bucket(c.Slots[i].Length)) + len(c.Slots))
	}
	return sets
}

// Add records an elimination; adding an id twice is a no-op.
func (e *EliminationSet) Add(id wordlist.WordId) {
	if !e.byID[id] {
		e.byID[id] = true
		e.ids = append(e.ids, id)
	}
}

// Contains reports whether the id has been eliminated.
func (e *EliminationSet) Contains(id wordlist.WordId) bool {
	return e.byID[id]
}

// Eliminated returns the eliminated ids in insertion order. The slice is
// owned by the set.
func (e *EliminationSet) Eliminated() []wordlist.WordId {
	return e.ids
}

// Reset restores the set to empty. When only a few ids were added it clears
// them individually rather than zeroing the whole membership array.
func (e *EliminationSet) Reset() {
	if len(e.ids) < len(e.byID)/4 {
		for _, id := range e.ids {
			e.byID[id] = false
		}
	} else {
		clear(e.byID)
	}
	e.ids = e.ids[:0]
}

// acAdapter supplies the propagator with the search's live state: what was
// already eliminated before this call, each slot's live glyph counts, and
// the single remaining option of a slot.
type acAdapter interface {
	isWordEliminated(slot grid.SlotId, word wordlist.WordId) bool

	// glyphCountsSnapshot returns a copy the propagator may mutate.
	glyphCountsSnapshot(slot grid.SlotId) glyphCounts

	// singleOption returns the one option still live for the slot given
	// both prior eliminations and the ones made during this call.
	singleOption(slot grid.SlotId, elims *EliminationSet) (wordlist.WordId, bool)
}

// acFailure reports that propagation wiped out a slot, with weight
// increments attributing the wipeout to the crossings that caused it.
type acFailure struct {
	weightUpdates map[grid.CrossingId]float64
}

// acSlotState is the propagator's per-slot scratch state for one call.
type acSlotState struct {
	elims *EliminationSet

	// blameCounts[cell] counts eliminations blamed on that cell during this
	// call; used to apportion crossing weights on wipeout.
	blameCounts []int

	// optionCount is the live option count: initial minus eliminations.
	optionCount int

	// counts is cloned lazily from the live slot counts on first touch.
	counts glyphCounts

	// queued lists cell indices whose support sets shrank and need to be
	// propagated outward. nil means the slot isn't queued.
	queued []int

	needsSingleton bool
}

type propagator struct {
	config          *grid.Config
	adapter         acAdapter
	initialCounts   []int
	crossingWeights []float64
	slotWeights     []float64
	fixed           []bool
	states          []acSlotState
}

// establishArcConsistency determines the eliminations needed to bring the
// grid to an arc-consistent state, writing them into sets (one per slot,
// reset here). evaluating >= 0 means the grid was consistent before and only
// that slot's domain changed; -1 re-checks every slot. On wipeout the
// returned failure carries per-crossing blame weights and the sets contents
// are meaningless.
func establishArcConsistency(
	c *grid.Config,
	adapter acAdapter,
	initialCounts []int,
	crossingWeights []float64,
	slotWeights []float64,
	fixed []bool,
	evaluating grid.SlotId,
	sets []*EliminationSet,
) *acFailure {
	p := &propagator{
		config:          c,
		adapter:         adapter,
		initialCounts:   initialCounts,
		crossingWeights: crossingWeights,
		slotWeights:     slotWeights,
		fixed:           fixed,
		states:          make([]acSlotState, len(c.Slots)),
	}
	for i := range p.states {
		sets[i].Reset()
		p.states[i] = acSlotState{
			elims:       sets[i],
			blameCounts: make([]int, c.Slots[i].Length),
			optionCount: initialCounts[i],
		}
	}

	var seedIds []grid.SlotId
	if evaluating >= 0 {
		seedIds = []grid.SlotId{evaluating}
	} else {
		seedIds = make([]grid.SlotId, len(c.Slots))
		for i := range seedIds {
			seedIds[i] = i
		}
	}
	for _, id := range seedIds {
		// A slot with zero options fails before any propagation; there is
		// nothing to blame yet.
		if p.states[id].optionCount == 0 {
			return &acFailure{weightUpdates: map[grid.CrossingId]float64{}}
		}
		for cell, cr := range c.Slots[id].Crossings {
			if cr != nil && !fixed[cr.OtherSlot] {
				p.states[id].queued = append(p.states[id].queued, cell)
			}
		}
		if p.states[id].optionCount == 1 {
			p.states[id].needsSingleton = true
		}
	}

	if CheckInvariants {
		for id, isFixed := range fixed {
			if !isFixed {
				continue
			}
			if _, ok := adapter.singleOption(id, p.states[id].elims); !ok {
				panic("fixed slot must have exactly one option")
			}
		}
	}

	// Two phases alternate until neither has work: a cell-support pass that
	// propagates letter availability between crossing slots, and a
	// singleton pass that applies dupe rules from slots reduced to a single
	// option. The dupe rules can't live inside the cell pass without
	// spoiling the constant-time support check, and nearly all of their
	// pruning value comes from single-option slots anyway.
	for {
		if failure := p.cellPass(); failure != nil {
			return failure
		}
		if failure := p.singletonPass(); failure != nil {
			return failure
		}

		done := true
		for i := range p.states {
			if p.states[i].queued != nil || p.states[i].needsSingleton {
				done = false
				break
			}
		}
		if done {
			return nil
		}
	}
}

// counts returns the slot's scratch glyph counts, fetching a snapshot of the
// live counts on first touch.
func (p *propagator) counts(id grid.SlotId) glyphCounts {
	s := &p.states[id]
	if s.counts == nil {
		s.counts = p.adapter.glyphCountsSnapshot(id)
	}
	return s.counts
}

func (p *propagator) enqueue(id grid.SlotId, cell int) {
	s := &p.states[id]
	if !slices.Contains(s.queued, cell) {
		s.queued = append(s.queued, cell)
	}
}

// cellPass drains the cell queue: repeatedly pick the queued slot with the
// lowest dom/wdeg, walk its queued cells in descending crossing weight, and
// eliminate crossing options with no letter support.
func (p *propagator) cellPass() *acFailure {
	for {
		slotID := grid.SlotId(-1)
		var best float64
		for id := range p.states {
			if p.states[id].queued == nil {
				continue
			}
			priority := float64(p.states[id].optionCount) / p.slotWeights[id]
			if slotID < 0 || priority < best {
				slotID, best = id, priority
			}
		}
		if slotID < 0 {
			return nil
		}

		sc := &p.config.Slots[slotID]
		cells := p.states[slotID].queued
		p.states[slotID].queued = nil

		// Probe the most contentious crossings first.
		slices.SortStableFunc(cells, func(a, b int) int {
			wa := p.crossingWeights[sc.Crossings[a].Id]
			wb := p.crossingWeights[sc.Crossings[b].Id]
			switch {
			case wa > wb:
				return -1
			case wa < wb:
				return 1
			default:
				return 0
			}
		})

		for _, cell := range cells {
			cr := sc.Crossings[cell]
			other := cr.OtherSlot
			otherLength := p.config.Slots[other].Length
			bucket := p.config.WordList.Bucket(otherLength)
			counts := p.counts(slotID)

			for _, w := range p.config.SlotOptions[other] {
				if p.adapter.isWordEliminated(other, w) || p.states[other].elims.Contains(w) {
					continue
				}
				g := bucket[w].Glyphs[cr.OtherCell]
				if counts[cell][g] == 0 {
					if failure := p.eliminate(other, w, cr.OtherCell); failure != nil {
						return failure
					}
				}
			}
		}
	}
}

// singletonPass applies dupe rules from every slot flagged as reduced to a
// single option. Constraints enforced here must be symmetrical, since
// enforcing one direction is assumed to make the reverse check unnecessary.
func (p *propagator) singletonPass() *acFailure {
	var singles []grid.SlotId
	for id := range p.states {
		if p.states[id].needsSingleton {
			p.states[id].needsSingleton = false
			singles = append(singles, id)
		}
	}

	for _, id := range singles {
		w, ok := p.adapter.singleOption(id, p.states[id].elims)
		if !ok {
			if CheckInvariants {
				panic("slot flagged for singleton propagation has no option")
			}
			continue
		}
		dupes := p.config.WordList.Dupes(wordlist.GlobalWordId{
			Length: p.config.Slots[id].Length,
			Id:     w,
		})

		for other := range p.states {
			if other == id || p.fixed[other] {
				continue
			}
			set := dupes[p.config.Slots[other].Length]
			if set == nil {
				continue
			}
			for _, w2 := range p.config.SlotOptions[other] {
				if p.adapter.isWordEliminated(other, w2) || p.states[other].elims.Contains(w2) {
					continue
				}
				if set[w2] {
					if failure := p.eliminate(other, w2, -1); failure != nil {
						return failure
					}
				}
			}
		}
	}
	return nil
}

// eliminate removes one word from a slot, blaming blamedCell (-1 for
// blame-free dupe eliminations), and does the follow-on bookkeeping:
// wipeout failure with crossing weights, singleton flagging, glyph-count
// maintenance, and re-enqueueing of cells whose support just vanished.
func (p *propagator) eliminate(slotID grid.SlotId, wordID wordlist.WordId, blamedCell int) *acFailure {
	s := &p.states[slotID]
	sc := &p.config.Slots[slotID]

	s.elims.Add(wordID)
	s.optionCount--
	if blamedCell >= 0 {
		s.blameCounts[blamedCell]++
	}

	if s.optionCount == 0 {
		// Each crossing is charged the fraction of this slot's options it
		// removed during this call.
		initial := float64(p.initialCounts[slotID])
		updates := make(map[grid.CrossingId]float64, len(sc.Crossings))
		for cell, cr := range sc.Crossings {
			if cr == nil {
				continue
			}
			updates[cr.Id] = float64(s.blameCounts[cell]) / initial
		}
		return &acFailure{weightUpdates: updates}
	}
	if s.optionCount == 1 {
		s.needsSingleton = true
	}

	counts := p.counts(slotID)
	for cell, g := range p.config.WordList.Bucket(sc.Length)[wordID].Glyphs {
		counts[cell][g]--
		if CheckInvariants && counts[cell][g] < 0 {
			panic("glyph count went negative")
		}

		// The blamed cell's crossing is the reason this word died; it has
		// no matching options to remove.
		if cell == blamedCell {
			continue
		}
		if counts[cell][g] != 0 {
			continue
		}
		cr := sc.Crossings[cell]
		if cr == nil || p.fixed[cr.OtherSlot] {
			continue
		}
		// Only worth propagating if the crossing slot still has options
		// relying on the vanished glyph.
		if p.counts(cr.OtherSlot)[cr.OtherCell][g] > 0 {
			p.enqueue(slotID, cell)
		}
	}
	return nil
}
