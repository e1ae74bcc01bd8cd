package ingrid

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/hoverbird/ingrid-core/pkg/grid"
	"github.com/hoverbird/ingrid-core/pkg/wordlist"
)

// Elimination blame sentinels. Non-negative values are the SlotId whose
// choice caused the elimination; blamedNone marks eliminations that outlive
// any single choice.
const (
	notEliminated int32 = -1
	blamedNone    int32 = -2
)

const (
	// weightAgeFactor decays crossing weights on every propagation failure,
	// so stale blame fades while fresh blame stays prominent.
	weightAgeFactor = 0.99

	// interruptFrequency is how many search states pass between checks of
	// the deadline and the abort flag.
	interruptFrequency = 10

	initialMaxBacktracks = 500
	retryGrowthFactor    = 1.1
	maxRetries           = 100000

	// adaptiveBranchingThreshold is the absolute priority slack within which
	// the previously chosen slot is reused instead of re-sampling.
	adaptiveBranchingThreshold = 0.15

	// seedStream is the PCG stream constant; the per-retry seed varies, the
	// stream doesn't.
	seedStream = 0x9e3779b97f4a7c15
)

// Sampling weights for the top candidates in slot and word ordering.
var (
	randomSlotWeights = []int{4, 2, 1}
	randomWordWeights = []int{4, 2, 1}
)

// FailureKind classifies a failed fill.
type FailureKind int

const (
	// HardFailure means the search space is exhausted: no fill exists for
	// this grid and word list.
	HardFailure FailureKind = iota

	// Timeout means the deadline passed before a fill was found.
	Timeout

	// Abort means the config's abort flag was raised.
	Abort

	// ExceededBacktrackLimit is internal to the restart policy; it escapes
	// only when the retry budget is exhausted.
	ExceededBacktrackLimit
)

func (k FailureKind) String() string {
	switch k {
	case HardFailure:
		return "hard failure"
	case Timeout:
		return "timeout"
	case Abort:
		return "abort"
	case ExceededBacktrackLimit:
		return "exceeded backtrack limit"
	}
	return fmt.Sprintf("unknown failure %d", int(k))
}

// FillError is the terminal failure of a fill attempt.
type FillError struct {
	Kind FailureKind

	// Backtracks is populated for ExceededBacktrackLimit.
	Backtracks int
}

func (e *FillError) Error() string {
	switch e.Kind {
	case HardFailure:
		return "grid cannot be filled with the given word list"
	case Timeout:
		return "fill timed out"
	case Abort:
		return "fill aborted"
	case ExceededBacktrackLimit:
		return fmt.Sprintf("exceeded backtrack limit (%d backtracks)", e.Backtracks)
	}
	return e.Kind.String()
}

// Statistics accumulates counters over one fill call, including all retries.
type Statistics struct {
	States               int
	Backtracks           int
	RestrictedBranchings int
	Retries              int

	Duration               time.Duration
	InitialPropagation     time.Duration
	ChoicePropagation      time.Duration
	EliminationPropagation time.Duration
}

// FillSuccess is a complete fill: one choice per slot, in slot id order.
type FillSuccess struct {
	Choices    []grid.Choice
	Statistics Statistics
}

// FillOptions tunes a fill call.
type FillOptions struct {
	// Deadline, when non-zero, bounds the wall-clock time of the call.
	Deadline time.Time

	// StartRetry offsets the retry counter, and with it the PRNG seeds, so
	// callers can resume a seed sequence across calls.
	StartRetry uint64
}

// slotState is one slot's live search state, persistent across propagations
// within one seed attempt.
type slotState struct {
	id     grid.SlotId
	length int

	// eliminations[w] is notEliminated, blamedNone, or the slot id whose
	// choice is to blame. Indexed by bucket-local word id.
	eliminations []int32

	// remaining counts the non-eliminated options. A provisional choice
	// doesn't reduce it.
	remaining int

	// fixedWord pins the slot to one word: the prefilled entry, or the
	// current provisional choice. -1 when the slot is open.
	fixedWord wordlist.WordId

	// prefilled slots were pinned by the template and never unpin.
	prefilled bool

	// counts tracks glyph support over the non-eliminated options.
	counts glyphCounts

	// fixedCounts is the single-word counts while fixedWord is set.
	fixedCounts glyphCounts
}

func (s *slotState) chooseWord(c *grid.Config, w wordlist.WordId) {
	s.fixedWord = w
	s.fixedCounts = glyphCountsForWord(c.WordList, s.length, w)
}

func (s *slotState) clearChoice() {
	s.fixedWord = -1
	s.fixedCounts = nil
}

func (s *slotState) addElimination(c *grid.Config, w wordlist.WordId, blamed int32) {
	s.eliminations[w] = blamed
	s.remaining--
	for cell, g := range c.WordList.Bucket(s.length)[w].Glyphs {
		s.counts[cell][g]--
	}
}

func (s *slotState) removeElimination(c *grid.Config, w wordlist.WordId) {
	s.eliminations[w] = notEliminated
	s.remaining++
	for cell, g := range c.WordList.Bucket(s.length)[w].Glyphs {
		s.counts[cell][g]++
	}
}

// clearEliminations undoes every elimination of this slot blamed on
// blamedSlot.
func (s *slotState) clearEliminations(c *grid.Config, options []wordlist.WordId, blamedSlot grid.SlotId) {
	for _, w := range options {
		if s.eliminations[w] == int32(blamedSlot) {
			s.removeElimination(c, w)
		}
	}
}

// getChoice resolves the slot's word in a completed fill: its pinned word if
// any, else its sole surviving option.
func (s *slotState) getChoice(options []wordlist.WordId) (grid.Choice, bool) {
	if s.fixedWord >= 0 {
		return grid.Choice{Slot: s.id, Word: s.fixedWord}, true
	}
	for _, w := range options {
		if s.eliminations[w] == notEliminated {
			return grid.Choice{Slot: s.id, Word: w}, true
		}
	}
	return grid.Choice{}, false
}

func (s *slotState) clone() slotState {
	out := *s
	out.eliminations = slices.Clone(s.eliminations)
	out.counts = s.counts.clone()
	if s.fixedCounts != nil {
		out.fixedCounts = s.fixedCounts.clone()
	}
	return out
}

// newSlotStates builds the per-slot live state from the static config. A
// fully prefilled slot whose option list isn't exactly one entry makes the
// grid unfillable.
func newSlotStates(c *grid.Config) ([]slotState, *FillError) {
	states := make([]slotState, len(c.Slots))
	for i := range c.Slots {
		sc := &c.Slots[i]
		counts := buildGlyphCountsByCell(c.WordList, sc.Length, c.SlotOptions[i])
		_, prefilled := c.CompleteFill(sc)

		s := slotState{
			id:           sc.Id,
			length:       sc.Length,
			eliminations: make([]int32, len(c.WordList.Bucket(sc.Length))),
			remaining:    len(c.SlotOptions[i]),
			fixedWord:    -1,
			prefilled:    prefilled,
			counts:       counts,
		}
		for w := range s.eliminations {
			s.eliminations[w] = notEliminated
		}
		if prefilled {
			if len(c.SlotOptions[i]) != 1 {
				return nil, &FillError{Kind: HardFailure}
			}
			s.fixedWord = c.SlotOptions[i][0]
			s.fixedCounts = counts.clone()
		}
		states[i] = s
	}
	return states, nil
}

// searchAdapter exposes the live slot states to the propagator.
type searchAdapter struct {
	config *grid.Config
	states []slotState
}

func (a *searchAdapter) isWordEliminated(slot grid.SlotId, w wordlist.WordId) bool {
	return a.states[slot].eliminations[w] != notEliminated
}

func (a *searchAdapter) glyphCountsSnapshot(slot grid.SlotId) glyphCounts {
	s := &a.states[slot]
	if s.fixedCounts != nil {
		return s.fixedCounts.clone()
	}
	return s.counts.clone()
}

func (a *searchAdapter) singleOption(slot grid.SlotId, elims *EliminationSet) (wordlist.WordId, bool) {
	s := &a.states[slot]
	if s.fixedWord >= 0 {
		return s.fixedWord, true
	}
	for _, w := range a.config.SlotOptions[slot] {
		if s.eliminations[w] == notEliminated && !elims.Contains(w) {
			return w, true
		}
	}
	return 0, false
}

// acModeKind distinguishes why a propagation is running.
type acModeKind int

const (
	// acInitial establishes consistency over the whole grid before any
	// choice is made.
	acInitial acModeKind = iota

	// acChoice tests a provisional word choice.
	acChoice

	// acElimination tests removing one word from a slot.
	acElimination
)

type acMode struct {
	kind   acModeKind
	choice grid.Choice

	// blamedSlot applies to acElimination: the slot whose choice the
	// elimination is attributed to, or blamedNone.
	blamedSlot int32
}

// maintainArcConsistency applies the mode's provisional change, runs the
// propagator, and either commits the resulting eliminations or rolls the
// change back. On failure every crossing weight is aged and the failure's
// blame increments are added. Reports whether consistency was established.
func maintainArcConsistency(
	c *grid.Config,
	states []slotState,
	crossingWeights []float64,
	slotWeights []float64,
	mode acMode,
	sets []*EliminationSet,
	stats *Statistics,
) bool {
	switch mode.kind {
	case acChoice:
		states[mode.choice.Slot].chooseWord(c, mode.choice.Word)
	case acElimination:
		states[mode.choice.Slot].addElimination(c, mode.choice.Word, mode.blamedSlot)
	}

	initialCounts := make([]int, len(states))
	for i := range states {
		if states[i].fixedWord >= 0 {
			initialCounts[i] = 1
		} else {
			initialCounts[i] = states[i].remaining
		}
	}

	// Initially only template-pinned slots count as fixed; later any slot
	// down to one option is as good as fixed.
	fixed := make([]bool, len(states))
	for i := range states {
		if mode.kind == acInitial {
			fixed[i] = states[i].prefilled
		} else {
			fixed[i] = initialCounts[i] == 1
		}
	}

	evaluating := grid.SlotId(-1)
	if mode.kind != acInitial {
		evaluating = mode.choice.Slot
	}

	blamed := blamedNone
	switch mode.kind {
	case acChoice:
		blamed = int32(mode.choice.Slot)
	case acElimination:
		blamed = mode.blamedSlot
	}

	start := time.Now()
	failure := establishArcConsistency(
		c,
		&searchAdapter{config: c, states: states},
		initialCounts,
		crossingWeights,
		slotWeights,
		fixed,
		evaluating,
		sets,
	)
	elapsed := time.Since(start)
	switch mode.kind {
	case acInitial:
		stats.InitialPropagation += elapsed
	case acChoice:
		stats.ChoicePropagation += elapsed
	case acElimination:
		stats.EliminationPropagation += elapsed
	}

	if failure == nil {
		for slot := range sets {
			for _, w := range sets[slot].Eliminated() {
				states[slot].addElimination(c, w, blamed)
			}
		}
		if CheckInvariants {
			for i := range states {
				if !checkGlyphCounts(states[i].counts, states[i].remaining) {
					panic("slot glyph counts out of sync with remaining options")
				}
			}
		}
		return true
	}

	switch mode.kind {
	case acChoice:
		states[mode.choice.Slot].clearChoice()
	case acElimination:
		states[mode.choice.Slot].removeElimination(c, mode.choice.Word)
	}
	for id := range crossingWeights {
		crossingWeights[id] = 1.0 + (crossingWeights[id]-1.0)*weightAgeFactor + failure.weightUpdates[id]
	}
	return false
}

// calculateSlotWeights computes each slot's dom/wdeg denominator: the sum of
// its crossing weights, counting only crossings whose peer is still
// undecided.
func calculateSlotWeights(c *grid.Config, states []slotState, crossingWeights []float64) []float64 {
	weights := make([]float64, len(states))
	for i := range c.Slots {
		for _, cr := range c.Slots[i].Crossings {
			if cr == nil {
				continue
			}
			peer := &states[cr.OtherSlot]
			if peer.fixedWord < 0 && peer.remaining > 1 {
				weights[i] += crossingWeights[cr.Id]
			}
		}
	}
	return weights
}

// weightedPick samples an index from weights; indices past limit-1 clamp to
// the last candidate, matching a truncated candidate list.
func weightedPick(rng *rand.Rand, weights []int, limit int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	n := rng.IntN(total)
	for i, w := range weights {
		n -= w
		if n < 0 {
			return min(i, limit-1)
		}
	}
	return limit - 1
}

// chooseNextSlot picks the slot to branch on: lowest remaining/weight wins,
// softened by weighted sampling among the top three. Returns false when
// every slot is decided. Reusing the previous slot while it stays near the
// best priority keeps the search's effective branching factor down.
func chooseNextSlot(
	states []slotState,
	slotWeights []float64,
	lastSlot grid.SlotId,
	rng *rand.Rand,
	stats *Statistics,
) (grid.SlotId, bool) {
	type candidate struct {
		id       grid.SlotId
		priority float64
	}
	var candidates []candidate
	best := math.Inf(1)
	for i := range states {
		s := &states[i]
		if s.fixedWord >= 0 || s.remaining <= 1 {
			continue
		}
		p := float64(s.remaining) / slotWeights[i]
		candidates = append(candidates, candidate{id: i, priority: p})
		if p < best {
			best = p
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}

	if lastSlot >= 0 && states[lastSlot].fixedWord < 0 && states[lastSlot].remaining > 1 {
		lastPriority := float64(states[lastSlot].remaining) / slotWeights[lastSlot]
		if lastPriority-best <= adaptiveBranchingThreshold {
			stats.RestrictedBranchings++
			return lastSlot, true
		}
	}

	slices.SortFunc(candidates, func(a, b candidate) int {
		switch {
		case a.priority < b.priority:
			return -1
		case a.priority > b.priority:
			return 1
		default:
			return a.id - b.id
		}
	})
	limit := min(len(candidates), len(randomSlotWeights))
	return candidates[weightedPick(rng, randomSlotWeights, limit)].id, true
}

// chooseWordFor samples among the first live options of a slot, starting the
// scan at startIdx so consecutive visits to the same slot walk forward.
// firstIdx reports where the live window began, for the caller's memo.
func chooseWordFor(
	c *grid.Config,
	s *slotState,
	startIdx int,
	rng *rand.Rand,
) (word wordlist.WordId, firstIdx int, ok bool) {
	options := c.SlotOptions[s.id]
	type candidate struct {
		idx  int
		word wordlist.WordId
	}
	var candidates []candidate
	for idx := startIdx; idx < len(options) && len(candidates) < len(randomWordWeights); idx++ {
		if s.eliminations[options[idx]] == notEliminated {
			candidates = append(candidates, candidate{idx: idx, word: options[idx]})
		}
	}
	if len(candidates) == 0 {
		return 0, 0, false
	}
	pick := weightedPick(rng, randomWordWeights, len(candidates))
	return candidates[pick].word, candidates[0].idx, true
}

// fillForSeed runs one full backtracking attempt with the PRNG seeded for
// the given retry number. Crossing weights persist across attempts; slot
// state is cloned fresh from base.
func fillForSeed(
	c *grid.Config,
	base []slotState,
	maxBacktracks int,
	retry uint64,
	crossingWeights []float64,
	sets []*EliminationSet,
	deadline time.Time,
) (*FillSuccess, *FillError) {
	rng := rand.New(rand.NewPCG(c.Seed^retry, seedStream))
	var stats Statistics

	states := make([]slotState, len(base))
	for i := range base {
		states[i] = base[i].clone()
	}

	choices := make([]grid.Choice, 0, len(states))
	lastSlot := grid.SlotId(-1)
	lastStartIdx := 0

	for {
		stats.States++

		if stats.States%interruptFrequency == 0 {
			if c.Abort.Load() {
				return nil, &FillError{Kind: Abort}
			}
			if !deadline.IsZero() && time.Now().After(deadline) {
				return nil, &FillError{Kind: Timeout}
			}
		}

		slotWeights := calculateSlotWeights(c, states, crossingWeights)
		slotID, ok := chooseNextSlot(states, slotWeights, lastSlot, rng, &stats)
		if !ok {
			// Every slot is pinned or down to one option: assemble the fill.
			final := make([]grid.Choice, 0, len(states))
			for i := range states {
				choice, ok := states[i].getChoice(c.SlotOptions[i])
				if !ok {
					return nil, &FillError{Kind: HardFailure}
				}
				final = append(final, choice)
			}
			return &FillSuccess{Choices: final, Statistics: stats}, nil
		}

		startIdx := 0
		if slotID == lastSlot {
			startIdx = lastStartIdx
		}
		word, firstIdx, ok := chooseWordFor(c, &states[slotID], startIdx, rng)
		if !ok {
			return nil, &FillError{Kind: HardFailure}
		}
		lastSlot = slotID
		lastStartIdx = firstIdx

		choice := grid.Choice{Slot: slotID, Word: word}
		if maintainArcConsistency(c, states, crossingWeights, slotWeights,
			acMode{kind: acChoice, choice: choice}, sets, &stats) {
			choices = append(choices, choice)
			continue
		}

		// The choice is inconsistent. Rule it out instead; if even that
		// wipes a slot out, unwind choices until an elimination sticks.
		undoing := choice
		for {
			stats.Backtracks++

			blamed := blamedNone
			if len(choices) > 0 {
				blamed = int32(choices[len(choices)-1].Slot)
			}
			if maintainArcConsistency(c, states, crossingWeights, slotWeights,
				acMode{kind: acElimination, choice: undoing, blamedSlot: blamed}, sets, &stats) {
				break
			}

			if len(choices) == 0 {
				return nil, &FillError{Kind: HardFailure}
			}
			undoing = choices[len(choices)-1]
			choices = choices[:len(choices)-1]

			states[undoing.Slot].clearChoice()
			for i := range states {
				if states[i].id != undoing.Slot && states[i].fixedWord < 0 {
					states[i].clearEliminations(c, c.SlotOptions[i], undoing.Slot)
				}
			}

			if stats.Backtracks > maxBacktracks {
				return nil, &FillError{Kind: ExceededBacktrackLimit, Backtracks: stats.Backtracks}
			}

			lastSlot = -1
			lastStartIdx = 0
		}
	}
}

// Fill searches for a complete fill of the grid. It establishes initial arc
// consistency once, then runs seeded attempts under a growing backtrack
// budget; crossing weights learned in one attempt carry into the next.
func Fill(c *grid.Config, opts FillOptions) (*FillSuccess, error) {
	start := time.Now()

	states, ferr := newSlotStates(c)
	if ferr != nil {
		return nil, ferr
	}
	sets := buildEliminationSets(c)

	crossingWeights := make([]float64, c.CrossingCount)
	for i := range crossingWeights {
		crossingWeights[i] = 1.0
	}

	var initStats Statistics
	slotWeights := calculateSlotWeights(c, states, crossingWeights)
	if !maintainArcConsistency(c, states, crossingWeights, slotWeights,
		acMode{kind: acInitial}, sets, &initStats) {
		return nil, &FillError{Kind: HardFailure}
	}

	maxBacktracks := initialMaxBacktracks
	for retry := uint64(0); retry < maxRetries; retry++ {
		result, failure := fillForSeed(
			c, states, maxBacktracks, opts.StartRetry+retry, crossingWeights, sets, opts.Deadline)
		if failure == nil {
			result.Statistics.Retries = int(retry)
			result.Statistics.InitialPropagation = initStats.InitialPropagation
			result.Statistics.Duration = time.Since(start)
			return result, nil
		}
		if failure.Kind != ExceededBacktrackLimit {
			return nil, failure
		}
		maxBacktracks = max(maxBacktracks+1, int(math.Ceil(float64(maxBacktracks)*retryGrowthFactor)))
	}
	return nil, &FillError{Kind: HardFailure}
}
