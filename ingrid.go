package ingrid

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hoverbird/ingrid-core/pkg/grid"
	"github.com/hoverbird/ingrid-core/pkg/wordlist"
)

// GridOptions tunes FillGrid.
type GridOptions struct {
	// MinScore is the minimum word score admitted into any slot; 0 means
	// wordlist.DefaultScore.
	MinScore int

	// DupeWindow, when nonzero, forbids any two entries from sharing a glyph
	// run of this length. Valid values are 3 through 10.
	DupeWindow int

	// Seed drives the fill PRNG; 0 picks the built-in default. Identical
	// inputs and seeds produce identical fills.
	Seed uint64

	// Deadline, when non-zero, bounds the wall-clock time of the fill.
	Deadline time.Time
}

// FillGrid is the one-call entry point: parse a template, ingest word
// sources, and search for a fill. It returns the filled grid as text along
// with the solver's result.
func FillGrid(template string, sources []wordlist.Source, opts GridOptions) (string, *FillSuccess, error) {
	if opts.DupeWindow != 0 && (opts.DupeWindow < 3 || opts.DupeWindow > 10) {
		return "", nil, fmt.Errorf("dupe window must be between 3 and 10, got %d", opts.DupeWindow)
	}

	t, err := grid.ParseTemplate(template)
	if err != nil {
		return "", nil, err
	}

	wl := wordlist.New(sources, opts.DupeWindow, max(t.Width, t.Height))
	if err := sourceErrorsToError(wl.SourceErrors()); err != nil {
		return "", nil, err
	}
	if wl.Len() == 0 {
		return "", nil, fmt.Errorf("word list is empty")
	}

	config, err := grid.NewConfig(wl, t, grid.ConfigOptions{
		MinScore: opts.MinScore,
		Seed:     opts.Seed,
	})
	if err != nil {
		return "", nil, err
	}

	result, err := Fill(config, FillOptions{Deadline: opts.Deadline})
	if err != nil {
		return "", nil, err
	}
	return grid.Render(config, result.Choices), result, nil
}

// sourceErrorsToError folds per-source parse errors into one error, listing
// sources in stable order.
func sourceErrorsToError(bySource map[string][]error) error {
	if len(bySource) == 0 {
		return nil
	}
	names := make([]string, 0, len(bySource))
	for name := range bySource {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		for _, err := range bySource[name] {
			fmt.Fprintf(&b, "\n- %s: %v", name, err)
		}
	}
	return fmt.Errorf("word list errors:%s", b.String())
}
