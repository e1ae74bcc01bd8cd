package grid

import (
	"strings"

	"github.com/hoverbird/ingrid-core/pkg/wordlist"
)

// Render produces the grid as text by overlaying the chosen words onto the
// static fill: '#' for blocks, '.' for cells no choice covers, letters
// elsewhere. Rendering a config with no choices reproduces the template.
func Render(c *Config, choices []Choice) string {
	cells := make([]rune, len(c.Fill))
	for i, v := range c.Fill {
		switch {
		case v == CellBlock:
			cells[i] = blockRune
		case v == CellEmpty:
			cells[i] = emptyRune
		default:
			cells[i] = c.WordList.GlyphRune(wordlist.Glyph(v))
		}
	}

	for _, choice := range choices {
		s := &c.Slots[choice.Slot]
		w := c.WordList.Word(wordlist.GlobalWordId{Length: s.Length, Id: choice.Word})
		for cell, g := range w.Glyphs {
			cells[s.CellIndex(cell, c.Width)] = c.WordList.GlyphRune(g)
		}
	}

	var b strings.Builder
	b.Grow(len(cells) + c.Height)
	for row := 0; row < c.Height; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(cells[row*c.Width : (row+1)*c.Width]))
	}
	return b.String()
}
