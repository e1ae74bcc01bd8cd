// Package grid turns a grid template into the static configuration the fill
// engine works against: slots, crossings, and per-slot option lists.
package grid

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Template cell markers.
const (
	blockRune = '#'
	emptyRune = '.'
)

// Template is a parsed grid template: a rectangle of blocked cells, empty
// cells, and pre-filled letters.
type Template struct {
	Width, Height int

	// Cells holds one rune per cell in row-major order: blockRune for a
	// block, 0 for an empty cell, otherwise a pre-filled letter.
	Cells []rune
}

// ParseTemplate reads a template from text: one line per row, '#' for a
// block, '.' for an empty cell, any other rune for a pre-filled letter.
// Leading and trailing blank lines are trimmed; all rows must have the same
// width. Letters are NFC-composed and lowercased like word-list input.
func ParseTemplate(content string) (*Template, error) {
	content = norm.NFC.String(content)
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	lines = lines[start:end]

	if len(lines) == 0 {
		return nil, fmt.Errorf("grid template is empty")
	}

	t := &Template{Height: len(lines)}
	for row, line := range lines {
		line = strings.TrimSpace(line)
		runes := []rune(line)
		if row == 0 {
			t.Width = len(runes)
			if t.Width == 0 {
				return nil, fmt.Errorf("grid template is empty")
			}
		} else if len(runes) != t.Width {
			return nil, fmt.Errorf("row %d has %d cells, want %d", row, len(runes), t.Width)
		}

		for _, r := range runes {
			switch r {
			case blockRune:
				t.Cells = append(t.Cells, blockRune)
			case emptyRune:
				t.Cells = append(t.Cells, 0)
			default:
				t.Cells = append(t.Cells, unicode.ToLower(r))
			}
		}
	}
	return t, nil
}
