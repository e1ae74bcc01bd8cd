package wordlist

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultScore is the score assigned to entries that don't specify one.
const DefaultScore = 50

// maxParseErrors caps the number of errors collected from a single source;
// once exceeded, reading stops.
const maxParseErrors = 100

// Entry is one raw word before normalization.
type Entry struct {
	Canonical string
	Score     int
}

// Source supplies raw word entries to a List. Sources are a closed set:
// MemorySource, ContentsSource, and FileSource.
type Source interface {
	Name() string
	Entries() ([]Entry, []error)
}

// MemorySource serves a fixed in-memory set of entries.
type MemorySource struct {
	ID    string
	Words []Entry
}

func (s *MemorySource) Name() string { return s.ID }

func (s *MemorySource) Entries() ([]Entry, []error) {
	return s.Words, nil
}

// ContentsSource parses word-list text: one entry per line, an optional
// ';'-separated score (default 50). Lines whose normalized form is empty
// are skipped.
type ContentsSource struct {
	ID       string
	Contents string
}

func (s *ContentsSource) Name() string { return s.ID }

func (s *ContentsSource) Entries() ([]Entry, []error) {
	return parseContents(s.Contents)
}

// FileSource reads word-list text from disk.
type FileSource struct {
	ID   string
	Path string
}

func (s *FileSource) Name() string { return s.ID }

func (s *FileSource) Entries() ([]Entry, []error) {
	contents, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, []error{fmt.Errorf("read %s: %w", s.Path, err)}
	}
	return parseContents(string(contents))
}

func parseContents(contents string) ([]Entry, []error) {
	var entries []Entry
	var errs []error

	scanner := bufio.NewScanner(strings.NewReader(contents))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		canonical, scoreText, hasScore := strings.Cut(line, ";")
		score := DefaultScore
		if hasScore {
			parsed, err := strconv.Atoi(strings.TrimSpace(scoreText))
			if err != nil || parsed < 0 || parsed > 100 {
				errs = append(errs, fmt.Errorf("line %d: invalid score %q", lineNo, strings.TrimSpace(scoreText)))
				if len(errs) > maxParseErrors {
					return entries, errs
				}
				continue
			}
			score = parsed
		}

		if strings.TrimSpace(canonical) == "" {
			continue
		}
		entries = append(entries, Entry{Canonical: canonical, Score: score})
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, fmt.Errorf("line %d: %w", lineNo, err))
	}
	return entries, errs
}
