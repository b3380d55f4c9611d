package textproc

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed stopwords_en.txt
var englishStopwords string

// StopwordSet is a read-only set of words excluded from ranking. It is
// built once at start-up and never mutated afterwards, so Contains may be
// called from any goroutine.
type StopwordSet struct {
	words map[string]struct{}
}

// DefaultStopwords returns the embedded English stopword list.
func DefaultStopwords() *StopwordSet {
	set, _ := ReadStopwords(strings.NewReader(englishStopwords))
	return set
}

// LoadStopwords reads a stopword file from path. An empty path yields the
// embedded English list.
func LoadStopwords(path string) (*StopwordSet, error) {
	if path == "" {
		return DefaultStopwords(), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stopwords file: %w", err)
	}
	defer func() { _ = file.Close() }()

	set, err := ReadStopwords(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read stopwords file %s: %w", path, err)
	}
	return set, nil
}

// ReadStopwords parses one word per line. Text after '#' or '|' is treated
// as a comment, and words are stored lowercased.
func ReadStopwords(r io.Reader) (*StopwordSet, error) {
	set := &StopwordSet{words: make(map[string]struct{})}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexAny(line, "#|"); i >= 0 {
			line = line[:i]
		}
		for _, word := range strings.Fields(line) {
			set.words[strings.ToLower(word)] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return set, nil
}

// NewStopwordSet builds a set from the given words.
func NewStopwordSet(words ...string) *StopwordSet {
	set := &StopwordSet{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		set.words[strings.ToLower(w)] = struct{}{}
	}
	return set
}

// Contains reports whether word is a stopword. A nil set contains nothing.
func (s *StopwordSet) Contains(word string) bool {
	if s == nil {
		return false
	}
	_, ok := s.words[word]
	return ok
}

// Len returns the number of stopwords.
func (s *StopwordSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.words)
}
