package rank

import (
	"errors"
	"regexp"
	"strings"

	"github.com/masahif/termspider/internal/parser"
	"github.com/masahif/termspider/internal/textproc"
)

// ErrEmptyContent is returned when a page yields no rankable terms.
var ErrEmptyContent = errors.New("no indexable terms in document")

// Weight is the base weight credited to every term found in an element.
type Weight struct {
	Element string
	Value   float64
}

// Weights lists element weights in attribution order: text is credited to
// the first element type in this list that contains it.
var Weights = []Weight{
	{"keywords", 50},
	{"title", 50},
	{"description", 50},
	{"h1", 10},
	{"h2", 8},
	{"h3", 6},
	{"h4", 5},
	{"h5", 5},
	{"h6", 5},
	{"b", 3},
	{"strong", 3},
	{"body", 1},
}

// ImageWeight is credited per tag per image.
const ImageWeight = 0.1

const (
	keywordsWeight    = 50
	descriptionWeight = 50
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]{2,}`)

// Words splits text into the lowercased words that element text is ranked
// by. Queries must be split the same way to hit the stored stems.
func Words(text string) []string {
	words := wordPattern.FindAllString(text, -1)
	for i, word := range words {
		words[i] = strings.ToLower(word)
	}
	return words
}

// Builder produces term vectors. It holds only read-only state and may be
// shared by all workers.
type Builder struct {
	stemmer   textproc.Stemmer
	stopwords *textproc.StopwordSet
}

// NewBuilder creates a builder using the given stemmer and stopwords.
func NewBuilder(stemmer textproc.Stemmer, stopwords *textproc.StopwordSet) *Builder {
	return &Builder{
		stemmer:   stemmer,
		stopwords: stopwords,
	}
}

// Build ranks the terms of doc. Meta fields seed the accumulator, then each
// element type of Weights claims the text it contains that no
// higher-ranked type has claimed yet.
func (b *Builder) Build(doc *parser.Document) (Vector, error) {
	acc := make(map[string]float64)

	b.seedMeta(doc, acc)

	claimed := make(map[*parser.Node]struct{})
	isClaimed := func(n *parser.Node) bool {
		_, ok := claimed[n]
		return ok
	}

	for _, weight := range Weights {
		var matched []*parser.Node

		for _, node := range doc.Find(weight.Element).Nodes {
			if b.insideClaimed(node, claimed) {
				continue
			}
			matched = append(matched, node)

			text := strings.Join(parser.LeafText(node, isClaimed), " ")
			for _, word := range Words(text) {
				if b.stopwords.Contains(word) {
					continue
				}
				if stem := b.stemmer.Stem(word); stem != "" {
					acc[stem] += weight.Value
				}
			}
		}

		// Claim after the whole type is processed so nested elements of the
		// same type are each counted.
		for _, node := range matched {
			claimed[node] = struct{}{}
		}
	}

	if len(acc) == 0 {
		return nil, ErrEmptyContent
	}

	return normalize(acc), nil
}

// seedMeta credits description and keyword tokens. Description tokens carry
// the keywords weight and keyword tokens the description weight; both are 50.
func (b *Builder) seedMeta(doc *parser.Document, acc map[string]float64) {
	if description, ok := doc.MetaDescription(); ok {
		for _, token := range strings.Fields(description) {
			token = strings.ToLower(token)
			if b.stopwords.Contains(token) {
				continue
			}
			if stem := b.stemmer.Stem(token); stem != "" {
				acc[stem] += keywordsWeight
			}
		}
	}

	if keywords, ok := doc.MetaKeywords(); ok {
		for _, token := range strings.Split(keywords, ",") {
			token = strings.ToLower(strings.TrimSpace(token))
			if token == "" {
				continue
			}
			if stem := b.stemmer.Stem(token); stem != "" {
				acc[stem] += descriptionWeight
			}
		}
	}
}

func (b *Builder) insideClaimed(n *parser.Node, claimed map[*parser.Node]struct{}) bool {
	for p := n; p != nil; p = p.Parent {
		if _, ok := claimed[p]; ok {
			return true
		}
	}
	return false
}
