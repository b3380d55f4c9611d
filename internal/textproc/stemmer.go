// Package textproc provides the language capabilities used by term
// ranking: a Porter2 stemmer and a read-only stopword set.
package textproc

import (
	"sync"

	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/english"
)

// Stemmer reduces a token to its stem. Implementations must be
// deterministic and safe for concurrent use.
type Stemmer interface {
	Stem(token string) string
}

// Porter2 is the English Snowball (Porter2) stemmer.
type Porter2 struct {
	envPool sync.Pool
}

// NewPorter2 creates a Porter2 stemmer.
func NewPorter2() *Porter2 {
	return &Porter2{
		envPool: sync.Pool{
			New: func() interface{} {
				return snowballstem.NewEnv("")
			},
		},
	}
}

// Stem returns the Porter2 stem of token. Input is expected in lowercase.
func (p *Porter2) Stem(token string) string {
	if token == "" {
		return ""
	}

	env := p.envPool.Get().(*snowballstem.Env)
	env.SetCurrent(token)
	english.Stem(env)
	stem := env.Current()
	p.envPool.Put(env)

	return stem
}

// Ensure Porter2 implements Stemmer
var _ Stemmer = (*Porter2)(nil)
