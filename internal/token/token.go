// Package token provides token counting for budget accounting.
package token

import (
	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens in text. Deterministic per backend.
type Counter interface {
	Count(text string) int
}

// Tiktoken counts tokens with the cl100k_base encoding.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken initializes the cl100k_base encoder. Initialization can fail
// when the encoding data cannot be loaded; callers should fall back to
// Heuristic in that case.
func NewTiktoken() (*Tiktoken, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return &Tiktoken{enc: enc}, nil
}

func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Heuristic approximates 1 token per 4 characters. Used when tiktoken is
// unavailable; never returns 0 for non-empty text.
type Heuristic struct{}

func (Heuristic) Count(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

// Default returns a Tiktoken counter, or Heuristic if tiktoken fails to load.
func Default() Counter {
	if t, err := NewTiktoken(); err == nil {
		return t
	}
	return Heuristic{}
}
