package httpx

import (
	"crypto/subtle"
	"strings"
	"sync/atomic"
)

// TokenSet is consulted by AccessGuard. Implementations must be safe for concurrent use and
// must not block.
type TokenSet interface {
	Contains(token string) bool
}

// AtomicTokenSet is a token set that can be replaced while requests are served.
// The zero value denies everything.
type AtomicTokenSet struct {
	tokens atomic.Pointer[[]string]
}

// NewAtomicTokenSet returns a set holding tokens.
func NewAtomicTokenSet(tokens []string) *AtomicTokenSet {
	s := &AtomicTokenSet{}
	s.Update(tokens)
	return s
}

// Update replaces the set. Blank tokens are ignored; an empty result denies everything.
func (s *AtomicTokenSet) Update(tokens []string) {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	s.tokens.Store(&out)
}

// Len returns the number of usable tokens.
func (s *AtomicTokenSet) Len() int {
	if p := s.tokens.Load(); p != nil {
		return len(*p)
	}
	return 0
}

// Contains reports whether token is in the set. Every entry is compared in constant time.
func (s *AtomicTokenSet) Contains(token string) bool {
	p := s.tokens.Load()
	if p == nil || token == "" {
		return false
	}
	ok := 0
	for _, t := range *p {
		ok |= subtle.ConstantTimeCompare([]byte(token), []byte(t))
	}
	return ok == 1
}
