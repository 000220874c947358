package plagiarism

import (
	"sync"

	"github.com/RishiKendai/aegis-tiling/internal/models"
	"github.com/cespare/xxhash/v2"
)

// windowBase is the multiplier of the rolling window hash.
const windowBase uint64 = 1099511628211

// Sequence is a token sequence prepared for tiling. It is immutable once
// built and may be shared by any number of concurrent comparisons.
type Sequence struct {
	ID     string
	tokens []models.Token
	hashes []uint64

	mu      sync.Mutex
	windows map[int][]uint64
}

// NewSequence fingerprints every token type of tokens.
func NewSequence(id string, tokens []models.Token) *Sequence {
	hashes := make([]uint64, len(tokens))
	for i, tok := range tokens {
		hashes[i] = xxhash.Sum64String(tok.Type)
	}
	return &Sequence{
		ID:      id,
		tokens:  tokens,
		hashes:  hashes,
		windows: make(map[int][]uint64),
	}
}

func (s *Sequence) Len() int {
	return len(s.tokens)
}

func (s *Sequence) Tokens() []models.Token {
	return s.tokens
}

// windowHashes returns the rolling hash of every window of size tokens,
// indexed by window start. The result is cached per size.
func (s *Sequence) windowHashes(size int) []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.windows[size]; ok {
		return w
	}
	w := rollingHashes(s.hashes, size)
	s.windows[size] = w
	return w
}

func rollingHashes(hashes []uint64, size int) []uint64 {
	if size <= 0 || len(hashes) < size {
		return nil
	}

	// windowBase^(size-1), used to drop the leading token
	lead := uint64(1)
	for i := 1; i < size; i++ {
		lead *= windowBase
	}

	out := make([]uint64, len(hashes)-size+1)
	var h uint64
	for i := 0; i < size; i++ {
		h = h*windowBase + hashes[i]
	}
	out[0] = h
	for i := 1; i < len(out); i++ {
		h = (h-hashes[i-1]*lead)*windowBase + hashes[i+size-1]
		out[i] = h
	}
	return out
}
