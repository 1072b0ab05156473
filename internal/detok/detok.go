// Package detok converts backend token ids into valid incremental text.
// Vocabularies split multi-byte UTF-8 sequences across tokens, so a naive
// per-token decode would leak replacement characters into the stream.
package detok

import (
	"strings"
	"unicode/utf8"
)

// Stream accumulates token ids and emits stable text deltas. Emitted deltas
// concatenate to exactly the decode of the full token sequence; previously
// returned text is never re-emitted or rewritten.
type Stream struct {
	decode    func([]int) string
	pending   []int
	committed []int
	emitted   int // bytes of the committed decode already returned
}

// New returns a Stream over the given vocabulary decode function.
func New(decode func(ids []int) string) *Stream {
	return &Stream{decode: decode}
}

// Append feeds one token id. It returns the next text delta and true, or
// ("", false) while the buffered tokens still end inside an incomplete
// multi-byte sequence.
func (s *Stream) Append(id int) (string, bool) {
	s.pending = append(s.pending, id)
	if strings.ContainsRune(s.decode(s.pending), utf8.RuneError) {
		// Partial multi-byte unit; wait for the completing token.
		return "", false
	}
	s.committed = append(s.committed, s.pending...)
	s.pending = s.pending[:0]
	text := s.decode(s.committed)
	if len(text) <= s.emitted {
		return "", false
	}
	delta := text[s.emitted:]
	s.emitted = len(text)
	return delta, true
}

// Flush commits any buffered tokens and returns the remaining valid text.
// Trailing bytes that never formed a complete rune are dropped, so the
// output remains valid UTF-8 even for truncated generations.
func (s *Stream) Flush() string {
	if len(s.pending) > 0 {
		s.committed = append(s.committed, s.pending...)
		s.pending = s.pending[:0]
	}
	text := s.decode(s.committed)
	for !utf8.ValidString(text) {
		text = text[:len(text)-1]
	}
	if len(text) <= s.emitted {
		return ""
	}
	delta := text[s.emitted:]
	s.emitted = len(text)
	return delta
}
