package backend

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// pieceTable assigns stable ids to text pieces so string-producing runtimes
// can participate in id-based interfaces (trimming cut points, incremental
// detokenization). Ids are only meaningful to the table that issued them.
type pieceTable struct {
	mu     sync.Mutex
	pieces []string
}

func (t *pieceTable) add(piece string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pieces = append(t.pieces, piece)
	return len(t.pieces) - 1
}

// Decode joins the pieces behind ids. Unknown ids decode to nothing.
func (t *pieceTable) Decode(ids []int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var b strings.Builder
	for _, id := range ids {
		if id >= 0 && id < len(t.pieces) {
			b.WriteString(t.pieces[id])
		}
	}
	return b.String()
}

// splitPieces cuts text into word-sized pieces at rune boundaries. Each
// piece is a run of non-space runes followed by its trailing whitespace, so
// the pieces concatenate back to the input exactly.
func splitPieces(text string) []string {
	var out []string
	start := 0
	inSpace := false
	for i, r := range text {
		isSpace := unicode.IsSpace(r)
		if inSpace && !isSpace {
			out = append(out, text[start:i])
			start = i
		}
		inSpace = isSpace
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// approxTokens is the usual bytes/4 estimate for when the runtime cannot
// count for us.
func approxTokens(text string) int {
	n := (len(text) + 3) / 4
	if n == 0 && utf8.RuneCountInString(text) > 0 {
		n = 1
	}
	return n
}
