// Package mirror holds the local copy of a document body.
//
// Positions are 1-based and count Unicode scalar values (runes), never bytes.
// Every mutation converts positions to byte offsets through offset, so local
// and remote edits resolve positions identically.
package mirror

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrOutOfRange is returned when a position cannot be applied to the buffer.
var ErrOutOfRange = errors.New("position out of range")

// Mirror is a mutable text buffer indexed by 1-based rune position.
//
// Mirror is not safe for concurrent use.
type Mirror struct {
	text string
}

// New returns a mirror seeded with text.
func New(text string) *Mirror {
	return &Mirror{text: text}
}

// String returns the current content.
func (m *Mirror) String() string {
	return m.text
}

// Len returns the number of runes in the buffer.
func (m *Mirror) Len() int {
	return utf8.RuneCountInString(m.text)
}

// offset returns the byte offset of the rune at 0-based index idx. Indexes
// at or past the end clamp to len(text).
func (m *Mirror) offset(idx int) int {
	if idx <= 0 {
		return 0
	}
	n := 0
	for i := range m.text {
		if n == idx {
			return i
		}
		n++
	}
	return len(m.text)
}

// Insert places s immediately before the rune currently at position pos.
// pos == Len()+1 appends. Positions below 1 or above Len()+1 leave the buffer
// untouched and return ErrOutOfRange.
func (m *Mirror) Insert(pos int, s string) error {
	if pos < 1 || pos > m.Len()+1 {
		return fmt.Errorf("%w: insert at %d, length %d", ErrOutOfRange, pos, m.Len())
	}
	off := m.offset(pos - 1)
	m.text = m.text[:off] + s + m.text[off:]
	return nil
}

// Delete removes the inclusive rune range [start, end], i.e. end-start+1
// runes. Both ends clamp to the buffer end. An empty range (start == end+1)
// is a no-op; start below 1 or a start more than one position past end
// returns ErrOutOfRange without modifying the buffer.
func (m *Mirror) Delete(start, end int) error {
	if start < 1 {
		return fmt.Errorf("%w: delete from %d", ErrOutOfRange, start)
	}
	n := m.Len()
	from := min(start-1, n)
	to := min(end, n)
	if from > to {
		return fmt.Errorf("%w: delete [%d, %d], length %d", ErrOutOfRange, start, end, n)
	}
	if from == to {
		return nil
	}

	var b strings.Builder
	b.Grow(len(m.text))
	b.WriteString(m.text[:m.offset(from)])
	b.WriteString(m.text[m.offset(to):])
	m.text = b.String()
	return nil
}
