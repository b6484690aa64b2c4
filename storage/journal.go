package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// TripleElement records one key touched while executing a height, with the
// value it had before and the value it was left with.
type TripleElement struct {
	Key       []byte
	OldValue  []byte
	NewValue  []byte
	OldExists bool
	NewExists bool
}

// Journal is the undo log of one height, in first-touch order.
type Journal struct {
	Elements []TripleElement
}

var errTruncatedJournal = errors.New("truncated journal")

// Encode produces a byte-stable form; commitments are computed over it.
func (j Journal) Encode() []byte {
	b := binary.AppendUvarint(nil, uint64(len(j.Elements)))
	for _, e := range j.Elements {
		var flags byte
		if e.OldExists {
			flags |= 1
		}
		if e.NewExists {
			flags |= 2
		}
		b = append(b, flags)
		for _, field := range [][]byte{e.Key, e.OldValue, e.NewValue} {
			b = binary.AppendUvarint(b, uint64(len(field)))
			b = append(b, field...)
		}
	}
	return b
}

func DecodeJournal(b []byte) (Journal, error) {
	count, n := binary.Uvarint(b)
	if n <= 0 {
		return Journal{}, errTruncatedJournal
	}
	b = b[n:]

	j := Journal{Elements: make([]TripleElement, 0, count)}
	for i := uint64(0); i < count; i++ {
		if len(b) == 0 {
			return Journal{}, errTruncatedJournal
		}
		e := TripleElement{OldExists: b[0]&1 != 0, NewExists: b[0]&2 != 0}
		b = b[1:]
		for _, field := range []*[]byte{&e.Key, &e.OldValue, &e.NewValue} {
			size, n := binary.Uvarint(b)
			if n <= 0 || uint64(len(b)-n) < size {
				return Journal{}, errTruncatedJournal
			}
			*field = append([]byte(nil), b[n:n+int(size)]...)
			b = b[n+int(size):]
		}
		j.Elements = append(j.Elements, e)
	}
	if len(b) != 0 {
		return Journal{}, fmt.Errorf("%d trailing bytes after journal", len(b))
	}
	return j, nil
}
