package storage

import (
	"bytes"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
)

type value struct {
	data   []byte
	exists bool
}

type metaOp struct {
	key    []byte
	value  []byte
	delete bool
}

// Header is the write overlay for one height. Reads see the overlay first and
// fall through to the committed store. Every journaled write is recorded in
// the access list so the height can be undone later; meta writes are not.
type Header struct {
	store  *Store
	Height ord.Height
	Hash   chainhash.Hash

	intermediate map[string]value
	access       []TripleElement
	accessIndex  map[string]int
	meta         []metaOp
}

func (s *Store) NewHeader(height ord.Height, hash chainhash.Hash) *Header {
	return &Header{
		store:        s,
		Height:       height,
		Hash:         hash,
		intermediate: make(map[string]value),
		accessIndex:  make(map[string]int),
	}
}

func (h *Header) Get(key []byte) ([]byte, bool, error) {
	if v, found := h.intermediate[string(key)]; found {
		return v.data, v.exists, nil
	}
	return h.store.get(key)
}

func (h *Header) Put(key []byte, data []byte) error {
	return h.write(key, value{data: data, exists: true})
}

func (h *Header) Delete(key []byte) error {
	return h.write(key, value{})
}

func (h *Header) write(key []byte, v value) error {
	k := string(key)
	if i, found := h.accessIndex[k]; found {
		h.access[i].NewValue = v.data
		h.access[i].NewExists = v.exists
	} else {
		old, oldExists, err := h.store.get(key)
		if err != nil {
			return err
		}
		h.accessIndex[k] = len(h.access)
		h.access = append(h.access, TripleElement{
			Key:       bytes.Clone(key),
			OldValue:  old,
			NewValue:  v.data,
			OldExists: oldExists,
			NewExists: v.exists,
		})
	}
	h.intermediate[k] = v
	return nil
}

// PutMeta writes key with the height's commit but keeps it out of the journal.
func (h *Header) PutMeta(key []byte, data []byte) {
	h.meta = append(h.meta, metaOp{key: key, value: data})
}

func (h *Header) DeleteMeta(key []byte) {
	h.meta = append(h.meta, metaOp{key: key, delete: true})
}

// Journal returns the undo log of the writes so far. Keys written and then
// restored to their committed state within the height are left out.
func (h *Header) Journal() Journal {
	elements := make([]TripleElement, 0, len(h.access))
	for _, e := range h.access {
		if e.OldExists == e.NewExists && bytes.Equal(e.OldValue, e.NewValue) {
			continue
		}
		elements = append(elements, e)
	}
	return Journal{Elements: elements}
}
