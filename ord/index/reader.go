package index

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
	"github.com/RiemaLabs/modular-indexer-ordinals/storage"
)

// Reader serves queries from committed state only. It never sees a height
// the builder has not finished committing.
type Reader struct {
	store *storage.Store
}

func NewReader(store *storage.Store) *Reader {
	return &Reader{store: store}
}

// View pins the latest committed height. Every read through the view sees
// that height, whatever the builder commits meanwhile. Release it when done.
func (r *Reader) View() (*View, error) {
	snap, err := r.store.Snapshot()
	if err != nil {
		return nil, err
	}
	tip, ok, err := snap.Tip()
	if err != nil {
		snap.Release()
		return nil, err
	}
	return &View{snap: snap, tip: tip, hasTip: ok}, nil
}

type View struct {
	snap   *storage.Snapshot
	tip    storage.Tip
	hasTip bool
}

func (v *View) Release() {
	v.snap.Release()
}

// Tip is the committed height the view is pinned to.
func (v *View) Tip() (storage.Tip, bool) {
	return v.tip, v.hasTip
}

// Locate finds the output currently holding n and the offset of n in it.
// Unmined, burned and lost ordinals are ErrNotFound.
func (v *View) Locate(n ord.Ordinal) (ord.SatPoint, error) {
	if !n.Valid() {
		return ord.SatPoint{}, fmt.Errorf("%w: %d is beyond the last ordinal", ord.ErrInvalidOrdinal, n)
	}

	it := v.snap.NewIterator(storage.PrefixRangeOf(storage.PrefixRange))
	defer it.Release()

	// The owning range is the last one starting at or below n.
	if it.Seek(storage.RangeKey(uint64(n) + 1)) {
		if !it.Prev() {
			return ord.SatPoint{}, ErrNotFound
		}
	} else if !it.Last() {
		return ord.SatPoint{}, ErrNotFound
	}
	if err := it.Error(); err != nil {
		return ord.SatPoint{}, err
	}

	start, err := storage.RangeStart(it.Key())
	if err != nil {
		return ord.SatPoint{}, v.fail("range keys decode", err)
	}
	op, end, err := storage.DecodeRangeValue(it.Value())
	if err != nil {
		return ord.SatPoint{}, v.fail("range values decode", err)
	}
	if uint64(n) < start || uint64(n) >= end {
		return ord.SatPoint{}, ErrNotFound
	}

	ranges, err := v.List(op)
	if err != nil {
		return ord.SatPoint{}, err
	}
	offset, ok := ord.Offset(ranges, n)
	if !ok {
		return ord.SatPoint{}, v.fail("range table agrees with output table", fmt.Errorf("%s does not hold %d", op, n))
	}
	return ord.SatPoint{OutPoint: op, Offset: offset}, nil
}

// List returns the ranges op holds in value order, empty if op is unknown or
// spent.
func (v *View) List(op ord.OutPoint) ([]ord.SatRange, error) {
	ranges, _, err := v.Output(op)
	return ranges, err
}

// Output is List that also reports whether op is live, which tells an
// unknown output apart from one holding no value.
func (v *View) Output(op ord.OutPoint) ([]ord.SatRange, bool, error) {
	data, ok, err := v.snap.Get(storage.OutputKey(op))
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return []ord.SatRange{}, false, nil
	}
	ranges, err := ord.DecodeSatRanges(data)
	if err != nil {
		return nil, false, v.fail("stored ranges decode", err)
	}
	return ranges, true, nil
}

// History returns what a spent output held and the height that spent it.
func (v *View) History(op ord.OutPoint) (storage.Spent, error) {
	data, ok, err := v.snap.Get(storage.SpentKey(op))
	if err != nil {
		return storage.Spent{}, err
	}
	if !ok {
		return storage.Spent{}, ErrNotFound
	}
	spent, err := storage.DecodeSpent(data)
	if err != nil {
		return storage.Spent{}, v.fail("spent records decode", err)
	}
	return spent, nil
}

func (v *View) BlockHash(height ord.Height) (chainhash.Hash, error) {
	data, ok, err := v.snap.Get(storage.HeightKey(height))
	if err != nil {
		return chainhash.Hash{}, err
	}
	if !ok {
		return chainhash.Hash{}, ErrNotFound
	}
	hash, err := chainhash.NewHash(data)
	if err != nil {
		return chainhash.Hash{}, v.fail("block hashes decode", err)
	}
	return *hash, nil
}

func (v *View) BlockHeight(hash chainhash.Hash) (ord.Height, error) {
	data, ok, err := v.snap.Get(storage.HashKey(hash))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotFound
	}
	height, err := storage.DecodeHeight(data)
	if err != nil {
		return 0, v.fail("block heights decode", err)
	}
	return height, nil
}

// Lost returns the ranges no output claimed at a committed height.
func (v *View) Lost(height ord.Height) ([]ord.SatRange, error) {
	if !v.hasTip || height > v.tip.Height {
		return nil, ErrNotFound
	}
	data, ok, err := v.snap.Get(storage.LostKey(height))
	if err != nil {
		return nil, err
	}
	if !ok {
		return []ord.SatRange{}, nil
	}
	ranges, err := ord.DecodeSatRanges(data)
	if err != nil {
		return nil, v.fail("stored ranges decode", err)
	}
	return ranges, nil
}

func (v *View) Commitment(height ord.Height) (Commitment, error) {
	data, ok, err := v.snap.Get(storage.CommitmentKey(height))
	if err != nil {
		return Commitment{}, err
	}
	if !ok {
		return Commitment{}, ErrNotFound
	}
	c, ok := DecodeCommitment(data)
	if !ok {
		return Commitment{}, v.fail("commitments decode", fmt.Errorf("%d bytes", len(data)))
	}
	return c, nil
}

type Stats struct {
	Height      ord.Height     `json:"height"`
	Hash        chainhash.Hash `json:"hash"`
	Outputs     uint64         `json:"outputs"`
	Ranges      uint64         `json:"ranges"`
	Spent       uint64         `json:"spent"`
	CarriedFees []ord.SatRange `json:"carriedFees"`
}

// Stats counts the tables at the viewed height. It scans them in full.
func (v *View) Stats() (Stats, error) {
	if !v.hasTip {
		return Stats{}, ErrNotFound
	}
	s := Stats{Height: v.tip.Height, Hash: v.tip.Hash, CarriedFees: v.tip.CarriedFees}
	for _, t := range []struct {
		prefix byte
		count  *uint64
	}{
		{storage.PrefixOutput, &s.Outputs},
		{storage.PrefixRange, &s.Ranges},
		{storage.PrefixSpent, &s.Spent},
	} {
		it := v.snap.NewIterator(storage.PrefixRangeOf(t.prefix))
		for it.Next() {
			*t.count++
		}
		err := it.Error()
		it.Release()
		if err != nil {
			return Stats{}, err
		}
	}
	return s, nil
}

func (v *View) fail(invariant string, err error) error {
	return integrity(v.tip.Height, v.tip.Hash, invariant, err)
}
