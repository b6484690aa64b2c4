package index

import (
	"bytes"

	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
	"github.com/RiemaLabs/modular-indexer-ordinals/storage"
)

// Heights between consecutive blocks that can start a legendary ordinal.
const cycleInterval = ord.SubsidyHalvingInterval * ord.CycleEpochs

// ScanOptions bounds a rarity scan to outpoints in [From, To) and resumes it
// after a previous page.
type ScanOptions struct {
	// Matches must be at least this rare.
	Class ord.Rarity
	From  *ord.OutPoint
	To    *ord.OutPoint
	// Resume point returned by Scan.Cursor.
	Cursor *ord.SatPoint
}

type Match struct {
	Ordinal  ord.Ordinal  `json:"ordinal"`
	SatPoint ord.SatPoint `json:"satpoint"`
	Rarity   ord.Rarity   `json:"rarity"`
}

// Scan lazily walks live outputs in outpoint byte order and, inside each
// output, its ranges in value order. Matches therefore come out in SatPoint
// order, which is what makes the cursor a valid resume point.
type Scan struct {
	view  *View
	class ord.Rarity
	it    iterator.Iterator

	// Current output, its ranges, the range being searched and the value
	// offset where that range begins.
	op      ord.OutPoint
	ranges  []ord.SatRange
	idx     int
	base    uint64
	loaded  bool
	resume  *ord.SatPoint
	minimum uint64

	match Match
	done  bool
	err   error
}

// RarityScan starts a scan at the viewed height. The scan reads the view's
// snapshot and must be released before the view.
func (v *View) RarityScan(opts ScanOptions) *Scan {
	slice := storage.PrefixRangeOf(storage.PrefixOutput)
	rng := &util.Range{Start: slice.Start, Limit: slice.Limit}
	if opts.From != nil {
		rng.Start = storage.OutputKey(*opts.From)
	}
	if opts.Cursor != nil {
		if key := storage.OutputKey(opts.Cursor.OutPoint); bytes.Compare(key, rng.Start) > 0 {
			rng.Start = key
		}
	}
	if opts.To != nil {
		rng.Limit = storage.OutputKey(*opts.To)
	}
	return &Scan{
		view:   v,
		class:  opts.Class,
		it:     v.snap.NewIterator(rng),
		resume: opts.Cursor,
	}
}

// Next advances to the next match. It returns false when the scan is
// exhausted or failed; check Err.
func (s *Scan) Next() bool {
	if s.done {
		return false
	}
	for {
		if !s.loaded && !s.nextOutput() {
			s.done = true
			return false
		}
		for s.idx < len(s.ranges) {
			r := s.ranges[s.idx]
			x := r.Start
			if s.minimum > s.base {
				x += s.minimum - s.base
			}
			for c := nextCandidate(x, s.class); c < r.End; c = nextCandidate(c+1, s.class) {
				n := ord.Ordinal(c)
				if rarity := n.Rarity(); rarity >= s.class {
					offset := s.base + c - r.Start
					s.match = Match{Ordinal: n, SatPoint: ord.SatPoint{OutPoint: s.op, Offset: offset}, Rarity: rarity}
					s.minimum = offset + 1
					return true
				}
			}
			s.base += r.Size()
			s.idx++
		}
		s.loaded = false
	}
}

func (s *Scan) nextOutput() bool {
	if !s.it.Next() {
		s.err = s.it.Error()
		return false
	}
	op, err := ord.OutPointFromBytes(s.it.Key()[1:])
	if err != nil {
		s.err = s.view.fail("output keys decode", err)
		return false
	}
	ranges, err := ord.DecodeSatRanges(s.it.Value())
	if err != nil {
		s.err = s.view.fail("stored ranges decode", err)
		return false
	}
	s.op, s.ranges, s.idx, s.base, s.minimum, s.loaded = op, ranges, 0, 0, 0, true
	if s.resume != nil && s.resume.OutPoint == op {
		s.minimum = s.resume.Offset
	}
	s.resume = nil
	return true
}

func (s *Scan) Match() Match {
	return s.match
}

// Cursor returns where a later scan resumes to continue after the current
// match. It reports false once the scan is exhausted.
func (s *Scan) Cursor() (ord.SatPoint, bool) {
	if s.done || !s.loaded {
		return ord.SatPoint{}, false
	}
	return ord.SatPoint{OutPoint: s.op, Offset: s.minimum}, true
}

func (s *Scan) Err() error {
	return s.err
}

func (s *Scan) Release() {
	s.it.Release()
}

// nextCandidate returns the first ordinal at or above x that can be at least
// as rare as class, or Supply if none exists. Only block starts can be rarer
// than common, so the search jumps between block boundaries.
func nextCandidate(x uint64, class ord.Rarity) uint64 {
	if class == ord.Common || x >= ord.Supply {
		return x
	}
	if class == ord.Mythic {
		if x == 0 {
			return 0
		}
		return ord.Supply
	}

	h := ord.Ordinal(x).Height()
	if uint64(h.StartingOrdinal()) < x {
		h++
	}
	switch class {
	case ord.Rare:
		h = min(roundUp(h, ord.SubsidyHalvingInterval), roundUp(h, ord.DiffChangeInterval))
	case ord.Epic:
		h = roundUp(h, ord.DiffChangeInterval)
	case ord.Legendary:
		h = roundUp(h, cycleInterval)
	}
	return uint64(h.StartingOrdinal())
}

func roundUp(h ord.Height, interval uint64) ord.Height {
	return ord.Height((uint64(h) + interval - 1) / interval * interval)
}
