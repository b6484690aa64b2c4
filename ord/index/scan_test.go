package index

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord/getter"
)

func start(h ord.Height) uint64 {
	return uint64(h.StartingOrdinal())
}

func TestNextCandidate(t *testing.T) {
	cases := []struct {
		x     uint64
		class ord.Rarity
		want  uint64
	}{
		{12345, ord.Common, 12345},
		{0, ord.Uncommon, 0},
		{1, ord.Uncommon, start(1)},
		{start(7), ord.Uncommon, start(7)},
		{start(7) + 1, ord.Uncommon, start(8)},
		{1, ord.Rare, start(2016)},
		{start(209_665), ord.Rare, start(210_000)},
		{start(209_000), ord.Rare, start(209_664)},
		{1, ord.Epic, start(2016)},
		{start(2016), ord.Epic, start(2016)},
		{1, ord.Legendary, start(1_260_000)},
		{0, ord.Mythic, 0},
		{1, ord.Mythic, ord.Supply},
		// The last block mints a single sat, so Last starts a block.
		{uint64(ord.Last), ord.Uncommon, uint64(ord.Last)},
		{uint64(ord.Last), ord.Rare, ord.Supply},
		{ord.Supply, ord.Uncommon, ord.Supply},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, nextCandidate(c.x, c.class), "x=%d class=%s", c.x, c.class)
	}
}

func TestNextCandidateIsRareEnough(t *testing.T) {
	samples := []uint64{0, 1, start(1) - 1, start(2015) + 3, start(209_999) + 1, start(1_000_000), uint64(ord.Last) / 2}
	for _, class := range []ord.Rarity{ord.Uncommon, ord.Rare, ord.Epic, ord.Legendary} {
		for _, x := range samples {
			c := nextCandidate(x, class)
			require.GreaterOrEqual(t, c, x)
			if c < ord.Supply {
				assert.GreaterOrEqual(t, ord.Ordinal(c).Rarity(), class, "candidate %d for %s", c, class)
			}
		}
	}
}

// The third block merges the first coin of both earlier coinbases into a
// single output, so it holds two uncommon ordinals at different offsets.
func scanChain(t *testing.T) (*View, ord.OutPoint) {
	t.Helper()
	cb := getter.NewChainBuilder("scan")
	genesis := cb.Coinbase(subsidy)
	b0 := cb.Seal()
	second := cb.Coinbase(subsidy)
	b1 := cb.Seal()
	cb.Coinbase(subsidy)
	merge := cb.Spend([]ord.OutPoint{genesis.OutPoint(0), second.OutPoint(0)}, 2*subsidy)
	b2 := cb.Seal()

	s := openStore(t, t.TempDir())
	syncAll(t, newBuilder(t, s, getter.NewMemoryGetter(b0, b1, b2), FeesSameBlock))
	return view(t, s), merge.OutPoint(0)
}

func collect(t *testing.T, s *Scan, limit int) []Match {
	t.Helper()
	var res []Match
	for (limit <= 0 || len(res) < limit) && s.Next() {
		res = append(res, s.Match())
	}
	require.NoError(t, s.Err())
	return res
}

func TestRarityScan(t *testing.T) {
	v, merged := scanChain(t)

	scan := v.RarityScan(ScanOptions{Class: ord.Uncommon})
	defer scan.Release()
	matches := collect(t, scan, 0)
	require.Len(t, matches, 3)

	byOrdinal := make(map[ord.Ordinal]Match)
	for i, m := range matches {
		byOrdinal[m.Ordinal] = m
		if i > 0 {
			prev := matches[i-1].SatPoint
			order := bytes.Compare(prev.OutPoint.Bytes(), m.SatPoint.OutPoint.Bytes())
			assert.True(t, order < 0 || order == 0 && prev.Offset < m.SatPoint.Offset, "matches come in satpoint order")
		}
	}
	assert.Equal(t, ord.SatPoint{OutPoint: merged, Offset: 0}, byOrdinal[0].SatPoint)
	assert.Equal(t, ord.Mythic, byOrdinal[0].Rarity)
	assert.Equal(t, ord.SatPoint{OutPoint: merged, Offset: subsidy}, byOrdinal[ord.Ordinal(subsidy)].SatPoint)
	assert.Equal(t, ord.Uncommon, byOrdinal[ord.Ordinal(subsidy)].Rarity)
	assert.Contains(t, byOrdinal, ord.Ordinal(2*subsidy))

	_, ok := scan.Cursor()
	assert.False(t, ok, "exhausted scans have no cursor")

	mythic := v.RarityScan(ScanOptions{Class: ord.Mythic})
	defer mythic.Release()
	matches = collect(t, mythic, 0)
	require.Len(t, matches, 1)
	assert.Equal(t, ord.Ordinal(0), matches[0].Ordinal)

	rare := v.RarityScan(ScanOptions{Class: ord.Rare})
	defer rare.Release()
	assert.Len(t, collect(t, rare, 0), 1, "only genesis is rarer than uncommon")
}

func TestRarityScanResume(t *testing.T) {
	v, merged := scanChain(t)

	full := v.RarityScan(ScanOptions{Class: ord.Uncommon})
	defer full.Release()
	all := collect(t, full, 0)

	var paged []Match
	var cursor *ord.SatPoint
	for page := 0; page < 5; page++ {
		scan := v.RarityScan(ScanOptions{Class: ord.Uncommon, Cursor: cursor})
		got := collect(t, scan, 1)
		next, ok := scan.Cursor()
		scan.Release()
		if len(got) == 0 {
			break
		}
		paged = append(paged, got...)
		require.True(t, ok)
		cursor = &next
	}
	assert.Equal(t, all, paged)

	// Resuming inside the merged output skips the match at offset zero.
	scan := v.RarityScan(ScanOptions{Class: ord.Uncommon, Cursor: &ord.SatPoint{OutPoint: merged, Offset: 1}})
	defer scan.Release()
	require.True(t, scan.Next())
	assert.Equal(t, ord.Ordinal(subsidy), scan.Match().Ordinal)
}

func TestRarityScanBounds(t *testing.T) {
	v, merged := scanChain(t)

	only := v.RarityScan(ScanOptions{Class: ord.Uncommon, From: &merged, To: &ord.OutPoint{Txid: merged.Txid, Vout: 1}})
	defer only.Release()
	matches := collect(t, only, 0)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, merged, m.SatPoint.OutPoint)
	}

	empty := v.RarityScan(ScanOptions{Class: ord.Uncommon, From: &merged, To: &merged})
	defer empty.Release()
	assert.Empty(t, collect(t, empty, 0))
}
