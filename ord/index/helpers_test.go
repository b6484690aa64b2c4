package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord/getter"
	"github.com/RiemaLabs/modular-indexer-ordinals/storage"
)

const (
	coin    = ord.CoinValue
	subsidy = 50 * coin
)

func openStore(t *testing.T, dir string) *storage.Store {
	t.Helper()
	s, err := storage.Open(dir, storage.Options{CacheSize: 64})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testConfig(mode FeeAttribution) Config {
	cfg := DefaultConfig
	cfg.FeeAttribution = mode
	cfg.PollInterval = 5 * time.Millisecond
	cfg.FetchAhead = 2
	return cfg
}

func newBuilder(t *testing.T, s *storage.Store, g getter.BlockGetter, mode FeeAttribution) *Builder {
	t.Helper()
	b, err := NewBuilder(s, g, testConfig(mode))
	require.NoError(t, err)
	return b
}

// syncAll steps until the builder has nothing left to do.
func syncAll(t *testing.T, b *Builder) {
	t.Helper()
	for i := 0; ; i++ {
		require.Less(t, i, 10_000, "builder does not converge")
		progressed, err := b.Step(context.Background())
		require.NoError(t, err)
		if !progressed {
			return
		}
	}
}

// extend seals n blocks on cb. Each block spends the first coinbase output
// of the block below it, one coin into outputs of 0.6 and 0.3 coins, leaving
// a fee of 0.1 coin. The coinbase claims everything it can under both fee
// attributions.
func extend(cb *getter.ChainBuilder, prev *getter.Block, n int) []*getter.Block {
	blocks := make([]*getter.Block, 0, n)
	for i := 0; i < n; i++ {
		if prev == nil {
			cb.Coinbase(coin, subsidy-coin)
		} else {
			cb.Coinbase(coin, subsidy-coin+coin/10)
			cb.Spend([]ord.OutPoint{prev.Transactions[0].OutPoint(0)}, 6*coin/10, 3*coin/10)
		}
		prev = cb.Seal()
		blocks = append(blocks, prev)
	}
	return blocks
}

// dump reads every key of the store.
func dump(t *testing.T, s *storage.Store) map[string]string {
	t.Helper()
	snap, err := s.Snapshot()
	require.NoError(t, err)
	defer snap.Release()

	res := make(map[string]string)
	it := snap.NewIterator(nil)
	defer it.Release()
	for it.Next() {
		res[string(it.Key())] = string(it.Value())
	}
	require.NoError(t, it.Error())
	return res
}

func view(t *testing.T, s *storage.Store) *View {
	t.Helper()
	v, err := NewReader(s).View()
	require.NoError(t, err)
	t.Cleanup(v.Release)
	return v
}
