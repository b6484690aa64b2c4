package checkpoint

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord/getter"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord/index"
	"github.com/RiemaLabs/modular-indexer-ordinals/storage"
)

var testID = IndexerIdentification{URL: "http://localhost:8080", Name: "test", Version: "v0.1.0", MetaProtocol: MetaProtocol}

type recorder struct {
	mu   sync.Mutex
	seen []Checkpoint
	fail bool
}

func (r *recorder) Upload(_ context.Context, c *Checkpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, *c)
	if r.fail {
		return errors.New("bucket unavailable")
	}
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func TestNewCheckpoint(t *testing.T) {
	cb := getter.NewChainBuilder("checkpoint")
	block := cb.Seal()
	commitment := index.NextCommitment(index.Commitment{}, 0, block.Header.Hash, nil)

	c := NewCheckpoint(&testID, 0, block.Header.Hash, commitment)
	assert.Equal(t, "0", c.Height)
	assert.Equal(t, block.Header.Hash.String(), c.Hash)
	assert.Equal(t, commitment.String(), c.Commitment)
	assert.Len(t, c.Commitment, 2*index.CommitmentSize)
	assert.Equal(t, "ordinals", c.MetaProtocol)
	assert.Equal(t, "checkpoint-test-ordinals-0-"+c.Hash+".json", c.ObjectKey())
}

func TestReporterUploads(t *testing.T) {
	rec := &recorder{}
	r := NewReporter(testID, rec, time.Second, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	require.True(t, r.Submit(Checkpoint{Height: "7", Hash: "aa", Name: "test", MetaProtocol: MetaProtocol}))
	require.Eventually(t, func() bool { return r.Uploaded(7) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, map[string]bool{"checkpoint-test-ordinals-7-aa.json": true}, r.History()[7])

	rec.mu.Lock()
	rec.fail = true
	rec.mu.Unlock()
	require.True(t, r.Submit(Checkpoint{Height: "8", Hash: "bb"}))
	require.Eventually(t, func() bool { return len(r.History()[8]) == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, r.Uploaded(8))
}

func TestReporterNeverBlocks(t *testing.T) {
	r := NewReporter(testID, &recorder{}, time.Second, 2)
	assert.True(t, r.Submit(Checkpoint{Height: "1"}))
	assert.True(t, r.Submit(Checkpoint{Height: "2"}))
	assert.False(t, r.Submit(Checkpoint{Height: "3"}), "full queue drops instead of blocking")
}

func TestTrackConfirmedHeights(t *testing.T) {
	cb := getter.NewChainBuilder("track")
	var blocks []*getter.Block
	for i := 0; i < 9; i++ {
		cb.Coinbase(50 * ord.CoinValue)
		blocks = append(blocks, cb.Seal())
	}

	s, err := storage.Open(t.TempDir(), storage.Options{})
	require.NoError(t, err)
	defer s.Close()
	cfg := index.DefaultConfig
	b, err := index.NewBuilder(s, getter.NewMemoryGetter(blocks...), cfg)
	require.NoError(t, err)

	rec := &recorder{}
	r := NewReporter(testID, rec, time.Second, 16)
	reader := index.NewReader(s)
	r.Track(b, reader)
	for {
		progressed, err := b.Step(context.Background())
		require.NoError(t, err)
		if !progressed {
			break
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)
	require.Eventually(t, func() bool { return rec.count() == 3 }, time.Second, 5*time.Millisecond)

	// Heights 6, 7 and 8 confirm heights 0, 1 and 2.
	for i, c := range rec.seen {
		want, err := r.At(reader, ord.Height(i))
		require.NoError(t, err)
		assert.Equal(t, want, c)
		assert.Equal(t, blocks[i].Header.Hash.String(), c.Hash)
	}
}
