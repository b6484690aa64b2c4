package getter

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
)

// ErrTransient is what MemoryGetter returns while injected failures remain.
var ErrTransient = errors.New("transient node failure")

// MemoryGetter serves a chain held in memory. Tests use it to script forks,
// reorgs and flaky nodes.
type MemoryGetter struct {
	mu       sync.RWMutex
	blocks   []*Block
	failures int
}

func NewMemoryGetter(blocks ...*Block) *MemoryGetter {
	g := &MemoryGetter{}
	for _, b := range blocks {
		g.Push(b)
	}
	return g
}

// Push appends b as the new tip. b must carry the next height.
func (g *MemoryGetter) Push(b *Block) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blocks = append(g.blocks, b)
}

// Truncate drops every block at or above height, as a reorg would.
func (g *MemoryGetter) Truncate(height ord.Height) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if int(height) < len(g.blocks) {
		g.blocks = g.blocks[:height]
	}
}

// FailNext makes the next n calls return ErrTransient.
func (g *MemoryGetter) FailNext(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = n
}

func (g *MemoryGetter) Tip() *Block {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if len(g.blocks) == 0 {
		return nil
	}
	return g.blocks[len(g.blocks)-1]
}

func (g *MemoryGetter) fail() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failures > 0 {
		g.failures--
		return ErrTransient
	}
	return nil
}

func (g *MemoryGetter) GetLatestBlockHeight(_ context.Context) (ord.Height, error) {
	if err := g.fail(); err != nil {
		return 0, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if len(g.blocks) == 0 {
		return 0, ErrBlockNotFound
	}
	return ord.Height(len(g.blocks) - 1), nil
}

func (g *MemoryGetter) GetBlockHash(ctx context.Context, height ord.Height) (chainhash.Hash, error) {
	b, err := g.GetBlock(ctx, height)
	if err != nil {
		return chainhash.Hash{}, err
	}
	return b.Header.Hash, nil
}

func (g *MemoryGetter) GetBlock(_ context.Context, height ord.Height) (*Block, error) {
	if err := g.fail(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if int(height) >= len(g.blocks) {
		return nil, fmt.Errorf("%w: height %d", ErrBlockNotFound, height)
	}
	return g.blocks[height], nil
}

// ChainBuilder assembles synthetic blocks that link to each other. The salt
// makes competing branches produce distinct hashes and txids.
type ChainBuilder struct {
	Salt   string
	prev   chainhash.Hash
	height ord.Height
	txs    []Transaction
}

func NewChainBuilder(salt string) *ChainBuilder {
	return &ChainBuilder{Salt: salt}
}

// NewForkBuilder continues a chain on top of parent.
func NewForkBuilder(parent *Block, salt string) *ChainBuilder {
	return &ChainBuilder{Salt: salt, prev: parent.Header.Hash, height: parent.Header.Height + 1}
}

// Coinbase queues the coinbase of the pending block. It must be queued first.
func (c *ChainBuilder) Coinbase(outputs ...uint64) Transaction {
	return c.tx(true, nil, outputs)
}

// Spend queues an ordinary transaction of the pending block.
func (c *ChainBuilder) Spend(inputs []ord.OutPoint, outputs ...uint64) Transaction {
	return c.tx(false, inputs, outputs)
}

func (c *ChainBuilder) tx(coinbase bool, inputs []ord.OutPoint, outputs []uint64) Transaction {
	tx := Transaction{
		Txid:     c.hash("tx", uint64(len(c.txs))),
		Coinbase: coinbase,
		Inputs:   inputs,
		Outputs:  outputs,
	}
	c.txs = append(c.txs, tx)
	return tx
}

// Seal finishes the pending block and starts the next one.
func (c *ChainBuilder) Seal() *Block {
	b := &Block{
		Header: BlockHeader{
			Hash:     c.hash("block", 0),
			PrevHash: c.prev,
			Height:   c.height,
		},
		Transactions: c.txs,
	}
	c.prev = b.Header.Hash
	c.height++
	c.txs = nil
	return b
}

func (c *ChainBuilder) hash(kind string, n uint64) chainhash.Hash {
	buf := make([]byte, 0, len(c.Salt)+len(kind)+len(c.prev)+16)
	buf = append(buf, c.Salt...)
	buf = append(buf, kind...)
	buf = append(buf, c.prev[:]...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(c.height))
	buf = binary.BigEndian.AppendUint64(buf, n)
	return chainhash.DoubleHashH(buf)
}
