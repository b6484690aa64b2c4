package getter

import (
	"context"
	"errors"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
)

// ErrBlockNotFound is returned when the node has no block at the requested
// height yet.
var ErrBlockNotFound = errors.New("block not found")

type BlockHeader struct {
	Hash     chainhash.Hash
	PrevHash chainhash.Hash
	Height   ord.Height
}

// Transaction keeps only what range tracking needs: the outpoints it spends
// and the values of the outputs it creates, both in order.
type Transaction struct {
	Txid     chainhash.Hash
	Coinbase bool
	Inputs   []ord.OutPoint
	Outputs  []uint64
}

func (tx Transaction) OutPoint(vout int) ord.OutPoint {
	return ord.OutPoint{Txid: tx.Txid, Vout: uint32(vout)}
}

type Block struct {
	Header       BlockHeader
	Transactions []Transaction
}

// BlockGetter is the data contract consumed from a fully validating node.
type BlockGetter interface {
	GetLatestBlockHeight(ctx context.Context) (ord.Height, error)
	GetBlockHash(ctx context.Context, height ord.Height) (chainhash.Hash, error)
	GetBlock(ctx context.Context, height ord.Height) (*Block, error)
}
