package getter

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"

	"github.com/RiemaLabs/modular-indexer-ordinals/internal/metrics"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
)

type BitcoinGetter struct {
	client *rpcclient.Client
}

func NewBitcoinGetter(host, user, pass string, disableTLS bool) (*BitcoinGetter, error) {
	connCfg := &rpcclient.ConnConfig{
		Host:         host,
		User:         user,
		Pass:         pass,
		HTTPPostMode: true, // Bitcoin core only supports HTTP POST mode
		DisableTLS:   disableTLS,
	}
	// Notice the notification parameter is nil since notifications are
	// not supported in HTTP POST mode.
	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, err
	}

	return &BitcoinGetter{
		client: client,
	}, nil
}

func (r *BitcoinGetter) Close() {
	r.client.Shutdown()
}

func (r *BitcoinGetter) GetLatestBlockHeight(_ context.Context) (ord.Height, error) {
	defer metrics.ObserveNodeQuery("getblockcount", time.Now())
	count, err := r.client.GetBlockCount()
	if err != nil {
		return 0, err
	}
	if count < 0 {
		return 0, ErrBlockNotFound
	}
	return ord.Height(count), nil
}

func (r *BitcoinGetter) GetBlockHash(ctx context.Context, height ord.Height) (chainhash.Hash, error) {
	latest, err := r.GetLatestBlockHeight(ctx)
	if err != nil {
		return chainhash.Hash{}, err
	}
	if height > latest {
		return chainhash.Hash{}, fmt.Errorf("%w: height %d above tip %d", ErrBlockNotFound, height, latest)
	}

	defer metrics.ObserveNodeQuery("getblockhash", time.Now())
	hash, err := r.client.GetBlockHash(int64(height))
	if err != nil {
		return chainhash.Hash{}, err
	}
	return *hash, nil
}

func (r *BitcoinGetter) GetBlock(ctx context.Context, height ord.Height) (*Block, error) {
	hash, err := r.GetBlockHash(ctx, height)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	msg, err := r.client.GetBlock(&hash)
	metrics.ObserveNodeQuery("getblock", started)
	if err != nil {
		return nil, err
	}
	return ConvertBlock(height, msg), nil
}

// ConvertBlock strips a wire block down to the outpoints and values that
// range tracking consumes.
func ConvertBlock(height ord.Height, msg *wire.MsgBlock) *Block {
	block := &Block{
		Header: BlockHeader{
			Hash:     msg.BlockHash(),
			PrevHash: msg.Header.PrevBlock,
			Height:   height,
		},
		Transactions: make([]Transaction, 0, len(msg.Transactions)),
	}
	for i, msgTx := range msg.Transactions {
		tx := Transaction{
			Txid:     msgTx.TxHash(),
			Coinbase: i == 0,
			Outputs:  make([]uint64, len(msgTx.TxOut)),
		}
		if !tx.Coinbase {
			tx.Inputs = make([]ord.OutPoint, len(msgTx.TxIn))
			for j, in := range msgTx.TxIn {
				tx.Inputs[j] = ord.OutPoint{Txid: in.PreviousOutPoint.Hash, Vout: in.PreviousOutPoint.Index}
			}
		}
		for j, out := range msgTx.TxOut {
			if out.Value > 0 {
				tx.Outputs[j] = uint64(out.Value)
			}
		}
		block.Transactions = append(block.Transactions, tx)
	}
	return block
}
