package checkpoint

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord/index"
)

const MetaProtocol = "ordinals"

// Uploader publishes one checkpoint somewhere durable.
type Uploader interface {
	Upload(ctx context.Context, c *Checkpoint) error
}

type UploaderFunc func(ctx context.Context, c *Checkpoint) error

func (f UploaderFunc) Upload(ctx context.Context, c *Checkpoint) error {
	return f(ctx, c)
}

func NewCheckpoint(indexID *IndexerIdentification, height ord.Height, hash chainhash.Hash, commitment index.Commitment) Checkpoint {
	return Checkpoint{
		URL:          indexID.URL,
		Name:         indexID.Name,
		Version:      indexID.Version,
		MetaProtocol: indexID.MetaProtocol,
		Height:       fmt.Sprintf("%d", height),
		Hash:         hash.String(),
		Commitment:   commitment.String(),
	}
}

// ObjectKey names the checkpoint wherever it is stored.
func (c *Checkpoint) ObjectKey() string {
	return fmt.Sprintf("checkpoint-%s-%s-%s-%s.json", c.Name, c.MetaProtocol, c.Height, c.Hash)
}
