package index

import (
	"fmt"
	"time"

	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
)

// FeeAttribution decides which coinbase receives a block's fee ranges.
type FeeAttribution string

const (
	// FeesSameBlock appends a block's fees to its own coinbase tape, after
	// the minted range, in transaction order.
	FeesSameBlock FeeAttribution = "same-block"
	// FeesNextBlock carries a block's fees to the next block's coinbase,
	// ahead of that block's minted range.
	FeesNextBlock FeeAttribution = "next-block"
)

func ParseFeeAttribution(s string) (FeeAttribution, error) {
	switch FeeAttribution(s) {
	case "", FeesSameBlock:
		return FeesSameBlock, nil
	case FeesNextBlock:
		return FeesNextBlock, nil
	default:
		return "", fmt.Errorf("%w: unknown fee attribution %q", ord.ErrConfiguration, s)
	}
}

type Config struct {
	FeeAttribution FeeAttribution
	// Heights whose undo journals are kept below the tip. It bounds the
	// deepest reorg the builder can undo.
	JournalDepth uint64
	// How long to wait for a new block once synced.
	PollInterval time.Duration
	// Blocks fetched ahead of the one being committed.
	FetchAhead int
	// Stop after committing this height. Zero means follow the node.
	StopHeight ord.Height
}

var DefaultConfig = Config{
	FeeAttribution: FeesSameBlock,
	JournalDepth:   144,
	PollInterval:   10 * time.Second,
	FetchAhead:     8,
}

func (c Config) Validate() error {
	if _, err := ParseFeeAttribution(string(c.FeeAttribution)); err != nil {
		return err
	}
	if c.JournalDepth < ord.BitcoinConfirmations {
		return fmt.Errorf("%w: journal depth %d is below %d confirmations", ord.ErrConfiguration, c.JournalDepth, ord.BitcoinConfirmations)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", ord.ErrConfiguration)
	}
	if c.FetchAhead < 0 {
		return fmt.Errorf("%w: negative fetch-ahead", ord.ErrConfiguration)
	}
	if c.StopHeight > ord.MaxHeight {
		return fmt.Errorf("%w: stop height %d is beyond %d", ord.ErrConfiguration, c.StopHeight, ord.MaxHeight)
	}
	return nil
}
