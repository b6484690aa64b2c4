package ord

import "fmt"

// Height is a block height.
type Height uint64

func (h Height) Epoch() Epoch {
	return EpochOfHeight(h)
}

func (h Height) Subsidy() uint64 {
	return h.Epoch().Subsidy()
}

// StartingOrdinal is the total number of ordinals minted by all blocks below
// h. It is computed from the epoch table, never by walking heights.
func (h Height) StartingOrdinal() Ordinal {
	epoch := h.Epoch()
	if epoch >= FirstPostSubsidyEpoch {
		return Ordinal(Supply)
	}
	return epoch.StartingOrdinal() + Ordinal(uint64(h-epoch.StartingHeight())*epoch.Subsidy())
}

func (h Height) Period() uint64 {
	return uint64(h) / DiffChangeInterval
}

// MintedRange returns the half-open range of ordinals minted by the coinbase
// of the block at height h. The range is empty once the subsidy reaches zero.
func MintedRange(h Height) (SatRange, error) {
	if h > MaxHeight {
		return SatRange{}, fmt.Errorf("%w: height %d is beyond the maximum chain length %d", ErrConfiguration, h, MaxHeight)
	}
	start := uint64(h.StartingOrdinal())
	return SatRange{Start: start, End: start + h.Subsidy()}, nil
}

// TotalMintedBefore returns the number of ordinals minted by heights 0..h-1.
func TotalMintedBefore(h Height) uint64 {
	return uint64(h.StartingOrdinal())
}

// LastMintingHeight is the last height with a non-zero subsidy.
func LastMintingHeight() Height {
	return FirstPostSubsidyEpoch.StartingHeight() - 1
}
