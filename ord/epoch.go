package ord

// Epoch counts subsidy halvings.
type Epoch uint64

var epochStartingOrdinals [FirstPostSubsidyEpoch + 1]uint64

func init() {
	for e := Epoch(0); e < FirstPostSubsidyEpoch; e++ {
		epochStartingOrdinals[e+1] = epochStartingOrdinals[e] + e.Subsidy()*SubsidyHalvingInterval
	}
}

// Subsidy returns the block reward in satoshis for every block of the epoch.
func (e Epoch) Subsidy() uint64 {
	if e >= FirstPostSubsidyEpoch {
		return 0
	}
	return (50 * CoinValue) >> uint64(e)
}

// StartingOrdinal is the number of ordinals minted before the epoch began.
func (e Epoch) StartingOrdinal() Ordinal {
	if e >= FirstPostSubsidyEpoch {
		return Ordinal(Supply)
	}
	return Ordinal(epochStartingOrdinals[e])
}

func (e Epoch) StartingHeight() Height {
	return Height(uint64(e) * SubsidyHalvingInterval)
}

func EpochOfHeight(h Height) Epoch {
	return Epoch(uint64(h) / SubsidyHalvingInterval)
}

// EpochOfOrdinal returns the epoch the ordinal was minted in. Ordinals at or
// beyond Supply map to the first post-subsidy epoch.
func EpochOfOrdinal(n Ordinal) Epoch {
	for e := FirstPostSubsidyEpoch; e > 0; e-- {
		if uint64(n) >= epochStartingOrdinals[e] {
			return e
		}
	}
	return 0
}

// Epochs lists the starting ordinal of every epoch up to and including the
// first post-subsidy epoch.
func Epochs() []Ordinal {
	res := make([]Ordinal, 0, FirstPostSubsidyEpoch+1)
	for e := Epoch(0); e <= FirstPostSubsidyEpoch; e++ {
		res = append(res, e.StartingOrdinal())
	}
	return res
}
