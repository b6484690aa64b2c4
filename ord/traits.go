package ord

// Traits gathers every representation and derived property of an ordinal.
type Traits struct {
	Number     uint64 `json:"number"`
	Decimal    string `json:"decimal"`
	Degree     string `json:"degree"`
	Name       string `json:"name"`
	Percentile string `json:"percentile"`
	Height     uint64 `json:"height"`
	Cycle      uint64 `json:"cycle"`
	Epoch      uint64 `json:"epoch"`
	Period     uint64 `json:"period"`
	Offset     uint64 `json:"offset"`
	Rarity     Rarity `json:"rarity"`
}

func (n Ordinal) Traits() Traits {
	return Traits{
		Number:     uint64(n),
		Decimal:    n.Decimal().String(),
		Degree:     n.Degree().String(),
		Name:       n.Name(),
		Percentile: n.Percentile(),
		Height:     uint64(n.Height()),
		Cycle:      n.Cycle(),
		Epoch:      uint64(n.Epoch()),
		Period:     n.Period(),
		Offset:     n.Third(),
		Rarity:     n.Rarity(),
	}
}

type SupplyInfo struct {
	Supply            uint64 `json:"supply"`
	First             uint64 `json:"first"`
	Last              uint64 `json:"last"`
	LastMintingHeight uint64 `json:"lastMintingHeight"`
}

func Supplies() SupplyInfo {
	return SupplyInfo{
		Supply:            Supply,
		First:             0,
		Last:              uint64(Last),
		LastMintingHeight: uint64(LastMintingHeight()),
	}
}
