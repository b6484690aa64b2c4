package apis

import (
	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
	"github.com/RiemaLabs/modular-indexer-ordinals/ord/index"
)

type Response[T any] struct {
	Error  *string `json:"error"`
	Result *T      `json:"result"`
}

type OrdinalResult struct {
	ord.Traits
	// Nil when the ordinal is unmined, lost or in transit as a fee.
	SatPoint *string `json:"satpoint"`
	// Height of the committed state the location was read at.
	IndexedHeight uint64 `json:"indexedHeight"`
}

type ConvertResult struct {
	Input  string `json:"input"`
	Format string `json:"format"`
	Output string `json:"output"`
}

type OutputResult struct {
	OutPoint string         `json:"outpoint"`
	Ranges   []ord.SatRange `json:"ranges"`
	Spent    bool           `json:"spent"`
	// Set when Spent.
	SpentHeight *uint64 `json:"spentHeight,omitempty"`
}

type RareResult struct {
	Matches []index.Match `json:"matches"`
	// Pass back as the cursor query to continue. Nil when the scan is done.
	Next *string `json:"next"`
}

type RangeResult struct {
	Height  uint64       `json:"height"`
	Subsidy uint64       `json:"subsidy"`
	Range   ord.SatRange `json:"range"`
	Hash    *string      `json:"hash"`
}

type BlockHeightResult struct {
	Height uint64 `json:"height"`
	Hash   string `json:"hash"`
}
