package ord

import (
	"fmt"

	uint256 "github.com/holiman/uint256"
)

// Allocation is the result of cutting a transaction's input tape into its
// outputs.
type Allocation struct {
	// One range list per output, in output order.
	Outputs [][]SatRange
	// Whatever the outputs did not consume, in tape order.
	Fee []SatRange
	// Value the outputs asked for beyond the input tape. Zero for any
	// transaction a validating node accepts, except under-claiming coinbases
	// which never produce a shortfall.
	Shortfall *uint256.Int
}

// Transfer walks the concatenated input ranges once, cutting exactly
// values[i] ordinals for each output in turn and splitting a range when a cut
// falls strictly inside it. An empty tape yields empty outputs.
func Transfer(inputs []SatRange, values []uint64) Allocation {
	alloc := Allocation{
		Outputs:   make([][]SatRange, len(values)),
		Shortfall: uint256.NewInt(0),
	}

	next := 0
	var cur SatRange
	pull := func() bool {
		for cur.Empty() {
			if next >= len(inputs) {
				return false
			}
			cur = inputs[next]
			next++
		}
		return true
	}

	for i, value := range values {
		assigned := make([]SatRange, 0, 1)
		remaining := value
		for remaining > 0 && pull() {
			take := min(cur.Size(), remaining)
			assigned = append(assigned, SatRange{Start: cur.Start, End: cur.Start + take})
			cur.Start += take
			remaining -= take
		}
		if remaining > 0 {
			alloc.Shortfall.AddUint64(alloc.Shortfall, remaining)
		}
		alloc.Outputs[i] = assigned
	}

	fee := make([]SatRange, 0)
	for pull() {
		fee = append(fee, cur)
		cur = SatRange{}
	}
	alloc.Fee = fee
	return alloc
}

// TotalSize sums the sizes of ranges without overflowing.
func TotalSize(ranges []SatRange) *uint256.Int {
	total := uint256.NewInt(0)
	for _, r := range ranges {
		total.AddUint64(total, r.Size())
	}
	return total
}

// TotalValue sums output values without overflowing.
func TotalValue(values []uint64) *uint256.Int {
	total := uint256.NewInt(0)
	for _, v := range values {
		total.AddUint64(total, v)
	}
	return total
}

// Coalesce drops empty ranges and merges ranges that continue each other.
func Coalesce(ranges []SatRange) []SatRange {
	res := make([]SatRange, 0, len(ranges))
	for _, r := range ranges {
		if r.Empty() {
			continue
		}
		if last := len(res) - 1; last >= 0 && res[last].End == r.Start {
			res[last].End = r.End
			continue
		}
		res = append(res, r)
	}
	return res
}

// VerifyPartition checks that the outputs followed by the fee reproduce the
// input tape exactly, with no gap, overlap or reordering.
func VerifyPartition(inputs []SatRange, alloc Allocation) error {
	var produced []SatRange
	for _, out := range alloc.Outputs {
		produced = append(produced, out...)
	}
	produced = append(produced, alloc.Fee...)

	want, got := Coalesce(inputs), Coalesce(produced)
	if len(want) != len(got) {
		return fmt.Errorf("partition mismatch: %d input ranges, %d output ranges", len(want), len(got))
	}
	for i := range want {
		if want[i] != got[i] {
			return fmt.Errorf("partition mismatch at %d: input %s, output %s", i, want[i], got[i])
		}
	}
	return nil
}
