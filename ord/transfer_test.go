package ord

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferSplitsRange(t *testing.T) {
	alloc := Transfer([]SatRange{{10, 30}}, []uint64{5, 10})

	require.Len(t, alloc.Outputs, 2)
	assert.Equal(t, []SatRange{{10, 15}}, alloc.Outputs[0])
	assert.Equal(t, []SatRange{{15, 25}}, alloc.Outputs[1])
	assert.Equal(t, []SatRange{{25, 30}}, alloc.Fee)
	assert.True(t, alloc.Shortfall.IsZero())
	assert.NoError(t, VerifyPartition([]SatRange{{10, 30}}, alloc))
}

func TestTransferAcrossInputs(t *testing.T) {
	inputs := []SatRange{{0, 3}, {100, 104}, {50, 51}}
	alloc := Transfer(inputs, []uint64{2, 4, 2})

	assert.Equal(t, []SatRange{{0, 2}}, alloc.Outputs[0])
	assert.Equal(t, []SatRange{{2, 3}, {100, 103}}, alloc.Outputs[1])
	assert.Equal(t, []SatRange{{103, 104}, {50, 51}}, alloc.Outputs[2])
	assert.Empty(t, alloc.Fee)
	assert.NoError(t, VerifyPartition(inputs, alloc))
}

func TestTransferZeroValueOutputs(t *testing.T) {
	alloc := Transfer([]SatRange{{0, 10}}, []uint64{0, 10, 0})

	assert.Equal(t, []SatRange{}, alloc.Outputs[0])
	assert.Equal(t, []SatRange{{0, 10}}, alloc.Outputs[1])
	assert.Equal(t, []SatRange{}, alloc.Outputs[2])
	assert.Empty(t, alloc.Fee)
}

func TestTransferEmptyTape(t *testing.T) {
	alloc := Transfer(nil, []uint64{0, 0})
	for _, out := range alloc.Outputs {
		assert.Empty(t, out)
	}
	assert.Empty(t, alloc.Fee)
	assert.True(t, alloc.Shortfall.IsZero())

	// An exhausted subsidy leaves a coinbase with nothing to hand out.
	alloc = Transfer([]SatRange{{Supply, Supply}}, []uint64{7})
	assert.Empty(t, alloc.Outputs[0])
	assert.Equal(t, uint64(7), alloc.Shortfall.Uint64())
}

func TestTransferShortfall(t *testing.T) {
	alloc := Transfer([]SatRange{{0, 4}}, []uint64{3, 3})
	assert.Equal(t, []SatRange{{0, 3}}, alloc.Outputs[0])
	assert.Equal(t, []SatRange{{3, 4}}, alloc.Outputs[1])
	assert.Equal(t, uint64(2), alloc.Shortfall.Uint64())
}

func TestTransferNoOutputs(t *testing.T) {
	alloc := Transfer([]SatRange{{0, 4}, {9, 12}}, nil)
	assert.Empty(t, alloc.Outputs)
	assert.Equal(t, []SatRange{{0, 4}, {9, 12}}, alloc.Fee)
}

func TestTransferConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 500; round++ {
		var inputs []SatRange
		next := uint64(rng.Intn(1000))
		for i := rng.Intn(6); i >= 0; i-- {
			size := uint64(rng.Intn(50))
			inputs = append(inputs, SatRange{Start: next, End: next + size})
			next += size + uint64(rng.Intn(20))
		}
		total := TotalSize(inputs).Uint64()

		var values []uint64
		budget := total
		for i := rng.Intn(5); i >= 0; i-- {
			v := uint64(0)
			if budget > 0 {
				v = uint64(rng.Int63n(int64(budget) + 1))
			}
			values = append(values, v)
			budget -= v
		}

		alloc := Transfer(inputs, values)
		require.NoError(t, VerifyPartition(inputs, alloc), "round %d", round)
		require.True(t, alloc.Shortfall.IsZero())
		for i, out := range alloc.Outputs {
			require.Equal(t, values[i], TotalSize(out).Uint64())
		}
		require.Equal(t, budget, TotalSize(alloc.Fee).Uint64())
	}
}

func TestVerifyPartitionDetectsMismatch(t *testing.T) {
	alloc := Allocation{Outputs: [][]SatRange{{{0, 5}}}, Fee: []SatRange{{6, 10}}}
	assert.Error(t, VerifyPartition([]SatRange{{0, 10}}, alloc))

	alloc = Allocation{Outputs: [][]SatRange{{{5, 10}}, {{0, 5}}}}
	assert.Error(t, VerifyPartition([]SatRange{{0, 10}}, alloc))
}

func TestTotalsDoNotOverflow(t *testing.T) {
	values := []uint64{^uint64(0), ^uint64(0)}
	total := TotalValue(values)
	assert.False(t, total.IsUint64())
	assert.Equal(t, "0x1fffffffffffffffe", total.Hex())
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t,
		[]SatRange{{0, 10}, {12, 15}},
		Coalesce([]SatRange{{0, 4}, {4, 4}, {4, 10}, {12, 13}, {13, 15}}),
	)
	assert.Empty(t, Coalesce(nil))
}

func TestOffset(t *testing.T) {
	ranges := []SatRange{{10, 15}, {100, 105}}
	off, ok := Offset(ranges, 12)
	assert.True(t, ok)
	assert.Equal(t, uint64(2), off)

	off, ok = Offset(ranges, 101)
	assert.True(t, ok)
	assert.Equal(t, uint64(6), off)

	_, ok = Offset(ranges, 15)
	assert.False(t, ok)
}

func TestSatRangeCodec(t *testing.T) {
	ranges := []SatRange{{0, 1}, {Supply - 1, Supply}}
	got, err := DecodeSatRanges(EncodeSatRanges(ranges))
	require.NoError(t, err)
	assert.Equal(t, ranges, got)

	_, err = DecodeSatRanges(make([]byte, SatRangeSize+1))
	assert.Error(t, err)
}

func TestOutPointAndSatPoint(t *testing.T) {
	const txid = "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"
	op, err := DecodeOutPoint(txid + ":3")
	require.NoError(t, err)
	assert.Equal(t, uint32(3), op.Vout)
	assert.Equal(t, txid+":3", op.String())

	back, err := OutPointFromBytes(op.Bytes())
	require.NoError(t, err)
	assert.Equal(t, op, back)

	sp, err := DecodeSatPoint(txid + ":3:77")
	require.NoError(t, err)
	assert.Equal(t, op, sp.OutPoint)
	assert.Equal(t, uint64(77), sp.Offset)
	assert.Equal(t, txid+":3:77", sp.String())

	for _, bad := range []string{"", "abc:1", txid, txid + ":x", txid + ":1:2"} {
		_, err := DecodeOutPoint(bad)
		assert.ErrorIs(t, err, ErrInvalidOutPoint, bad)
	}
	_, err = DecodeSatPoint(txid + ":1")
	assert.Error(t, err)
	_, err = OutPointFromBytes([]byte{1, 2})
	assert.ErrorIs(t, err, ErrInvalidOutPoint)
}

func TestSatPointJSON(t *testing.T) {
	const txid = "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"
	sp, err := DecodeSatPoint(txid + ":0:12")
	require.NoError(t, err)

	data, err := json.Marshal(struct {
		SatPoint SatPoint `json:"satpoint"`
		OutPoint OutPoint `json:"outpoint"`
	}{sp, sp.OutPoint})
	require.NoError(t, err)
	assert.JSONEq(t, `{"satpoint":"`+txid+`:0:12","outpoint":"`+txid+`:0"}`, string(data))

	var back SatPoint
	require.NoError(t, json.Unmarshal([]byte(`"`+txid+`:0:12"`), &back))
	assert.Equal(t, sp, back)
	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &back))
}
