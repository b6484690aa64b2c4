package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/RiemaLabs/modular-indexer-ordinals/ord"
)

// One-byte table prefixes.
const (
	PrefixOutput     byte = 'o' // outpoint -> live sat ranges
	PrefixRange      byte = 'r' // range start -> outpoint, end
	PrefixHeight     byte = 'h' // height -> block hash
	PrefixHash       byte = 'H' // block hash -> height
	PrefixSpent      byte = 's' // outpoint -> spent height, ranges
	PrefixLost       byte = 'l' // height -> ranges no output claimed
	PrefixJournal    byte = 'j' // height -> undo journal
	PrefixCommitment byte = 'c' // height -> commitment
	PrefixTip        byte = 't'
)

var TipKey = []byte{PrefixTip, 't', 'i', 'p'}

func heightBytes(prefix byte, h ord.Height) []byte {
	key := make([]byte, 9)
	key[0] = prefix
	binary.BigEndian.PutUint64(key[1:], uint64(h))
	return key
}

func OutputKey(op ord.OutPoint) []byte {
	return append([]byte{PrefixOutput}, op.Bytes()...)
}

func SpentKey(op ord.OutPoint) []byte {
	return append([]byte{PrefixSpent}, op.Bytes()...)
}

func RangeKey(start uint64) []byte {
	key := make([]byte, 9)
	key[0] = PrefixRange
	binary.BigEndian.PutUint64(key[1:], start)
	return key
}

func RangeStart(key []byte) (uint64, error) {
	if len(key) != 9 || key[0] != PrefixRange {
		return 0, fmt.Errorf("malformed range key %x", key)
	}
	return binary.BigEndian.Uint64(key[1:]), nil
}

func HeightKey(h ord.Height) []byte {
	return heightBytes(PrefixHeight, h)
}

func HashKey(hash chainhash.Hash) []byte {
	return append([]byte{PrefixHash}, hash[:]...)
}

func LostKey(h ord.Height) []byte {
	return heightBytes(PrefixLost, h)
}

func JournalKey(h ord.Height) []byte {
	return heightBytes(PrefixJournal, h)
}

func CommitmentKey(h ord.Height) []byte {
	return heightBytes(PrefixCommitment, h)
}

// PrefixRangeOf selects every key of one table.
func PrefixRangeOf(prefix byte) *util.Range {
	return util.BytesPrefix([]byte{prefix})
}

func EncodeHeight(h ord.Height) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(h))
}

func DecodeHeight(b []byte) (ord.Height, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("malformed height of %d bytes", len(b))
	}
	return ord.Height(binary.BigEndian.Uint64(b)), nil
}

func EncodeRangeValue(op ord.OutPoint, end uint64) []byte {
	return binary.BigEndian.AppendUint64(op.Bytes(), end)
}

func DecodeRangeValue(b []byte) (ord.OutPoint, uint64, error) {
	if len(b) != ord.OutPointSize+8 {
		return ord.OutPoint{}, 0, fmt.Errorf("malformed range value of %d bytes", len(b))
	}
	op, err := ord.OutPointFromBytes(b[:ord.OutPointSize])
	if err != nil {
		return ord.OutPoint{}, 0, err
	}
	return op, binary.BigEndian.Uint64(b[ord.OutPointSize:]), nil
}

// Spent is the provenance record left behind by a spent output.
type Spent struct {
	Height ord.Height
	Ranges []ord.SatRange
}

func EncodeSpent(s Spent) []byte {
	return append(EncodeHeight(s.Height), ord.EncodeSatRanges(s.Ranges)...)
}

func DecodeSpent(b []byte) (Spent, error) {
	if len(b) < 8 {
		return Spent{}, fmt.Errorf("malformed spent record of %d bytes", len(b))
	}
	ranges, err := ord.DecodeSatRanges(b[8:])
	if err != nil {
		return Spent{}, err
	}
	return Spent{Height: ord.Height(binary.BigEndian.Uint64(b)), Ranges: ranges}, nil
}

// Tip is the last committed height with the fee ranges it hands to the next
// block's coinbase.
type Tip struct {
	Height      ord.Height
	Hash        chainhash.Hash
	CarriedFees []ord.SatRange
}

func EncodeTip(t Tip) []byte {
	b := EncodeHeight(t.Height)
	b = append(b, t.Hash[:]...)
	return append(b, ord.EncodeSatRanges(t.CarriedFees)...)
}

func DecodeTip(b []byte) (Tip, error) {
	if len(b) < 8+chainhash.HashSize {
		return Tip{}, fmt.Errorf("malformed tip of %d bytes", len(b))
	}
	var t Tip
	t.Height = ord.Height(binary.BigEndian.Uint64(b))
	copy(t.Hash[:], b[8:8+chainhash.HashSize])
	fees, err := ord.DecodeSatRanges(b[8+chainhash.HashSize:])
	if err != nil {
		return Tip{}, err
	}
	t.CarriedFees = fees
	return t, nil
}
