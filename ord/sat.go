package ord

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// OutPointSize is the length of the binary form of an OutPoint.
const OutPointSize = chainhash.HashSize + 4

type OutPoint struct {
	Txid chainhash.Hash
	Vout uint32
}

func (op OutPoint) Encode() string {
	return fmt.Sprintf("%s:%d", op.Txid.String(), op.Vout)
}

func (op OutPoint) String() string {
	return op.Encode()
}

// Bytes returns the raw txid followed by the big-endian vout, so that the
// byte order of outpoints sharing a txid follows their vout.
func (op OutPoint) Bytes() []byte {
	b := make([]byte, OutPointSize)
	copy(b, op.Txid[:])
	binary.BigEndian.PutUint32(b[chainhash.HashSize:], op.Vout)
	return b
}

func (op OutPoint) MarshalText() ([]byte, error) {
	return []byte(op.Encode()), nil
}

func (op *OutPoint) UnmarshalText(text []byte) error {
	decoded, err := DecodeOutPoint(string(text))
	if err != nil {
		return err
	}
	*op = decoded
	return nil
}

func OutPointFromBytes(b []byte) (OutPoint, error) {
	if len(b) != OutPointSize {
		return OutPoint{}, fmt.Errorf("%w: %d bytes", ErrInvalidOutPoint, len(b))
	}
	var op OutPoint
	copy(op.Txid[:], b[:chainhash.HashSize])
	op.Vout = binary.BigEndian.Uint32(b[chainhash.HashSize:])
	return op, nil
}

func DecodeOutPoint(s string) (OutPoint, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return OutPoint{}, fmt.Errorf("%w: %s", ErrInvalidOutPoint, s)
	}
	if len(parts[0]) != chainhash.MaxHashStringSize {
		return OutPoint{}, fmt.Errorf("%w: invalid txid %s", ErrInvalidOutPoint, parts[0])
	}
	txid, err := chainhash.NewHashFromStr(parts[0])
	if err != nil {
		return OutPoint{}, fmt.Errorf("%w: %v", ErrInvalidOutPoint, err)
	}
	vout, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return OutPoint{}, fmt.Errorf("%w: invalid vout %s", ErrInvalidOutPoint, parts[1])
	}
	return OutPoint{Txid: *txid, Vout: uint32(vout)}, nil
}

// SatPoint addresses one ordinal by its offset inside an output's value.
type SatPoint struct {
	OutPoint OutPoint
	Offset   uint64
}

func (sp SatPoint) Encode() string {
	return fmt.Sprintf("%s:%d", sp.OutPoint.Encode(), sp.Offset)
}

func (sp SatPoint) String() string {
	return sp.Encode()
}

func (sp SatPoint) MarshalText() ([]byte, error) {
	return []byte(sp.Encode()), nil
}

func (sp *SatPoint) UnmarshalText(text []byte) error {
	decoded, err := DecodeSatPoint(string(text))
	if err != nil {
		return err
	}
	*sp = decoded
	return nil
}

func DecodeSatPoint(s string) (SatPoint, error) {
	lastColonIndex := strings.LastIndex(s, ":")
	if lastColonIndex == -1 {
		return SatPoint{}, fmt.Errorf("%w: %s", ErrInvalidSatPoint, s)
	}
	op, err := DecodeOutPoint(s[:lastColonIndex])
	if err != nil {
		return SatPoint{}, err
	}
	offset, err := strconv.ParseUint(s[lastColonIndex+1:], 10, 64)
	if err != nil {
		return SatPoint{}, fmt.Errorf("%w: invalid offset in %s", ErrInvalidSatPoint, s)
	}
	return SatPoint{OutPoint: op, Offset: offset}, nil
}

// SatRange is the half-open interval [Start, End) of ordinals.
type SatRange struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

func (r SatRange) Size() uint64 {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

func (r SatRange) Empty() bool {
	return r.End <= r.Start
}

func (r SatRange) Contains(n Ordinal) bool {
	return uint64(n) >= r.Start && uint64(n) < r.End
}

func (r SatRange) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// SatRangeSize is the length of the binary form of a SatRange.
const SatRangeSize = 16

// EncodeSatRanges packs ranges as big-endian (start, end) pairs.
func EncodeSatRanges(ranges []SatRange) []byte {
	b := make([]byte, len(ranges)*SatRangeSize)
	for i, r := range ranges {
		binary.BigEndian.PutUint64(b[i*SatRangeSize:], r.Start)
		binary.BigEndian.PutUint64(b[i*SatRangeSize+8:], r.End)
	}
	return b
}

func DecodeSatRanges(b []byte) ([]SatRange, error) {
	if len(b)%SatRangeSize != 0 {
		return nil, fmt.Errorf("truncated sat range list of %d bytes", len(b))
	}
	ranges := make([]SatRange, len(b)/SatRangeSize)
	for i := range ranges {
		ranges[i] = SatRange{
			Start: binary.BigEndian.Uint64(b[i*SatRangeSize:]),
			End:   binary.BigEndian.Uint64(b[i*SatRangeSize+8:]),
		}
	}
	return ranges, nil
}

// Offset returns the position of n within the concatenation of ranges.
func Offset(ranges []SatRange, n Ordinal) (uint64, bool) {
	var offset uint64
	for _, r := range ranges {
		if r.Contains(n) {
			return offset + uint64(n) - r.Start, true
		}
		offset += r.Size()
	}
	return 0, false
}
