package ord

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Ordinal is the permanent number of a single satoshi, assigned in mint order.
type Ordinal uint64

func (n Ordinal) N() uint64 {
	return uint64(n)
}

// Valid reports whether n has been or will be minted.
func (n Ordinal) Valid() bool {
	return uint64(n) < Supply
}

func (n Ordinal) Epoch() Epoch {
	return EpochOfOrdinal(n)
}

func (n Ordinal) EpochPosition() uint64 {
	return uint64(n - n.Epoch().StartingOrdinal())
}

func (n Ordinal) Height() Height {
	epoch := n.Epoch()
	subsidy := epoch.Subsidy()
	if subsidy == 0 {
		return epoch.StartingHeight()
	}
	return epoch.StartingHeight() + Height(n.EpochPosition()/subsidy)
}

func (n Ordinal) Cycle() uint64 {
	return uint64(n.Epoch()) / CycleEpochs
}

func (n Ordinal) Period() uint64 {
	return n.Height().Period()
}

// Third is the offset of n within the subsidy of the block that minted it.
func (n Ordinal) Third() uint64 {
	subsidy := n.Epoch().Subsidy()
	if subsidy == 0 {
		return 0
	}
	return n.EpochPosition() % subsidy
}

// IsCommon is a cheaper equivalent of n.Rarity() == Common.
func (n Ordinal) IsCommon() bool {
	return n.Third() != 0
}

func (n Ordinal) Degree() Degree {
	height := n.Height()
	return Degree{
		Hour:   n.Cycle(),
		Minute: uint64(height) % SubsidyHalvingInterval,
		Second: uint64(height) % DiffChangeInterval,
		Third:  n.Third(),
	}
}

func (n Ordinal) Decimal() Decimal {
	return Decimal{Height: n.Height(), Offset: n.Third()}
}

func (n Ordinal) Rarity() Rarity {
	return n.Degree().Rarity()
}

// Name encodes Supply-n in bijective base 26, so the last ordinal is "a" and
// the first is the longest name.
func (n Ordinal) Name() string {
	x := Supply - uint64(n)
	var name []byte
	for x > 0 {
		name = append(name, 'a'+byte((x-1)%26))
		x = (x - 1) / 26
	}
	for i, j := 0, len(name)-1; i < j; i, j = i+1, j-1 {
		name[i], name[j] = name[j], name[i]
	}
	return string(name)
}

// Percentile is n relative to the last ordinal, printed with the shortest
// representation that parses back to n.
func (n Ordinal) Percentile() string {
	p := float64(n) / float64(Last) * 100
	return strconv.FormatFloat(p, 'f', -1, 64) + "%"
}

func (n Ordinal) String() string {
	return strconv.FormatUint(uint64(n), 10)
}

func ParseInteger(s string) (Ordinal, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidOrdinal, s)
	}
	if v > uint64(Last) {
		return 0, fmt.Errorf("%w: %d exceeds the last ordinal %d", ErrInvalidOrdinal, v, Last)
	}
	return Ordinal(v), nil
}

func ParseName(s string) (Ordinal, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	var x uint64
	for _, c := range s {
		if c < 'a' || c > 'z' {
			return 0, fmt.Errorf("%w: invalid character %q in %s", ErrInvalidName, c, s)
		}
		x = x*26 + uint64(c-'a') + 1
		if x > Supply {
			return 0, fmt.Errorf("%w: %s is out of range", ErrInvalidName, s)
		}
	}
	return Ordinal(Supply - x), nil
}

func ParsePercentile(s string) (Ordinal, error) {
	if !strings.HasSuffix(s, "%") {
		return 0, fmt.Errorf("%w: missing percent sign in %s", ErrInvalidPercentile, s)
	}
	p, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPercentile, s)
	}
	v := math.Round(p / 100 * float64(Last))
	if v > float64(Last) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPercentile, s)
	}
	return Ordinal(uint64(v)), nil
}
