package ord

import (
	"fmt"
	"strconv"
	"strings"
)

// Decimal is the "height.offset" form of an ordinal.
type Decimal struct {
	Height Height
	Offset uint64
}

func (d Decimal) String() string {
	return fmt.Sprintf("%d.%d", d.Height, d.Offset)
}

func (d Decimal) Ordinal() (Ordinal, error) {
	if d.Offset >= d.Height.Subsidy() {
		return 0, fmt.Errorf("%w: offset %d exceeds the subsidy of height %d", ErrInvalidDecimal, d.Offset, d.Height)
	}
	return d.Height.StartingOrdinal() + Ordinal(d.Offset), nil
}

func ParseDecimal(s string) (Ordinal, error) {
	heightPart, offsetPart, found := strings.Cut(s, ".")
	if !found {
		return 0, fmt.Errorf("%w: missing period in %s", ErrInvalidDecimal, s)
	}
	height, err := strconv.ParseUint(heightPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidDecimal, s)
	}
	offset, err := strconv.ParseUint(offsetPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidDecimal, s)
	}
	return Decimal{Height: Height(height), Offset: offset}.Ordinal()
}
