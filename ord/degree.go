package ord

import (
	"fmt"
	"strconv"
	"strings"
)

// Degree re-expresses an ordinal relative to the cycle (Hour), the halving
// epoch (Minute), the difficulty period (Second) and its block (Third).
type Degree struct {
	Hour   uint64
	Minute uint64
	Second uint64
	Third  uint64
}

// The drift between epoch offset and period offset added by each halving.
const halvingIncrement = SubsidyHalvingInterval % DiffChangeInterval

func (d Degree) String() string {
	return fmt.Sprintf("%d°%d′%d″%d‴", d.Hour, d.Minute, d.Second, d.Third)
}

// Rarity classifies the degree. The checks only look at zero offsets, never
// at proximity to a boundary.
func (d Degree) Rarity() Rarity {
	switch {
	case d.Hour == 0 && d.Minute == 0 && d.Second == 0 && d.Third == 0:
		return Mythic
	case d.Minute == 0 && d.Second == 0 && d.Third == 0:
		return Legendary
	case d.Second == 0 && d.Third == 0:
		return Epic
	case d.Minute == 0 && d.Third == 0:
		return Rare
	case d.Third == 0:
		return Uncommon
	default:
		return Common
	}
}

// Ordinal converts the degree back, rejecting tuples that no ordinal maps to.
func (d Degree) Ordinal() (Ordinal, error) {
	if d.Hour > Last.Cycle() {
		return 0, fmt.Errorf("%w: cycle %d is beyond the last cycle", ErrInvalidDegree, d.Hour)
	}
	if d.Minute >= SubsidyHalvingInterval {
		return 0, fmt.Errorf("%w: epoch offset %d", ErrInvalidDegree, d.Minute)
	}
	if d.Second >= DiffChangeInterval {
		return 0, fmt.Errorf("%w: period offset %d", ErrInvalidDegree, d.Second)
	}

	// For valid degrees the distance between the two offsets grows by
	// halvingIncrement with every halving of the cycle.
	relationship := d.Second + SubsidyHalvingInterval*CycleEpochs - d.Minute
	if relationship%halvingIncrement != 0 {
		return 0, fmt.Errorf("%w: epoch offset %d and period offset %d are inconsistent", ErrInvalidDegree, d.Minute, d.Second)
	}
	epochsSinceCycleStart := relationship % DiffChangeInterval / halvingIncrement
	epoch := Epoch(d.Hour*CycleEpochs + epochsSinceCycleStart)
	height := epoch.StartingHeight() + Height(d.Minute)

	if d.Third >= height.Subsidy() {
		return 0, fmt.Errorf("%w: block offset %d exceeds the subsidy of height %d", ErrInvalidDegree, d.Third, height)
	}
	return height.StartingOrdinal() + Ordinal(d.Third), nil
}

// ParseDegree parses "A°B′C″D‴". The block offset "D‴" may be omitted.
func ParseDegree(s string) (Ordinal, error) {
	var d Degree
	rest := s
	var err error
	for _, field := range []struct {
		sep string
		dst *uint64
	}{
		{"°", &d.Hour},
		{"′", &d.Minute},
		{"″", &d.Second},
	} {
		var part string
		var found bool
		part, rest, found = strings.Cut(rest, field.sep)
		if !found {
			return 0, fmt.Errorf("%w: missing %s in %s", ErrInvalidDegree, field.sep, s)
		}
		if *field.dst, err = strconv.ParseUint(part, 10, 64); err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidDegree, s)
		}
	}
	if part, tail, found := strings.Cut(rest, "‴"); found {
		if d.Third, err = strconv.ParseUint(part, 10, 64); err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidDegree, s)
		}
		rest = tail
	}
	if rest != "" {
		return 0, fmt.Errorf("%w: trailing characters in %s", ErrInvalidDegree, s)
	}
	return d.Ordinal()
}
