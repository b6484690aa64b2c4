package ord

import (
	"fmt"
	"strings"
)

// Format tags one of the textual representations of an ordinal.
type Format uint8

const (
	FormatInteger Format = iota
	FormatDecimal
	FormatDegree
	FormatName
	FormatPercentile
)

var formatNames = [...]string{"integer", "decimal", "degree", "name", "percentile"}

// Formats lists every representation.
var Formats = []Format{FormatInteger, FormatDecimal, FormatDegree, FormatName, FormatPercentile}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("format(%d)", uint8(f))
}

// ParseFormatName is the inverse of Format.String.
func ParseFormatName(s string) (Format, error) {
	for i, name := range formatNames {
		if name == s {
			return Format(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown format %q", ErrConfiguration, s)
}

// DetectFormat applies the same precedence as Parse.
func DetectFormat(s string) Format {
	switch {
	case strings.ContainsFunc(s, func(r rune) bool { return r >= 'a' && r <= 'z' }):
		return FormatName
	case strings.Contains(s, "°"):
		return FormatDegree
	case strings.Contains(s, "%"):
		return FormatPercentile
	case strings.Contains(s, "."):
		return FormatDecimal
	default:
		return FormatInteger
	}
}

// Format renders n in the canonical string form of f.
func (n Ordinal) Format(f Format) string {
	switch f {
	case FormatDecimal:
		return n.Decimal().String()
	case FormatDegree:
		return n.Degree().String()
	case FormatName:
		return n.Name()
	case FormatPercentile:
		return n.Percentile()
	default:
		return n.String()
	}
}

// ParseFormat parses s as the given representation.
func ParseFormat(s string, f Format) (Ordinal, error) {
	switch f {
	case FormatDecimal:
		return ParseDecimal(s)
	case FormatDegree:
		return ParseDegree(s)
	case FormatName:
		return ParseName(s)
	case FormatPercentile:
		return ParsePercentile(s)
	case FormatInteger:
		return ParseInteger(s)
	default:
		return 0, fmt.Errorf("%w: unknown format %d", ErrInvalidOrdinal, f)
	}
}

// Parse detects the representation of s and converts it.
func Parse(s string) (Ordinal, Format, error) {
	f := DetectFormat(s)
	n, err := ParseFormat(s, f)
	return n, f, err
}

// Convert re-renders s from any representation into the target one.
func Convert(s string, to Format) (string, error) {
	n, _, err := Parse(s)
	if err != nil {
		return "", err
	}
	return n.Format(to), nil
}
