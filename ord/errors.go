package ord

import "errors"

var (
	ErrInvalidOrdinal    = errors.New("invalid ordinal")
	ErrInvalidName       = errors.New("invalid ordinal name")
	ErrInvalidDegree     = errors.New("invalid degree")
	ErrInvalidDecimal    = errors.New("invalid decimal")
	ErrInvalidPercentile = errors.New("invalid percentile")
	ErrInvalidRarity     = errors.New("invalid rarity")
	ErrInvalidOutPoint   = errors.New("invalid outpoint")
	ErrInvalidSatPoint   = errors.New("invalid satpoint")
	ErrConfiguration     = errors.New("configuration error")
)
