// Package geo converts coordinates between their decimal string form and
// the scaled 16-bit form stored on the ledger.
package geo

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ScaledLen is the length of an encoded Scaled pair.
const ScaledLen = 4

// Coordinates is a latitude/longitude pair as decimal strings.
type Coordinates struct {
	Lat  string `json:"lat"`
	Long string `json:"long"`
}

// Scaled is a coordinate pair in tenths of a degree.
type Scaled struct {
	Lat  int16 `json:"lat"`
	Long int16 `json:"long"`
}

// Parse validates both strings as decimals and scales them. No latitude or
// longitude domain check is applied; only the 16-bit storage bounds are.
func Parse(lat, long string) (Scaled, error) {
	la, err := scale(lat)
	if err != nil {
		return Scaled{}, fmt.Errorf("latitude: %w", err)
	}
	lo, err := scale(long)
	if err != nil {
		return Scaled{}, fmt.Errorf("longitude: %w", err)
	}
	return Scaled{Lat: la, Long: lo}, nil
}

// Scale is Parse on a Coordinates value.
func (c Coordinates) Scale() (Scaled, error) {
	return Parse(c.Lat, c.Long)
}

func (c Coordinates) String() string {
	return c.Lat + "," + c.Long
}

// Unscale renders both values as the shortest decimal string, e.g. 525
// becomes "52.5" and 130 becomes "13".
func (s Scaled) Unscale() Coordinates {
	return Coordinates{
		Lat:  decimal.New(int64(s.Lat), -1).String(),
		Long: decimal.New(int64(s.Long), -1).String(),
	}
}

// Encode returns both values as little-endian int16s, latitude first.
func (s Scaled) Encode() []byte {
	out := make([]byte, ScaledLen)
	binary.LittleEndian.PutUint16(out[0:2], uint16(s.Lat))
	binary.LittleEndian.PutUint16(out[2:4], uint16(s.Long))
	return out
}

// DecodeScaled parses the output of Scaled.Encode.
func DecodeScaled(raw []byte) (Scaled, error) {
	if len(raw) != ScaledLen {
		return Scaled{}, fmt.Errorf("%w: want %d bytes, got %d", ErrMalformed, ScaledLen, len(raw))
	}
	return Scaled{
		Lat:  int16(binary.LittleEndian.Uint16(raw[0:2])),
		Long: int16(binary.LittleEndian.Uint16(raw[2:4])),
	}, nil
}

func scale(s string) (int16, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotDecimal, s)
	}
	v := d.Shift(1).Round(0)
	if v.LessThan(decimal.NewFromInt(math.MinInt16)) || v.GreaterThan(decimal.NewFromInt(math.MaxInt16)) {
		return 0, fmt.Errorf("%w: %q", ErrOutOfRange, s)
	}
	return int16(v.IntPart()), nil
}
