// Package fixedpoint holds the bounded fixed-point fraction used to carry
// temperatures on the ledger.
//
// A Permill stores parts per million in a uint32. Temperatures are quantized
// to tenths of a degree over a denominator of 1000, so 18.6 °C becomes
// 186/1000 and is stored as 186000 parts.
package fixedpoint

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	// Accuracy is the number of parts in one whole.
	Accuracy uint32 = 1_000_000

	// TemperatureDenominator is the denominator quantized temperatures are
	// expressed over.
	TemperatureDenominator uint32 = 1000

	// EncodedLen is the length of an encoded Permill.
	EncodedLen = 4
)

// Rounding selects how FromRational resolves a remainder.
type Rounding int

const (
	Down Rounding = iota
	Up
	NearestPrefDown
)

// Permill is a fraction in [0, 1] with a resolution of one part per million.
type Permill struct {
	parts uint32
}

// Zero is the zero fraction.
var Zero = Permill{}

// FromParts builds a Permill, saturating at one whole.
func FromParts(parts uint32) Permill {
	if parts > Accuracy {
		parts = Accuracy
	}
	return Permill{parts: parts}
}

// FromRational builds n/d. It fails when n > d or d is zero.
func FromRational(n, d uint32, r Rounding) (Permill, error) {
	if d == 0 {
		return Zero, fmt.Errorf("%w: zero denominator", ErrEncode)
	}
	if n > d {
		return Zero, fmt.Errorf("%w: %d/%d exceeds one", ErrEncode, n, d)
	}

	num := uint64(n) * uint64(Accuracy)
	parts := num / uint64(d)
	rem := num % uint64(d)

	switch r {
	case Up:
		if rem > 0 {
			parts++
		}
	case NearestPrefDown:
		if rem*2 > uint64(d) {
			parts++
		}
	}
	return Permill{parts: uint32(parts)}, nil
}

// Quantize turns a Celsius reading into trunc(celsius*10)/1000, rounding
// down. Negative readings saturate to zero. Readings of 100 °C or more do not
// fit and fail with ErrEncode.
func Quantize(celsius float64) (Permill, error) {
	if math.IsNaN(celsius) || celsius <= 0 {
		return Zero, nil
	}
	if math.IsInf(celsius, 1) {
		return Zero, fmt.Errorf("%w: %v °C", ErrEncode, celsius)
	}

	scaled := decimal.NewFromFloat(celsius).Shift(1).Truncate(0)
	if scaled.GreaterThanOrEqual(decimal.NewFromInt(int64(TemperatureDenominator))) {
		return Zero, fmt.Errorf("%w: %s °C out of range", ErrEncode, decimal.NewFromFloat(celsius))
	}

	return FromRational(uint32(scaled.IntPart()), TemperatureDenominator, Down)
}

// Parts returns the raw parts per million.
func (p Permill) Parts() uint32 {
	return p.parts
}

// PerThousand returns the numerator over TemperatureDenominator.
func (p Permill) PerThousand() uint32 {
	return p.parts / (Accuracy / TemperatureDenominator)
}

// Celsius returns the exact temperature the fraction encodes.
func (p Permill) Celsius() decimal.Decimal {
	// parts/1e6 * 1000 / 10 == parts/1e4
	return decimal.New(int64(p.parts), -4)
}

// Deconstruct recovers an approximate Celsius value. Only one decimal
// place survives quantization.
func (p Permill) Deconstruct() float64 {
	return float64(p.parts) / 10_000
}

// Encode returns the deterministic 4-byte little-endian form.
func (p Permill) Encode() []byte {
	out := make([]byte, EncodedLen)
	binary.LittleEndian.PutUint32(out, p.parts)
	return out
}

// Decode parses the output of Encode.
func Decode(raw []byte) (Permill, error) {
	if len(raw) != EncodedLen {
		return Zero, fmt.Errorf("%w: want %d bytes, got %d", ErrDecode, EncodedLen, len(raw))
	}
	parts := binary.LittleEndian.Uint32(raw)
	if parts > Accuracy {
		return Zero, fmt.Errorf("%w: %d parts exceeds one", ErrDecode, parts)
	}
	return Permill{parts: parts}, nil
}

// DecodeTemperature parses an encoded quantized temperature: a whole number
// of thousandths strictly below one.
func DecodeTemperature(raw []byte) (Permill, error) {
	p, err := Decode(raw)
	if err != nil {
		return Zero, err
	}
	if p.parts >= Accuracy {
		return Zero, fmt.Errorf("%w: %d parts is not below one", ErrDecode, p.parts)
	}
	if p.parts%(Accuracy/TemperatureDenominator) != 0 {
		return Zero, fmt.Errorf("%w: %d parts is not a whole number of thousandths", ErrDecode, p.parts)
	}
	return p, nil
}

func (p Permill) String() string {
	return fmt.Sprintf("%d/%d", p.PerThousand(), TemperatureDenominator)
}

// MarshalJSON renders the fraction with its Celsius reading.
func (p Permill) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		PerThousand uint32 `json:"per_thousand"`
		Celsius     string `json:"celsius"`
	}{PerThousand: p.PerThousand(), Celsius: p.Celsius().String()})
}
