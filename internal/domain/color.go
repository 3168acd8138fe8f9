package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// RGB is a color with 8-bit channels.
type RGB struct {
	R, G, B uint8
}

// UnitRGB is a color with channels scaled to [0, 1], the form expected
// by drawing surfaces.
type UnitRGB struct {
	R, G, B float64
}

// Black is returned by ParseColor for any input it cannot read.
var Black = RGB{}

// ParseColor reads a UI color string: an optional leading '#' followed by
// exactly six hex digits, in any case. Any other input yields Black;
// callers must not take a black result as proof the input was valid.
func ParseColor(s string) RGB {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return Black
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Black
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}
}

// Unit scales the channels to the unit interval.
func (c RGB) Unit() UnitRGB {
	return UnitRGB{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

// Hex formats the color as "#RRGGBB".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// NormalizeColor returns the canonical "#RRGGBB" form of s.
func NormalizeColor(s string) string {
	return ParseColor(s).Hex()
}

// Bytes converts unit channels back to 8 bits, rounding to nearest and
// clamping values outside [0, 1].
func (c UnitRGB) Bytes() (r, g, b uint8) {
	return unitToByte(c.R), unitToByte(c.G), unitToByte(c.B)
}

func unitToByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
