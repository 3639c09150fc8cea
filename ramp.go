package img2ascii

import (
	"errors"
	"strings"
)

// ErrEmptyRamp is returned when a symbol ramp has no characters.
var ErrEmptyRamp = errors.New("img2ascii: symbol ramp is empty")

// Ramp is an ordered set of symbols. Index 0 is used for the darkest
// cell of an image and the last index for the brightest.
type Ramp []rune

// DefaultRamp leaves the darkest cells blank, which reads well on the
// black background of rendered rasters.
const DefaultRamp = " .-vM"

// Named ramps accepted by ParseRamp.
var Ramps = map[string]string{
	"classic":  ".-vM",
	"spaced":   " .-vM",
	"detailed": " .'`^\",:;Il!i><~+_-?][}{1)(|/tfjrxnuvczXYUJCLQ0OZmwqpdbkhao*#MW&8%B@$",
	"blocks":   " ░▒▓█",
}

// ParseRamp returns the named ramp if s names one, otherwise the runes
// of s itself.
func ParseRamp(s string) (Ramp, error) {
	if named, ok := Ramps[strings.ToLower(s)]; ok {
		s = named
	}
	if s == "" {
		return nil, ErrEmptyRamp
	}
	return Ramp(s), nil
}

// Len returns the number of quantization levels.
func (r Ramp) Len() int {
	return len(r)
}

// At returns the symbol for index i, clamping out-of-range indices to
// the nearest end of the ramp.
func (r Ramp) At(i int) rune {
	if i < 0 {
		i = 0
	}
	if i >= len(r) {
		i = len(r) - 1
	}
	return r[i]
}

// Reverse returns a copy of the ramp in the opposite order.
func (r Ramp) Reverse() Ramp {
	out := make(Ramp, len(r))
	for i, c := range r {
		out[len(r)-1-i] = c
	}
	return out
}

func (r Ramp) String() string {
	return string(r)
}
