// Package phase implements the fixed-point phase representation and
// horizontal phase propagation used to keep grain-to-grain resynthesis
// coherent.
//
// Phase is stored as a 16-bit fraction of a full turn (0x10000 == 2π)
// rather than an unbounded radian value: differences between two Type
// values wrap for free via ordinary int16 subtraction, which is exactly
// the "principal branch" reduction the propagation formula needs, and
// bounds the error that would otherwise accumulate across thousands of
// grains of a long stretch.
package phase

import (
	"math"
	"math/cmplx"
)

// Type is a phase expressed as a signed 16-bit fraction of a full turn.
// Arithmetic (+, -) wraps modulo one turn automatically via int16
// overflow semantics.
type Type int16

// FromRadians converts a radian phase (of any magnitude) to the fixed-point
// representation, wrapping it into a full turn first and saturating at the
// int16 limits so the float64->int16 conversion never overflows.
func FromRadians(rad float64) Type {
	wrapped := wrap(rad)

	return Type(math.Min(math.Round(wrapped/math.Pi*0x8000), math.MaxInt16))
}

// Radians returns the phase in radians, in the range [-π, π).
func (p Type) Radians() float64 {
	return float64(p) * math.Pi / 0x8000
}

// ToComplex returns exp(i*p) as a unit complex phasor: exp(iπφ/0x8000).
func (p Type) ToComplex() complex128 {
	return cmplx.Exp(complex(0, p.Radians()))
}

// wrap reduces a radian value to the principal branch [-π, π).
func wrap(x float64) float64 {
	x = math.Mod(x+math.Pi, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}

	return x - math.Pi
}

// Advance computes the horizontal-phase-propagation synthesis rotation for
// one bin: given the previous grain's phase, the current grain's phase, the
// bin's centre frequency omega (radians/sample), the analysis hop, and the
// synthesis hop, it returns the synthesis rotation Δ_synth to apply to the
// current grain's spectrum at this bin, and the principal-branch deviation
// δ (in radians) used to derive the bin's true instantaneous frequency.
//
// Δ_synth = (ω + δ/Ha)·Hs − (cur − prev), where δ is the wrapped deviation
// of the observed phase advance from the expected phase advance ω·Ha.
func Advance(prev, cur Type, omega, analysisHop, synthesisHop float64) (rotation Type, delta float64) {
	expected := FromRadians(omega * analysisHop)
	deviation := cur - prev - expected
	delta = deviation.Radians()

	instFreq := omega
	if analysisHop != 0 {
		instFreq += delta / analysisHop
	}

	synthAdvance := FromRadians(instFreq * synthesisHop)

	rotation = synthAdvance - (cur - prev)

	return rotation, delta
}
