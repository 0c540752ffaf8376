// Package window precomputes the analysis and synthesis envelopes used by
// the grain pipeline's short-time Fourier transform and its overlap-add
// resynthesis.
//
// Both envelopes are periodic (DFT-even) Hann windows spanning the full
// transform length; the synthesis envelope is rescaled so that, for unity
// speed, summing analysis·synthesis across the eight overlapping grains of
// an 8x-oversampled transform reconstructs exactly unity gain (the classic
// constant-overlap-add condition).
package window

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// OversamplingFactor is transformLength / synthesisHop, fixed by the
// vocoder's log2TransformLength == log2SynthesisHop+3 invariant.
const OversamplingFactor = 8

// Pair holds the precomputed analysis and synthesis envelopes for one
// transform length. Both have length transformLength.
type Pair struct {
	Analysis  []float64
	Synthesis []float64
}

// New builds the analysis/synthesis window pair for a transform of length
// transformLength, where transformLength must be OversamplingFactor times
// the synthesis hop.
func New(transformLength int) (Pair, error) {
	if transformLength <= 0 || transformLength%OversamplingFactor != 0 {
		return Pair{}, fmt.Errorf("window: transformLength %d must be a positive multiple of %d", transformLength, OversamplingFactor)
	}

	hop := transformLength / OversamplingFactor

	analysis := hann(transformLength)
	synthesis := hann(transformLength)

	normalizeCOLA(synthesis, analysis, hop, OversamplingFactor)

	return Pair{Analysis: analysis, Synthesis: synthesis}, nil
}

// hann returns a periodic (DFT-even) Hann window of the given length.
func hann(length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(length))
	}

	return out
}

// normalizeCOLA rescales synth in place so that, summed over overlap
// overlapping shifted copies spaced hop samples apart, analysis[n]*synth[n]
// totals unity at every sample offset within one hop.
func normalizeCOLA(synth, analysis []float64, hop, overlap int) {
	length := len(synth)

	sum := 0.0
	count := 0

	for n := 0; n < hop; n++ {
		total := 0.0

		for k := 0; k < overlap; k++ {
			idx := n + k*hop
			if idx < length {
				total += analysis[idx] * synth[idx]
			}
		}

		sum += total
		count++
	}

	mean := sum / float64(count)
	if mean <= 0 {
		return
	}

	scale := make([]float64, length)
	for i := range scale {
		scale[i] = 1 / mean
	}

	vecmath.MulBlockInPlace(synth, scale)
}

// Apply multiplies buf in place by coeffs (analysis or synthesis window),
// with an optional mute region forced to zero at the head and tail.
func Apply(buf, coeffs []float64, muteHead, muteTail int) error {
	if len(buf) != len(coeffs) {
		return fmt.Errorf("window: Apply: buf length %d, coeffs length %d", len(buf), len(coeffs))
	}

	n := len(buf)

	muteHead = clamp(muteHead, 0, n)
	muteTail = clamp(muteTail, 0, n)

	vecmath.MulBlockInPlace(buf, coeffs)

	for i := 0; i < muteHead; i++ {
		buf[i] = 0
	}

	for i := n - muteTail; i < n; i++ {
		buf[i] = 0
	}

	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
