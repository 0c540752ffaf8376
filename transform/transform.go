// Package transform provides the real-to-complex FFT/IFFT used by the
// grain pipeline: a transform of length 2^k operates on real time-domain
// samples and produces 2^(k-1)+1 complex bins (DC through Nyquist), and
// vice versa for the inverse.
package transform

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// Transform performs a real FFT/IFFT pair at a fixed power-of-two length.
//
// A Transform owns its scratch buffer and allocates nothing after
// construction; Forward and Inverse may be called repeatedly, once per
// channel per grain, without growing memory.
type Transform struct {
	log2Length int
	length     int
	bins       int
	plan       *algofft.Plan[complex128]
	scratch    []complex128
}

// New creates a Transform for a transform of length 2^log2Length.
func New(log2Length int) (*Transform, error) {
	if log2Length <= 0 {
		return nil, fmt.Errorf("transform: log2Length must be positive: %d", log2Length)
	}

	length := 1 << log2Length

	plan, err := algofft.NewPlan64(length)
	if err != nil {
		return nil, fmt.Errorf("transform: failed to create FFT plan for length %d: %w", length, err)
	}

	return &Transform{
		log2Length: log2Length,
		length:     length,
		bins:       length/2 + 1,
		plan:       plan,
		scratch:    make([]complex128, length),
	}, nil
}

// Length returns the transform's time-domain length 2^log2Length.
func (t *Transform) Length() int { return t.length }

// Bins returns the number of complex bins produced by Forward: length/2+1.
func (t *Transform) Bins() int { return t.bins }

// Forward computes the real FFT of src (which must have length t.Length())
// into dst (which must have length t.Bins()). Bin 0 (DC) and bin
// Bins()-1 (Nyquist) are purely real by construction.
func (t *Transform) Forward(dst []complex128, src []float64) error {
	if len(src) != t.length {
		return fmt.Errorf("transform: Forward: src length %d, want %d", len(src), t.length)
	}

	if len(dst) != t.bins {
		return fmt.Errorf("transform: Forward: dst length %d, want %d", len(dst), t.bins)
	}

	for i, x := range src {
		t.scratch[i] = complex(x, 0)
	}

	if err := t.plan.Forward(t.scratch, t.scratch); err != nil {
		return fmt.Errorf("transform: forward FFT failed: %w", err)
	}

	copy(dst, t.scratch[:t.bins])

	return nil
}

// Inverse computes the real IFFT of src (t.Bins() complex bins) into dst
// (t.Length() real samples), reconstructing the conjugate-symmetric upper
// half of the spectrum before transforming.
func (t *Transform) Inverse(dst []float64, src []complex128) error {
	if len(src) != t.bins {
		return fmt.Errorf("transform: Inverse: src length %d, want %d", len(src), t.bins)
	}

	if len(dst) != t.length {
		return fmt.Errorf("transform: Inverse: dst length %d, want %d", len(dst), t.length)
	}

	half := t.length / 2

	copy(t.scratch[:t.bins], src)
	t.scratch[0] = complex(real(src[0]), 0)
	t.scratch[half] = complex(real(src[half]), 0)

	for k := 1; k < half; k++ {
		v := src[k]
		t.scratch[t.length-k] = complex(real(v), -imag(v))
	}

	if err := t.plan.Inverse(t.scratch, t.scratch); err != nil {
		return fmt.Errorf("transform: inverse FFT failed: %w", err)
	}

	for i := range dst {
		dst[i] = real(t.scratch[i])
	}

	return nil
}
