package stretch

import (
	"math"

	"github.com/cwbudde/algo-stretch/grain"
	"github.com/cwbudde/algo-stretch/resample"
)

// referenceLog2SynthesisHop is the synthesis hop, in bits, that keeps the
// granular step close to 5-6ms at a 44.1kHz output rate — short enough to
// track fast transients, long enough for 8x-oversampled analysis windows
// to stay well clear of the time-domain aliasing that a too-short
// transform would introduce.
const referenceLog2SynthesisHop = 8

// minLog2SynthesisHop and maxLog2SynthesisHop bound the derived hop size
// so that even a -1/+1 log2SynthesisHopAdjust at an extreme supported
// sample rate stays within a sane transform length.
const (
	minLog2SynthesisHop = 4
	maxLog2SynthesisHop = 12
)

// minSupportedInputRatio is the smallest Resample.Operations.Input.Ratio
// the vocoder is specified to handle (pitch shifts up to 8x, combined
// with sample-rate conversion, on the input-resample side); it bounds the
// worst-case input chunk width Timing.MaxInputFrameCount must report.
const minSupportedInputRatio = 1.0 / 8.0

// Timing derives the vocoder's synthesis hop from its sample rates and a
// granularity adjustment, and provides the position bookkeeping
// (preroll, constant-speed advance) built on top of it.
type Timing struct {
	SampleRates      resample.SampleRates
	Log2SynthesisHop int
}

// NewTiming derives log2SynthesisHop for the given sample rates and
// adjustment (-1 halves it, +1 doubles it, 0 leaves the reference value).
func NewTiming(rates resample.SampleRates, log2SynthesisHopAdjust int) (Timing, error) {
	if log2SynthesisHopAdjust < -1 || log2SynthesisHopAdjust > 1 {
		return Timing{}, ErrUnsupportedHopAdjust
	}

	base := referenceLog2SynthesisHop + int(math.Round(math.Log2(float64(rates.Output)/44100)))
	hop := clampInt(base+log2SynthesisHopAdjust, minLog2SynthesisHop, maxLog2SynthesisHop)

	return Timing{SampleRates: rates, Log2SynthesisHop: hop}, nil
}

// Log2TransformLength returns the fixed 8x-oversampled transform length
// this timing implies: Log2SynthesisHop+3.
func (t Timing) Log2TransformLength() int { return t.Log2SynthesisHop + 3 }

// MaxInputFrameCount returns the largest input chunk width
// SpecifyGrain can ever request, across the full range of pitch and
// sample-rate-conversion ratios the vocoder supports.
func (t Timing) MaxInputFrameCount() int {
	transformLength := 1 << t.Log2TransformLength()
	half := transformLength / 2
	worstHalf := int(math.Round(float64(half)/minSupportedInputRatio)) + 1

	return 2 * worstHalf
}

// Preroll moves request.Position earlier by enough input-frame hops
// (measured at the request's speed) that the grain ring is already full
// of history by the time the first grain reaches synthesis, so the first
// audible output is not starved.
func (t Timing) Preroll(request *grain.Request) {
	speed := request.Speed
	if math.IsNaN(speed) {
		speed = 1
	}

	request.Position -= float64(grain.RingSize-1) * speed * float64(int(1)<<t.Log2SynthesisHop)
}

// Next advances request.Position by one synthesis hop's worth of input
// frames at the request's speed, for callers that want constant-speed
// granular playback without computing positions themselves.
func (t Timing) Next(request *grain.Request) {
	unitHop := float64(int(1)<<t.Log2SynthesisHop) * (float64(t.SampleRates.Input) / float64(t.SampleRates.Output))
	request.Position += request.Speed * unitHop
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
