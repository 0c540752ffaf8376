package stretch

import (
	"fmt"

	"github.com/cwbudde/algo-stretch/grain"
	"github.com/cwbudde/algo-stretch/resample"
	"github.com/cwbudde/algo-stretch/transform"
	"github.com/cwbudde/algo-stretch/window"
)

// Output owns the overlap-add accumulator that turns a sequence of
// windowed, inverse-transformed grains into continuous audio at the
// vocoder's internal rate, and the resampler that converts each
// completed synthesis hop to the caller's output rate.
//
// Because the synthesis hop is constant (only the analysis hop varies
// with speed), a grain's full transformLength-sample contribution is
// always added at the front of the accumulator; by the time the front
// hop is shifted out to be emitted it has already received every
// contribution any grain will ever make to it, so no grain lookahead is
// needed for the overlap-add itself. The last resample.Padding frames of
// the previously emitted hop are carried over only so the output
// resampler's bilinear taps have real history to read at a segment's head
// rather than silence.
type Output struct {
	xf           *transform.Transform
	win          window.Pair
	channelCount int
	hop          int

	accum      []float64 // frame-major, transformLength*channelCount
	ifftTime   []float64 // one channel's transformLength real samples
	tailCarry  []float64 // Padding frames (frame-major) carried from the previous emitted hop
	haveCarry  bool
	internal   *resample.Internal
}

// NewOutput allocates an Output for transform xf, window pair win,
// channelCount channels and a synthesis hop of hop frames.
func NewOutput(xf *transform.Transform, win window.Pair, channelCount, hop int) *Output {
	return &Output{
		xf:           xf,
		win:          win,
		channelCount: channelCount,
		hop:          hop,
		accum:        make([]float64, xf.Length()*channelCount),
		ifftTime:     make([]float64, xf.Length()),
		tailCarry:    make([]float64, resample.Padding*channelCount),
		internal:     resample.NewInternal(hop, channelCount),
	}
}

// Add inverse-transforms g's spectrum (per channel), applies the
// synthesis window, and accumulates the result into the front of the
// overlap-add buffer. Passing a nil g contributes nothing (used when the
// current grain is invalid but the pipeline must still advance).
func (o *Output) Add(g *grain.Grain) error {
	if g == nil {
		return nil
	}

	for c := 0; c < o.channelCount; c++ {
		if err := o.xf.Inverse(o.ifftTime, g.Transformed[c]); err != nil {
			return fmt.Errorf("stretch: Output.Add: %w", err)
		}

		for f, s := range o.ifftTime {
			o.accum[f*o.channelCount+c] += s * o.win.Synthesis[f]
		}
	}

	return nil
}

// EmitHop resamples the completed front hop of the overlap-add buffer
// into external (frame-major, channelCount channels), ramping the
// resample ratio linearly from ratioBegin to ratioEnd, then shifts the
// accumulator left by one hop and zero-fills the new tail. The number of
// external frames actually produced is external.ActiveFrameCount after
// the call.
func (o *Output) EmitHop(external *resample.External, ratioBegin, ratioEnd float64, logf func(string)) error {
	hopSamples := o.hop * o.channelCount

	copy(o.internal.Unpadded(), o.accum[:hopSamples])

	if o.haveCarry {
		copy(o.internal.PadHead(), o.tailCarry)
	}

	copy(o.internal.PadTail(), o.accum[hopSamples:hopSamples+resample.Padding*o.channelCount])

	o.internal.FrameCount = o.hop
	o.internal.Offset = 0

	if err := resample.Resample(resample.Bilinear, resample.Multiplicative, o.internal, external, ratioBegin, ratioEnd, false, logf); err != nil {
		return fmt.Errorf("stretch: Output.EmitHop: %w", err)
	}

	copy(o.tailCarry, o.accum[hopSamples-len(o.tailCarry):hopSamples])
	o.haveCarry = true

	copy(o.accum, o.accum[hopSamples:])
	for i := len(o.accum) - hopSamples; i < len(o.accum); i++ {
		o.accum[i] = 0
	}

	return nil
}
