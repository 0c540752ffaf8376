package resample

import (
	"fmt"
	"math"
)

// SampleRates holds the input and output sample rates, in Hz, of a
// stretcher instance.
type SampleRates struct {
	Input  int
	Output int
}

// Mode selects an interpolation kernel for a resample operation.
type Mode int

const (
	// Nearest rounds to the closest internal sample.
	Nearest Mode = iota
	// Bilinear linearly interpolates between the two closest internal
	// samples.
	Bilinear
)

// Direction selects whether a resample operation reads from the external
// buffer and accumulates into the internal buffer (Additive, used on the
// analysis/input side) or reads from the internal buffer into the
// external buffer (Multiplicative, used on the synthesis/output side).
type Direction int

const (
	Additive Direction = iota
	Multiplicative
)

// ResampleMode controls which side of a grain's pipeline (input analysis
// or output synthesis) absorbs the rate/pitch ratio.
type ResampleMode int

const (
	ForceIn ResampleMode = iota
	ForceOut
	AutoIn
	AutoOut
	AutoInOut
)

// Padding is the number of silent guard samples kept on each side of an
// Internal buffer so a bilinear tap can always read one sample past the
// last active frame without a bounds check.
const Padding = 8

// Internal is the phase vocoder's own working buffer: a fixed-rate PCM
// block bracketed by Padding silent frames on each side, addressed in
// row-major (frame, channel) order.
type Internal struct {
	data         []float64
	channelCount int
	FrameCount   int
	Offset       float64
}

// NewInternal allocates an Internal buffer able to hold up to
// maxFrameCount active frames of channelCount channels.
func NewInternal(maxFrameCount, channelCount int) *Internal {
	return &Internal{
		data:         make([]float64, (Padding+maxFrameCount+Padding)*channelCount),
		channelCount: channelCount,
	}
}

// Channels returns the channel count.
func (in *Internal) Channels() int { return in.channelCount }

// Unpadded returns the active region (row-major, FrameCount rows) of the
// buffer, skipping the guard padding on both sides.
func (in *Internal) Unpadded() []float64 {
	start := Padding * in.channelCount
	return in.data[start : start+in.FrameCount*in.channelCount]
}

// PadHead returns the writable guard region before frame 0, Padding
// frames long. Callers that stitch consecutive internal buffers together
// (so a bilinear tap at the very first frame reads real history instead
// of silence) write into this region directly.
func (in *Internal) PadHead() []float64 {
	return in.data[:Padding*in.channelCount]
}

// PadTail returns the writable guard region after the last active frame,
// Padding frames long, for the same purpose as PadHead but at the end of
// the buffer.
func (in *Internal) PadTail() []float64 {
	n := len(in.data)
	return in.data[n-Padding*in.channelCount : n]
}

func (in *Internal) rowAt(row int) []float64 {
	base := row * in.channelCount
	return in.data[base : base+in.channelCount]
}

func (in *Internal) zero() {
	for i := range in.data {
		in.data[i] = 0
	}
}

// External is a view over a caller-owned PCM block used as the other end
// of a resample operation, together with the sub-range of rows that carry
// real (unmuted) audio.
type External struct {
	Data            []float64 // row-major, ActiveFrameCount*Channels initially, may shrink
	Channels        int
	UnmutedBegin    int
	UnmutedEnd      int
	ActiveFrameCount int
}

// NewExternal wraps ref (row-major, len(ref)/channels rows) with a mute
// region of muteHead rows at the start and muteTail rows at the end.
func NewExternal(ref []float64, channels, muteHead, muteTail int) (*External, error) {
	if channels <= 0 || len(ref)%channels != 0 {
		return nil, fmt.Errorf("resample: NewExternal: %d samples not divisible by %d channels", len(ref), channels)
	}

	rows := len(ref) / channels

	ext := &External{
		Data:             ref,
		Channels:         channels,
		UnmutedBegin:     clampInt(muteHead, 0, rows),
		ActiveFrameCount: rows,
	}
	ext.UnmutedEnd = clampInt(rows-muteTail, ext.UnmutedBegin, rows)

	return ext, nil
}

func (e *External) rowAt(row int) []float64 {
	base := row * e.Channels
	return e.Data[base : base+e.Channels]
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

// step performs one interpolation tap: reading from internal at fractional
// position x and writing/accumulating channelCount samples, or the
// reverse, depending on direction.
func step(kernel Mode, direction Direction, x float64, internal *Internal, external []float64, gain float64) {
	switch kernel {
	case Nearest:
		integer := int(x + 0.5)
		row := internal.rowAt(integer)

		for c := range external {
			tap(direction, &row[c], &external[c], 1, gain, true)
		}
	default: // Bilinear
		integer := int(x)
		frac := x - float64(integer)

		lo := internal.rowAt(integer)
		hi := internal.rowAt(integer + 1)

		for c := range external {
			tap(direction, &hi[c], &external[c], frac, gain, true)
			tap(direction, &lo[c], &external[c], 1-frac, gain, false)
		}
	}
}

func tap(direction Direction, internal, external *float64, coefficient, gain float64, first bool) {
	switch direction {
	case Additive:
		*internal += *external * coefficient * gain
	default: // Multiplicative
		if first {
			*external = *internal * coefficient
		} else {
			*external += *internal * coefficient
		}
	}
}

// Run drives one interpolation pass over external.ActiveFrameCount rows,
// starting internal read/write position at internal.Offset+Padding and
// advancing by a ratio that ramps linearly from ratioBegin to ratioEnd.
// For Additive direction the internal buffer is zeroed first, matching the
// contract that each analysis pass starts from silence. For rows outside
// [UnmutedBegin, UnmutedEnd), Additive contributes nothing and
// Multiplicative writes zero.
func Run(kernel Mode, direction Direction, internal *Internal, external *External, ratioBegin, ratioEnd float64) {
	if direction == Additive {
		internal.zero()
	}

	ratioGradient := 0.0
	if external.ActiveFrameCount > 0 {
		ratioGradient = (ratioEnd - ratioBegin) / float64(external.ActiveFrameCount)
	}

	ratio := ratioBegin + 0.5*ratioGradient
	x := float64(Padding) + internal.Offset

	for row := 0; row < external.ActiveFrameCount; row++ {
		extRow := external.rowAt(row)

		if row >= external.UnmutedBegin && row < external.UnmutedEnd {
			step(kernel, direction, x, internal, extRow, ratio)
		} else if direction == Multiplicative {
			for c := range extRow {
				extRow[c] = 0
			}
		}

		x += ratio
		ratio += ratioGradient
	}

	internal.Offset = x - float64(Padding)
}

// LandedBadlyTolerance is the maximum acceptable drift of the internal
// buffer's leftover offset after a resample pass, expressed as a multiple
// of ratioEnd. It applies when alignEnd is false; with alignEnd the
// tolerance is a fixed 1e-2.
const LandedBadlyTolerance = 1.1

// Resample runs Run with the ratio ramp and active-frame-count bookkeeping
// described in §4.11: the ideal external frame count is derived from the
// internal frame count and offset, alignEnd optionally recomputes ratioEnd
// so the pass lands exactly on the segment boundary, and a residual
// internal.Offset beyond tolerance is a soft anomaly logged (if logf is
// non-nil) and reset to zero rather than propagated.
func Resample(kernel Mode, direction Direction, internal *Internal, external *External, ratioBegin, ratioEnd float64, alignEnd bool, logf func(string)) error {
	idealFrameCount := int(math.Round(2 * (float64(internal.FrameCount) - internal.Offset) / (ratioBegin + ratioEnd)))

	if idealFrameCount > external.ActiveFrameCount {
		return ErrWouldTruncate
	}

	external.ActiveFrameCount = idealFrameCount

	if external.ActiveFrameCount <= 0 {
		return nil
	}

	if alignEnd {
		meanRatio := (float64(internal.FrameCount) - internal.Offset) / float64(external.ActiveFrameCount)
		ratioEnd = 2*meanRatio - ratioBegin

		if ratioEnd <= 0 {
			return fmt.Errorf("resample: alignEnd produced non-positive ratioEnd %v", ratioEnd)
		}
	}

	external.UnmutedBegin = clampInt(external.UnmutedBegin, 0, external.ActiveFrameCount)
	external.UnmutedEnd = clampInt(external.UnmutedEnd, external.UnmutedBegin, external.ActiveFrameCount)

	Run(kernel, direction, internal, external, ratioBegin, ratioEnd)

	internal.Offset -= float64(internal.FrameCount)

	tolerance := ratioEnd * LandedBadlyTolerance
	if alignEnd {
		tolerance = 1e-2
	}

	if math.Abs(internal.Offset) > tolerance {
		if logf != nil {
			logf(fmt.Sprintf("resample: landed badly, offset=%v tolerance=%v", internal.Offset, tolerance))
		}

		internal.Offset = 0
	}

	return nil
}

// Operation describes one side (input or output) of a grain's resample
// pipeline: whether it is active at all, and the ratio it should apply
// when it is.
type Operation struct {
	Active bool
	Ratio  float64
}

// Operations holds both sides of a grain's resample pipeline, as decided
// by Setup.
type Operations struct {
	Input  Operation
	Output Operation
}

// Setup decides which of Input and Output should actively resample for
// the given sample rates, pitch shift and mode, and returns the residual
// ratio the output segment scaler must still apply to compensate for
// whichever side was left inactive.
//
// resampleRatio is pitch scaled by the ratio of input to output sample
// rates. ForceOut/ForceIn pin the decision to one side regardless of the
// ratio; a unit ratio disables both for the Auto* modes; AutoIn and
// AutoOut otherwise use the named side, and AutoInOut picks the side from
// the sign of (resampleRatio - 1). Any other mode value is a contract
// violation and returns ErrUnknownMode.
func (ops *Operations) Setup(rates SampleRates, pitch float64, mode ResampleMode) (float64, error) {
	resampleRatio := pitch * float64(rates.Input) / float64(rates.Output)

	ops.Input = Operation{Active: true, Ratio: 1 / resampleRatio}
	ops.Output = Operation{Active: true, Ratio: resampleRatio}

	switch {
	case mode == ForceOut:
		ops.Input.Active = false
	case mode == ForceIn:
		ops.Output.Active = false
	case resampleRatio == 1:
		ops.Input.Active = false
		ops.Output.Active = false
	case mode == AutoIn:
		ops.Output.Active = false
	case mode == AutoOut:
		ops.Input.Active = false
	case mode == AutoInOut && resampleRatio > 1:
		ops.Output.Active = false
	case mode == AutoInOut && resampleRatio < 1:
		ops.Input.Active = false
	default:
		ops.Input.Active = false
		return 0, ErrUnknownMode
	}

	if !ops.Input.Active {
		ops.Input.Ratio = 1
	}

	if ops.Output.Active {
		return (float64(rates.Input) / float64(rates.Output)) / ops.Output.Ratio, nil
	}

	ops.Output.Ratio = 1
	return float64(rates.Input) / float64(rates.Output), nil
}
