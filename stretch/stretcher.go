package stretch

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-stretch/grain"
	"github.com/cwbudde/algo-stretch/partials"
	"github.com/cwbudde/algo-stretch/phase"
	"github.com/cwbudde/algo-stretch/resample"
	"github.com/cwbudde/algo-stretch/transform"
)

// Edition names the implementation behind this package, mirroring the
// source library's function-table-selected editions. This module
// implements the freely licensed Basic behaviour only.
const Edition = "Basic"

// Version is this module's release string.
const Version = "0.1.0"

// LogFunc receives formatted diagnostic messages: soft anomalies when
// instrumentation is enabled, and fatal contract-violation messages
// (always, regardless of the instrumentation flag) immediately before
// the offending call panics.
type LogFunc func(format string, args ...any)

// state names the position in the specify->analyse->synthesise cycle a
// Stretcher expects its next call to be.
type state int

const (
	expectSpecify state = iota
	expectAnalyse
	expectSynthesise
)

// Stretcher is one granular phase-vocoder instance. It is single-threaded
// and cooperative: exactly one goroutine may call its methods, and calls
// must follow specifyGrain -> analyseGrain -> synthesiseGrain in a strict
// cycle. Calling out of order is a programmer error and panics after
// logging.
type Stretcher struct {
	Timing

	channelCount     int
	instrumentation  bool
	log              LogFunc
	state            state

	transforms map[int]*transform.Transform // keyed by log2TransformLength, currently always one entry

	input  *Input
	output *Output
	ring   *grain.Ring

	resampleScratch []complex128
	sumRe, sumIm    []float64
}

// New constructs a Stretcher for the given sample rates and channel
// count. log2SynthesisHopAdjust must be -1, 0, or +1; any other value is
// a contract violation.
func New(rates resample.SampleRates, channelCount, log2SynthesisHopAdjust int, log LogFunc) (*Stretcher, error) {
	timing, err := NewTiming(rates, log2SynthesisHopAdjust)
	if err != nil {
		return nil, fmt.Errorf("stretch: New: %w", err)
	}

	xf, err := transform.New(timing.Log2TransformLength())
	if err != nil {
		return nil, fmt.Errorf("stretch: New: %w", err)
	}

	in, err := NewInput(timing.Log2TransformLength(), channelCount)
	if err != nil {
		return nil, fmt.Errorf("stretch: New: %w", err)
	}

	hop := 1 << timing.Log2SynthesisHop

	return &Stretcher{
		Timing:          timing,
		channelCount:    channelCount,
		log:             log,
		state:           expectSpecify,
		transforms:      map[int]*transform.Transform{timing.Log2TransformLength(): xf},
		input:           in,
		output:          NewOutput(xf, in.window, channelCount, hop),
		ring:            grain.NewRing(timing.Log2SynthesisHop, channelCount),
		resampleScratch: make([]complex128, xf.Bins()),
		sumRe:           make([]float64, xf.Bins()),
		sumIm:           make([]float64, xf.Bins()),
	}, nil
}

// EnableInstrumentation turns soft-anomaly logging on or off. Fatal
// diagnostics (contract violations, NaN input) are always logged
// regardless of this setting.
func (s *Stretcher) EnableInstrumentation(enable bool) { s.instrumentation = enable }

func (s *Stretcher) logSoft(format string, args ...any) {
	if s.instrumentation && s.log != nil {
		s.log(format, args...)
	}
}

func (s *Stretcher) fatal(err error) {
	if s.log != nil {
		s.log("Bungee: fatal: %v", err)
	}

	panic(err)
}

func (s *Stretcher) expect(want state, name string) {
	if s.state != want {
		s.fatal(fmt.Errorf("%w: %s called in state %d, want %d", ErrOutOfSequence, name, s.state, want))
	}
}

// SpecifyGrain rotates the grain ring, configures the new front grain
// from request, and returns the input chunk the caller must supply to
// AnalyseGrain.
func (s *Stretcher) SpecifyGrain(request grain.Request, bufferStartPosition float64) grain.Chunk {
	s.expect(expectSpecify, "SpecifyGrain")
	s.state = expectAnalyse

	s.ring.Rotate()

	current := s.ring.Get(0)
	previous := s.ring.Get(1)

	chunk, err := current.Specify(request, previous, s.Timing.SampleRates, s.Timing.Log2SynthesisHop, bufferStartPosition, s.logSoft)
	if err != nil {
		s.fatal(fmt.Errorf("stretch: SpecifyGrain: %w", err))
	}

	return chunk
}

// AnalyseGrain supplies the PCM for the chunk SpecifyGrain requested:
// data is frame-major (channelCount channels), covering exactly the
// chunk's frame range. muteFrameCountHead/Tail mark leading/trailing
// frames the caller could not supply (e.g. before the start of a track);
// those frames are treated as silence.
func (s *Stretcher) AnalyseGrain(data []float64, muteFrameCountHead, muteFrameCountTail int) {
	s.expect(expectAnalyse, "AnalyseGrain")
	s.state = expectSynthesise

	current := s.ring.Get(0)
	previous := s.ring.Get(1)

	current.MuteFrameCountHead = muteFrameCountHead
	current.MuteFrameCountTail = muteFrameCountTail
	current.ValidBinCount = 0

	if !current.Valid() {
		return
	}

	frameCount := current.Chunk.FrameCount()
	if len(data) != frameCount*s.channelCount {
		s.fatal(fmt.Errorf("stretch: AnalyseGrain: data length %d, want %d", len(data), frameCount*s.channelCount))
	}

	muteFrameCountHead = clampInt(muteFrameCountHead, 0, frameCount)
	muteFrameCountTail = clampInt(muteFrameCountTail, 0, frameCount)

	if hasUnmutedNaN(data, s.channelCount, muteFrameCountHead, muteFrameCountTail) {
		s.fatal(ErrNaNInput)
	}

	resampled, muteFrameCountHead, muteFrameCountTail, err := current.ResampleInput(data, s.Timing.Log2TransformLength(), muteFrameCountHead, muteFrameCountTail, func(msg string) { s.logSoft("%s", msg) })
	if err != nil {
		s.fatal(fmt.Errorf("stretch: AnalyseGrain: %w", err))
	}

	if err := s.input.ApplyAnalysisWindow(resampled, muteFrameCountHead, muteFrameCountTail); err != nil {
		s.fatal(fmt.Errorf("stretch: AnalyseGrain: %w", err))
	}

	xf := s.transforms[current.Log2TransformLength]

	for c := 0; c < s.channelCount; c++ {
		if err := xf.Forward(current.Transformed[c], s.input.Channel(c)); err != nil {
			s.fatal(fmt.Errorf("stretch: AnalyseGrain: %w", err))
		}
	}

	n := xf.Bins() - 1
	validBinCount := minInt(int(math.Ceil(float64(n)/current.ResampleOperations.Output.Ratio)), n) + 1

	current.ValidBinCount = validBinCount

	for c := 0; c < s.channelCount; c++ {
		for k := validBinCount; k < xf.Bins(); k++ {
			current.Transformed[c][k] = 0
		}
	}

	for k := 0; k < validBinCount; k++ {
		var sum complex128
		for c := 0; c < s.channelCount; c++ {
			sum += current.Transformed[c][k]
		}

		s.sumRe[k] = real(sum)
		s.sumIm[k] = imag(sum)
		current.Phase[k] = phase.FromRadians(math.Atan2(s.sumIm[k], s.sumRe[k]))
	}

	vecmath.Power(current.Energy[:validBinCount], s.sumRe[:validBinCount], s.sumIm[:validBinCount])

	current.Partials = partials.Enumerate(current.Partials, validBinCount, current.Energy)

	if current.Continuous {
		current.Partials = partials.SuppressTransientPartials(current.Partials, current.Energy, previous.Energy)
	}
}

func hasUnmutedNaN(data []float64, channels, muteHead, muteTail int) bool {
	frameCount := len(data) / channels
	for f := muteHead; f < frameCount-muteTail; f++ {
		for c := 0; c < channels; c++ {
			if math.IsNaN(data[f*channels+c]) {
				return true
			}
		}
	}

	return false
}

func minInt(a, b int) int {
	if a < b {
		return a
	}

	return b
}

// SynthesiseGrain completes processing of the grain specified and
// analysed by the two preceding calls, resampling as much output audio
// as the current ratio ramp produces into external (frame-major,
// channelCount channels; the caller must size it for the worst case via
// output-side sample-rate/pitch bounds). It returns the number of frames
// actually written and the two requests that bracket them, mirroring the
// source library's OutputChunk.
func (s *Stretcher) SynthesiseGrain(external []float64) (frameCount int, beginRequest, endRequest *grain.Request) {
	s.expect(expectSynthesise, "SynthesiseGrain")
	s.state = expectSpecify

	current := s.ring.Get(0)
	previous := s.ring.Get(1)

	if current.Valid() {
		s.rotatePhase(current, previous)

		t := s.resampleScratch[:current.ValidBinCount]
		for k := range t {
			t[k] = cmplx.Rect(1, current.Rotation[k].Radians())
		}

		for c := 0; c < s.channelCount; c++ {
			row := current.Transformed[c][:current.ValidBinCount]
			for k, coeff := range t {
				v := row[k]
				if current.Reverse() {
					v = cmplx.Conj(v)
				}

				row[k] = v * coeff
			}
		}

		if err := s.output.Add(current); err != nil {
			s.fatal(fmt.Errorf("stretch: SynthesiseGrain: %w", err))
		}
	} else {
		if err := s.output.Add(nil); err != nil {
			s.fatal(fmt.Errorf("stretch: SynthesiseGrain: %w", err))
		}
	}

	external2, err := resample.NewExternal(external, s.channelCount, 0, 0)
	if err != nil {
		s.fatal(fmt.Errorf("stretch: SynthesiseGrain: %w", err))
	}

	ratioBegin := previous.ResampleOperations.Output.Ratio
	ratioEnd := current.ResampleOperations.Output.Ratio

	if err := s.output.EmitHop(external2, ratioBegin, ratioEnd, func(msg string) { s.logSoft("%s", msg) }); err != nil {
		s.fatal(fmt.Errorf("stretch: SynthesiseGrain: %w", err))
	}

	return external2.ActiveFrameCount, &s.ring.Get(2).Request, &previous.Request
}

// rotatePhase computes current.Rotation and current.Delta for every
// valid bin: bins inside a partial's band inherit the rotation computed
// at that partial's peak (horizontal phase locking); bins outside every
// band stay at zero rotation (the transform's native phase passes
// through unmodified).
func (s *Stretcher) rotatePhase(current, previous *grain.Grain) {
	for k := range current.Rotation {
		current.Rotation[k] = 0
		current.Delta[k] = 0
	}

	if current.Passthrough != 0 {
		return
	}

	transformLength := 1 << current.Log2TransformLength
	synthesisHop := float64(int(1) << s.Timing.Log2SynthesisHop)
	analysisHop := float64(current.Analysis.Hop)

	for _, p := range current.Partials {
		omega := 2 * math.Pi * float64(p.Bin) / float64(transformLength)

		rotation, delta := phase.Advance(previous.Phase[p.Bin], current.Phase[p.Bin], omega, analysisHop, synthesisHop)

		for k := p.Left; k < p.Right && k < len(current.Rotation); k++ {
			current.Rotation[k] = rotation
			current.Delta[k] = delta
		}
	}
}

// IsFlushed reports whether every grain in the pipeline holds an invalid
// request, meaning no further audio is pending.
func (s *Stretcher) IsFlushed() bool { return s.ring.Flushed() }
