// Package grain implements one analysis/synthesis unit of the granular
// phase vocoder: the state a single short-time Fourier grain carries from
// the moment its input chunk is specified through analysis and on to
// resynthesis, plus the fixed-size ring that recycles four grains without
// allocating.
package grain

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-stretch/partials"
	"github.com/cwbudde/algo-stretch/phase"
	"github.com/cwbudde/algo-stretch/resample"
)

// Request describes one grain of audio to be produced: its centre position
// in the input timeline, the playback speed and pitch to apply, and
// whether the stretcher should forget its analysis history before this
// grain.
type Request struct {
	Position     float64
	Speed        float64
	Pitch        float64
	Reset        bool
	ResampleMode resample.ResampleMode
}

// Valid reports whether the request describes a real grain (Position is
// not NaN). An invalid request produces no audio; it is how callers
// flush the pipeline.
func (r Request) Valid() bool { return !math.IsNaN(r.Position) }

// Chunk is the half-open [Begin, End) range of input frame indices a
// grain needs before it can be analysed.
type Chunk struct {
	Begin int
	End   int
}

// FrameCount returns End-Begin.
func (c Chunk) FrameCount() int { return c.End - c.Begin }

// Analysis holds the per-grain timing state derived by Specify: the
// rounded and ideal analysis hop, the residual fractional error the ideal
// hop leaves for the next grain to absorb, and the resulting speed.
type Analysis struct {
	PositionError float64
	HopIdeal      float64
	Speed         float64
	Hop           int
}

// Grain is one slot of a GrainRing: the request that produced it, its
// analysis state, its spectrum and phase-propagation buffers, and the
// input-side resampling state used to bring caller PCM to the vocoder's
// internal rate.
type Grain struct {
	Log2TransformLength int
	Request             Request

	RequestHop  float64
	Continuous  bool
	Passthrough int

	ValidBinCount      int
	MuteFrameCountHead int
	MuteFrameCountTail int

	ResampleOperations resample.Operations

	Chunk    Chunk
	Analysis Analysis

	// Transformed holds one FFT spectrum per channel, each Bins() long.
	Transformed [][]complex128
	Phase       []phase.Type
	Energy      []float64
	Rotation    []phase.Type
	Delta       []float64
	Partials    []partials.Partial

	InputResampled *resample.Internal

	channelCount int
}

// New allocates a Grain for a transform of length
// 2^(log2SynthesisHop+3) and channelCount channels. Request.Position and
// Request.Speed start as NaN (an invalid, silent grain); Request.Pitch
// starts at 1.
func New(log2SynthesisHop, channelCount int) *Grain {
	log2TransformLength := log2SynthesisHop + 3
	bins := 1<<(log2TransformLength-1) + 1

	transformed := make([][]complex128, channelCount)
	for c := range transformed {
		transformed[c] = make([]complex128, bins)
	}

	return &Grain{
		Log2TransformLength: log2TransformLength,
		Request: Request{
			Position: math.NaN(),
			Speed:    math.NaN(),
			Pitch:    1,
		},
		Transformed:    transformed,
		Phase:          make([]phase.Type, bins),
		Energy:         make([]float64, bins),
		Rotation:       make([]phase.Type, bins),
		Delta:          make([]float64, bins),
		Partials:       make([]partials.Partial, 0, bins),
		InputResampled: resample.NewInternal(1<<log2TransformLength, channelCount),
		channelCount:   channelCount,
	}
}

// Reverse reports whether this grain plays its input chunk backwards
// (negative analysis hop).
func (g *Grain) Reverse() bool { return g.Analysis.Hop < 0 }

// Valid reports whether this grain's request describes real audio.
func (g *Grain) Valid() bool { return g.Request.Valid() }

// Specify configures the grain from a new request and the previous
// grain's state, following the same continuity rules the vocoder uses
// everywhere: an explicit reset or a NaN position on either side restarts
// the analysis-hop bookkeeping from request.Speed rather than from the
// position delta. A position delta that disagrees with request.Speed by
// more than one frame is only reported through logf; the delta is still
// used.
//
// It returns the input chunk the caller must supply to Analyse, and
// returns an error only for a contract violation (non-positive pitch,
// or an unrecognised resample mode from ResampleOperations.Setup) — both
// of which the caller should treat as fatal per the vocoder's
// programmer-error convention.
func (g *Grain) Specify(req Request, previous *Grain, rates resample.SampleRates, log2SynthesisHop int, bufferStartPosition float64, logf func(string, ...any)) (Chunk, error) {
	g.Request = req

	if req.Pitch <= 0 {
		return Chunk{}, fmt.Errorf("grain: Specify: pitch must be positive, got %v", req.Pitch)
	}

	residual, err := g.ResampleOperations.Setup(rates, req.Pitch, req.ResampleMode)
	if err != nil {
		return Chunk{}, fmt.Errorf("grain: Specify: %w", err)
	}

	unitHop := float64(int(1)<<log2SynthesisHop) * residual

	g.RequestHop = req.Position - previous.Request.Position

	if !req.Reset && !math.IsNaN(req.Speed) && !math.IsNaN(g.RequestHop) && math.Abs(req.Speed*unitHop-g.RequestHop) > 1 && logf != nil {
		logf("specifyGrain: speed=%v implies hop of %v but position advanced by %v since previous grain", req.Speed, req.Speed*unitHop, g.RequestHop)
	}

	if math.IsNaN(g.RequestHop) || req.Reset {
		g.RequestHop = req.Speed * unitHop
	}

	g.Analysis.HopIdeal = g.RequestHop * g.ResampleOperations.Input.Ratio

	g.Continuous = !req.Reset && !math.IsNaN(previous.Request.Position)
	if g.Continuous {
		g.Analysis.PositionError = previous.Analysis.PositionError - g.Analysis.HopIdeal
		g.Analysis.Hop = int(math.Round(-g.Analysis.PositionError))
		g.Analysis.PositionError += float64(g.Analysis.Hop)
	} else {
		g.Analysis.Hop = int(math.Round(g.Analysis.HopIdeal))
		g.Analysis.PositionError = math.Round(req.Position) - req.Position
	}

	g.Analysis.Speed = g.Analysis.HopIdeal / float64(int(1)<<log2SynthesisHop)

	g.Passthrough = 0
	if math.Abs(g.Analysis.Speed) == 1 {
		g.Passthrough = int(g.Analysis.Speed)
	}

	if g.Continuous && g.Passthrough != previous.Passthrough {
		g.Passthrough = 0
	}

	g.Log2TransformLength = log2SynthesisHop + 3
	g.InputResampled.FrameCount = 1 << g.Log2TransformLength

	halfInputFrameCount := g.InputResampled.FrameCount / 2
	if g.ResampleOperations.Input.Ratio != 1 {
		halfInputFrameCount = int(math.Round(float64(halfInputFrameCount)/g.ResampleOperations.Input.Ratio)) + 1
	}

	g.Chunk = Chunk{Begin: -halfInputFrameCount, End: halfInputFrameCount}

	if math.IsNaN(req.Position) {
		g.Chunk = Chunk{}
		return g.Chunk, nil
	}

	offset := int(math.Round(req.Position - bufferStartPosition))
	g.Chunk.Begin += offset
	g.Chunk.End += offset

	return g.Chunk, nil
}

// ResampleInput brings input (row-major frames x channels, with muteHead
// and muteTail frames to be treated as silence) to the vocoder's internal
// rate when the input resampler is active, returning a view of the
// resampled, unpadded internal buffer and mute counts of zero (the
// resample pass already applied them). When the input resampler is
// inactive, input is returned unchanged along with the mute counts the
// caller passed in.
func (g *Grain) ResampleInput(input []float64, log2WindowLength, muteHead, muteTail int, logf func(string)) ([]float64, int, int, error) {
	if !g.ResampleOperations.Input.Active {
		return input, muteHead, muteTail, nil
	}

	ratio := g.ResampleOperations.Input.Ratio

	offset := float64(g.Chunk.Begin) - g.Request.Position
	offset *= ratio
	offset += float64(int(1) << uint(log2WindowLength-1))
	offset -= g.Analysis.PositionError

	g.InputResampled.Offset = offset

	external, err := resample.NewExternal(input, g.channelCount, muteHead, muteTail)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("grain: ResampleInput: %w", err)
	}

	if err := resample.Resample(resample.Bilinear, resample.Additive, g.InputResampled, external, ratio, ratio, false, logf); err != nil {
		return nil, 0, 0, fmt.Errorf("grain: ResampleInput: %w", err)
	}

	return g.InputResampled.Unpadded(), 0, 0, nil
}

// Bins returns the number of complex spectral bins this grain's transform
// produces: 2^(Log2TransformLength-1)+1.
func (g *Grain) Bins() int { return len(g.Phase) }

// ChannelCount returns the number of audio channels this grain was
// allocated for.
func (g *Grain) ChannelCount() int { return g.channelCount }
