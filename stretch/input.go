package stretch

import (
	"fmt"

	"github.com/cwbudde/algo-stretch/window"
)

// Input owns the analysis-length windowed-input scratch used to prepare
// one grain's audio for the forward transform: a channel-interleaved
// working buffer, the precomputed analysis/synthesis window pair, and a
// per-channel scratch slice used to deinterleave one channel's samples
// into the contiguous layout Transform.Forward requires.
type Input struct {
	window       window.Pair
	channelCount int

	windowedInput  []float64 // frame-major, len = transformLength*channelCount
	channelScratch []float64 // one channel's transformLength samples
}

// NewInput allocates an Input for a transform of length
// 2^log2TransformLength and channelCount channels.
func NewInput(log2TransformLength, channelCount int) (*Input, error) {
	transformLength := 1 << log2TransformLength

	win, err := window.New(transformLength)
	if err != nil {
		return nil, fmt.Errorf("stretch: NewInput: %w", err)
	}

	return &Input{
		window:         win,
		channelCount:   channelCount,
		windowedInput:  make([]float64, transformLength*channelCount),
		channelScratch: make([]float64, transformLength),
	}, nil
}

// ApplyAnalysisWindow copies ref (frame-major, transformLength frames of
// channelCount channels) into the scratch buffer, multiplies it in place
// by the analysis window, and forces the [0,muteHead) and
// [transformLength-muteTail,transformLength) frame ranges to zero.
func (in *Input) ApplyAnalysisWindow(ref []float64, muteHead, muteTail int) error {
	if len(ref) != len(in.windowedInput) {
		return fmt.Errorf("stretch: ApplyAnalysisWindow: ref length %d, want %d", len(ref), len(in.windowedInput))
	}

	copy(in.windowedInput, ref)

	frameCount := len(in.window.Analysis)
	muteHead = clampInt(muteHead, 0, frameCount)
	muteTail = clampInt(muteTail, 0, frameCount)

	for f := 0; f < frameCount; f++ {
		row := in.windowedInput[f*in.channelCount : f*in.channelCount+in.channelCount]

		if f < muteHead || f >= frameCount-muteTail {
			for c := range row {
				row[c] = 0
			}

			continue
		}

		w := in.window.Analysis[f]
		for c := range row {
			row[c] *= w
		}
	}

	return nil
}

// Channel deinterleaves channel c of the windowed input into the
// Input's reusable scratch buffer and returns it, ready for
// Transform.Forward. The returned slice is overwritten by the next call.
func (in *Input) Channel(c int) []float64 {
	frameCount := len(in.window.Analysis)

	for f := 0; f < frameCount; f++ {
		in.channelScratch[f] = in.windowedInput[f*in.channelCount+c]
	}

	return in.channelScratch
}
