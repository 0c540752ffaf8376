package stretch

import "errors"

// ErrOutOfSequence indicates the caller invoked SpecifyGrain, AnalyseGrain
// or SynthesiseGrain out of the required specify->analyse->synthesise
// cycle. This is a programmer error, not a data error: the caller's log
// function (if any) receives a fatal-tagged message before the call
// panics.
var ErrOutOfSequence = errors.New("stretch: called out of specify/analyse/synthesise sequence")

// ErrNaNInput indicates the input audio handed to AnalyseGrain contained
// NaN in a region that was not marked muted. The vocoder cannot produce
// meaningful output from NaN and treats this as fatal.
var ErrNaNInput = errors.New("stretch: NaN detected in input audio")

// ErrUnsupportedHopAdjust indicates a log2SynthesisHopAdjust value outside
// {-1, 0, +1}.
var ErrUnsupportedHopAdjust = errors.New("stretch: log2SynthesisHopAdjust must be -1, 0, or 1")
