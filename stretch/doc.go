// Package stretch implements the granular phase vocoder's outer
// orchestration: timing (hop-size derivation, preroll, constant-speed
// advance), per-channel analysis windowing and FFT, horizontal
// phase-locked resynthesis, overlap-add, and output-side resampling —
// tied together by Stretcher's specifyGrain/analyseGrain/synthesiseGrain
// state machine.
package stretch
