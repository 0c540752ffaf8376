// Package resample implements the phase vocoder's input/output resampler:
// a linear-interpolating, ramped-ratio conversion between an external PCM
// buffer and the vocoder's internal, padded working buffer.
//
// Two directions are supported: additive (external -> internal, used on
// the analysis side to bring input audio to the internal rate) and
// multiplicative (internal -> external, used on the synthesis side to
// bring the resynthesised segment to the output rate). Either direction
// may be driven by a nearest or bilinear interpolation kernel, and the
// resample ratio may ramp linearly across the segment rather than staying
// fixed, so that a request's speed or pitch can change smoothly from one
// grain to the next.
package resample
