package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// Interleave combines equal-length, single-channel slices into one
// frame-major buffer of len(channels[0])*len(channels) samples.
func Interleave(channels ...[]float64) []float64 {
	if len(channels) == 0 {
		return nil
	}

	frameCount := len(channels[0])
	out := make([]float64, frameCount*len(channels))

	for f := 0; f < frameCount; f++ {
		for c, ch := range channels {
			out[f*len(channels)+c] = ch[f]
		}
	}

	return out
}

// Deinterleave splits a frame-major buffer into channelCount single-channel
// slices.
func Deinterleave(data []float64, channelCount int) [][]float64 {
	frameCount := len(data) / channelCount

	out := make([][]float64, channelCount)
	for c := range out {
		out[c] = make([]float64, frameCount)
	}

	for f := 0; f < frameCount; f++ {
		for c := 0; c < channelCount; c++ {
			out[c][f] = data[f*channelCount+c]
		}
	}

	return out
}
