package testutil

import "math"

// RMS returns the root-mean-square level of data.
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}

	var sumSq float64
	for _, v := range data {
		sumSq += v * v
	}

	return math.Sqrt(sumSq / float64(len(data)))
}

// PeakAbs returns the largest absolute sample value in data.
func PeakAbs(data []float64) float64 {
	peak := 0.0
	for _, v := range data {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}

	return peak
}

// Spectrum computes the magnitude spectrum of data at every positive
// frequency bin via a direct (O(n^2)) discrete Fourier transform,
// independent of this module's own transform package so it can serve as
// an outside check on the vocoder's spectral behaviour. Intended for the
// short analysis windows a test can afford, not production-sized buffers.
func Spectrum(data []float64, sampleRate float64) (freqHz, magnitude []float64) {
	n := len(data)
	bins := n/2 + 1

	freqHz = make([]float64, bins)
	magnitude = make([]float64, bins)

	for k := 0; k < bins; k++ {
		var re, im float64
		omega := 2 * math.Pi * float64(k) / float64(n)

		for t, v := range data {
			angle := omega * float64(t)
			re += v * math.Cos(angle)
			im -= v * math.Sin(angle)
		}

		freqHz[k] = float64(k) * sampleRate / float64(n)
		magnitude[k] = math.Hypot(re, im)
	}

	return freqHz, magnitude
}

// SpectralCentroid returns the power-weighted (magnitude squared) mean
// frequency of data. Weighting by power keeps the spectral leakage of a
// tone that does not fall exactly on a bin from pulling the centroid away
// from the tone.
func SpectralCentroid(data []float64, sampleRate float64) float64 {
	freqHz, magnitude := Spectrum(data, sampleRate)

	var weighted, total float64
	for i, m := range magnitude {
		weighted += freqHz[i] * m * m
		total += m * m
	}

	if total == 0 {
		return 0
	}

	return weighted / total
}

// OutOfBandEnergyRatio returns the fraction of data's spectral energy that
// falls outside [loHz, hiHz].
func OutOfBandEnergyRatio(data []float64, sampleRate, loHz, hiHz float64) float64 {
	freqHz, magnitude := Spectrum(data, sampleRate)

	var inBand, outOfBand float64
	for i, m := range magnitude {
		energy := m * m
		if freqHz[i] >= loHz && freqHz[i] <= hiHz {
			inBand += energy
		} else {
			outOfBand += energy
		}
	}

	if inBand+outOfBand == 0 {
		return 0
	}

	return outOfBand / (inBand + outOfBand)
}

// BestAlignment searches integer lags in [centerLag-maxLag, centerLag+maxLag]
// for the shift of got against want that minimises the RMS error over
// their overlap, returning that lag and the resulting error expressed as
// 20*log10(rms(diff)/rms(want)) in decibels. Used to test delay-sensitive
// identity properties without hard-coding an exact latency.
func BestAlignment(got, want []float64, centerLag, maxLag int) (lag int, errDB float64) {
	best := math.Inf(1)
	bestLag := centerLag

	for l := centerLag - maxLag; l <= centerLag+maxLag; l++ {
		var sumSq, sumRefSq float64
		n := 0

		for i, w := range want {
			j := i + l
			if j < 0 || j >= len(got) {
				continue
			}

			d := got[j] - w
			sumSq += d * d
			sumRefSq += w * w
			n++
		}

		if n == 0 || sumRefSq == 0 {
			continue
		}

		errDB := 10 * math.Log10(sumSq/sumRefSq)
		if errDB < best {
			best = errDB
			bestLag = l
		}
	}

	return bestLag, best
}
