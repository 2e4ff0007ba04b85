package signal

import (
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// PeakHeightRatio is the fraction of the spectrum maximum a local maximum
// must reach to count as a peak.
const PeakHeightRatio = 0.05

// Spectrum is a one-sided magnitude spectrum.
type Spectrum struct {
	Freqs []float64
	Mags  []float64
}

// Peak is a detected spectral peak.
type Peak struct {
	Index int
	Freq  float64
	Amp   float64
}

// ComputeSpectrum applies a Hann window to x and returns its one-sided DFT
// magnitudes normalised by N/2, with bin frequencies in Hz.
func ComputeSpectrum(x []float64, samplingRate float64) Spectrum {
	n := len(x)
	if n == 0 {
		return Spectrum{}
	}
	if n == 1 {
		// Hann is undefined for a single sample; the DFT is the sample itself.
		return Spectrum{Freqs: []float64{0}, Mags: []float64{math.Abs(x[0]) / 0.5}}
	}

	seq := window.Hann(append([]float64(nil), x...))
	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, seq)

	half := float64(n) / 2
	sp := Spectrum{
		Freqs: make([]float64, len(coeffs)),
		Mags:  make([]float64, len(coeffs)),
	}
	for i, c := range coeffs {
		sp.Freqs[i] = float64(i) * samplingRate / float64(n)
		sp.Mags[i] = cmplx.Abs(c) / half
	}
	return sp
}

// Energy is the sum of squared magnitudes.
func (s Spectrum) Energy() float64 {
	var e float64
	for _, m := range s.Mags {
		e += m * m
	}
	return e
}

// Peaks returns local maxima at least PeakHeightRatio of the global maximum,
// strongest first.
func (s Spectrum) Peaks() []Peak {
	if len(s.Mags) == 0 {
		return nil
	}
	var maxMag float64
	for _, m := range s.Mags {
		if m > maxMag {
			maxMag = m
		}
	}
	height := maxMag * PeakHeightRatio

	var peaks []Peak
	for _, idx := range LocalMaxima(s.Mags) {
		if s.Mags[idx] >= height {
			peaks = append(peaks, Peak{Index: idx, Freq: s.Freqs[idx], Amp: s.Mags[idx]})
		}
	}
	sort.SliceStable(peaks, func(i, j int) bool { return peaks[i].Amp > peaks[j].Amp })
	return peaks
}

// LocalMaxima finds interior samples greater than both neighbours. A flat
// plateau counts once, at its middle sample. The first and last samples are
// never maxima.
func LocalMaxima(x []float64) []int {
	var out []int
	last := len(x) - 1
	for i := 1; i < last; i++ {
		if x[i-1] >= x[i] {
			continue
		}
		ahead := i + 1
		for ahead < last && x[ahead] == x[i] {
			ahead++
		}
		if x[ahead] < x[i] {
			out = append(out, (i+ahead-1)/2)
			i = ahead - 1
		}
	}
	return out
}

// HarmonicTolerance is how close a frequency ratio must be to an integer.
const HarmonicTolerance = 0.05

// HarmonicCount counts the peaks sitting at integer multiples of the dominant
// peak. The dominant itself is included once at least one harmonic is found,
// so a lone tone reports zero.
func HarmonicCount(peaks []Peak) int {
	if len(peaks) < 2 || peaks[0].Freq <= 0 {
		return 0
	}
	fundamental := peaks[0].Freq
	count := 0
	for _, p := range peaks[1:] {
		ratio := p.Freq / fundamental
		nearest := math.Round(ratio)
		if nearest >= 1 && math.Abs(ratio-nearest) <= HarmonicTolerance {
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return count + 1
}
