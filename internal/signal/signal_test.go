package signal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/structural-health-twin/internal/domain"
)

func sine(n int, fs, freq, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/fs)
	}
	return out
}

func TestMagnitudeSingleAxisIsAbsolute(t *testing.T) {
	mag, err := Magnitude([]float64{-1, 2, -3.5, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3.5, 0}, mag)
}

func TestMagnitudeThreeAxesIsNorm(t *testing.T) {
	mag, err := Magnitude([]float64{3, 0}, []float64{4, 0}, []float64{0, 2})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{5, 2}, mag, 1e-12)
}

func TestMagnitudeRejectsBadAxes(t *testing.T) {
	_, err := Magnitude([]float64{1, 2}, []float64{1}, []float64{1, 2})
	require.Error(t, err)
	assert.True(t, domain.IsInvalidInput(err))

	_, err = Magnitude([]float64{})
	assert.True(t, domain.IsInvalidInput(err))

	_, err = Magnitude()
	assert.True(t, domain.IsInvalidInput(err))
}

func TestMagnitudeRejectsNonFiniteSamples(t *testing.T) {
	_, err := Magnitude([]float64{1, math.NaN()})
	assert.True(t, domain.IsInvalidInput(err))

	_, err = Magnitude([]float64{1, 2}, []float64{math.Inf(1), 0})
	assert.True(t, domain.IsInvalidInput(err))

	// each square overflows even though every sample is finite
	huge := []float64{1e200, -1e200}
	_, err = Magnitude(huge, huge, huge)
	assert.True(t, domain.IsInvalidInput(err))
}

func TestExtractRejectsOverflowingFeatures(t *testing.T) {
	r := domain.RawReading{AX: sine(500, 200, 5, 1e200), SamplingRate: 200}
	_, err := ExtractReading(r)
	require.Error(t, err)
	assert.True(t, domain.IsInvalidInput(err))

	huge := sine(500, 200, 5, 1e200)
	_, err = ExtractReading(domain.RawReading{AX: huge, AY: huge, AZ: huge, SamplingRate: 200})
	assert.True(t, domain.IsInvalidInput(err))

	tilt := &domain.Tilt{IsSeries: true, Series: sine(500, 200, 1, 1e200)}
	_, err = ExtractReading(domain.RawReading{AX: sine(500, 200, 5, 0.1), Tilt: tilt, SamplingRate: 200})
	assert.True(t, domain.IsInvalidInput(err))
}

func TestConditionRequiresPairedAxes(t *testing.T) {
	_, err := Condition(domain.RawReading{AX: []float64{1}, AY: []float64{1}, SamplingRate: 10})
	assert.True(t, domain.IsInvalidInput(err))
}

func TestExtractConstantSignalHasNoPeaks(t *testing.T) {
	x := make([]float64, 256)
	for i := range x {
		x[i] = 3
	}
	fv, err := Extract(x, 100, nil)
	require.NoError(t, err)
	assert.InDelta(t, 3, fv.VibMean, 1e-12)
	assert.InDelta(t, 0, fv.VibVar, 1e-12)
	assert.InDelta(t, 0, fv.VibStd, 1e-12)
	assert.Equal(t, 0.0, fv.PeakFreq)
	assert.Equal(t, 0.0, fv.PeakAmp)
	assert.Equal(t, 0, fv.HarmonicCount)
}

func TestExtractAllZeroThreeAxisReading(t *testing.T) {
	zeros := func() []float64 { return make([]float64, 500) }
	fv, err := ExtractReading(domain.RawReading{AX: zeros(), AY: zeros(), AZ: zeros(), SamplingRate: 200})
	require.NoError(t, err)
	assert.Equal(t, domain.FeatureVector{}, fv)
}

func TestExtractRecoversSinusoidFrequency(t *testing.T) {
	const fs, n = 200.0, 500
	resolution := fs / n

	for _, freq := range []float64{5, 10, 12.3, 31.7} {
		fv, err := Extract(sine(n, fs, freq, 1), fs, nil)
		require.NoError(t, err)
		assert.InDelta(t, freq, fv.PeakFreq, resolution, "freq %v", freq)
		assert.Greater(t, fv.PeakAmp, 0.0)
		assert.Equal(t, 0, fv.HarmonicCount, "pure tone at %v", freq)
	}
}

func TestExtractCountsHarmonics(t *testing.T) {
	const fs, n = 200.0, 500
	x := sine(n, fs, 10, 1)
	second := sine(n, fs, 20, 0.5)
	third := sine(n, fs, 30, 0.3)
	for i := range x {
		x[i] += second[i] + third[i]
	}
	fv, err := Extract(x, fs, nil)
	require.NoError(t, err)
	assert.InDelta(t, 10, fv.PeakFreq, fs/n)
	assert.Equal(t, 3, fv.HarmonicCount)
}

func TestExtractNonHarmonicSecondToneCountsZero(t *testing.T) {
	const fs, n = 200.0, 500
	x := sine(n, fs, 10, 1)
	other := sine(n, fs, 17.2, 0.5)
	for i := range x {
		x[i] += other[i]
	}
	fv, err := Extract(x, fs, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, fv.HarmonicCount)
}

func TestExtractSingleSampleDoesNotPanic(t *testing.T) {
	fv, err := Extract([]float64{0.7}, 200, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.7, fv.VibMax)
	assert.Equal(t, 0.0, fv.PeakFreq)
	assert.Equal(t, 0, fv.HarmonicCount)
}

func TestExtractRejectsBadSamplingRate(t *testing.T) {
	_, err := Extract([]float64{1, 2}, 0, nil)
	assert.True(t, domain.IsInvalidInput(err))
}

func TestExtractSpectralEnergy(t *testing.T) {
	x := sine(500, 200, 10, 1)
	fv, err := Extract(x, 200, nil)
	require.NoError(t, err)

	sp := ComputeSpectrum(x, 200)
	var want float64
	for _, m := range sp.Mags {
		want += m * m
	}
	assert.InDelta(t, want, fv.SpectralEnergy, 1e-12)
	assert.Len(t, sp.Freqs, 251)
	assert.InDelta(t, 100, sp.Freqs[250], 1e-9)
}

func TestTiltFeatures(t *testing.T) {
	x := []float64{1, 2, 3, 4}

	fv, err := Extract(x, 4, nil)
	require.NoError(t, err)
	assert.Zero(t, fv.TiltDev)
	assert.Zero(t, fv.TiltRate)

	fv, err = Extract(x, 4, domain.TiltValue(0.25))
	require.NoError(t, err)
	assert.Zero(t, fv.TiltDev)
	assert.Equal(t, 0.25, fv.TiltRate)

	// four samples at 4 Hz span one second
	fv, err = Extract(x, 4, domain.TiltSeries([]float64{0, 1, 0, 1}))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, fv.TiltDev, 1e-12)
	assert.InDelta(t, 1, fv.TiltRate, 1e-12)

	fv, err = Extract(x, 4, domain.TiltSeries([]float64{2}))
	require.NoError(t, err)
	assert.Zero(t, fv.TiltDev)
	assert.Zero(t, fv.TiltRate)
}

func TestExtractIsDeterministic(t *testing.T) {
	x := sine(300, 100, 7, 0.4)
	a, err := Extract(x, 100, domain.TiltValue(0.1))
	require.NoError(t, err)
	b, err := Extract(x, 100, domain.TiltValue(0.1))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestLocalMaximaPlateau(t *testing.T) {
	assert.Equal(t, []int{2}, LocalMaxima([]float64{0, 1, 2, 1, 0}))
	assert.Equal(t, []int{2}, LocalMaxima([]float64{0, 2, 2, 2, 0}))
	assert.Empty(t, LocalMaxima([]float64{3, 2, 1}))
	assert.Empty(t, LocalMaxima([]float64{1, 1, 1, 1}))
	assert.Empty(t, LocalMaxima([]float64{0, 1, 1}))
}
