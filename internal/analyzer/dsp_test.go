package analyzer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameCount(t *testing.T) {
	assert.Equal(t, 0, frameCount(0, 512))
	assert.Equal(t, 1, frameCount(1, 512))
	assert.Equal(t, 2, frameCount(512, 512))
	assert.Equal(t, 44, frameCount(22050, 512))
}

func TestCenteredFramePadsWithZeros(t *testing.T) {
	dst := make([]float64, 4)
	centeredFrame([]float64{1, 2, 3}, 0, dst)
	assert.Equal(t, []float64{0, 0, 1, 2}, dst)

	centeredFrame([]float64{1, 2, 3}, 2, dst)
	assert.Equal(t, []float64{1, 2, 3, 0}, dst)
}

func TestPowerSpectrogramPeakAtToneBin(t *testing.T) {
	s := NewSpectrumAnalyzer(testSampleRate, 2048, 512)
	// 频率正好落在第 100 个频点
	freq := 100 * float64(testSampleRate) / 2048
	spec := s.PowerSpectrogram(sine(freq, testSampleRate, 0.5, 1))

	require.Len(t, spec, s.NumFrames(testSampleRate/2))
	frame := spec[len(spec)/2]
	require.Len(t, frame, 1025)
	assert.Equal(t, 100, argMax(frame))
}

func TestRMS(t *testing.T) {
	assert.Empty(t, RMS(nil, 2048, 512))

	constant := make([]float64, testSampleRate)
	for i := range constant {
		constant[i] = 0.5
	}
	rms := RMS(constant, 2048, 512)
	require.Len(t, rms, 44)
	assert.InDelta(t, 0.5, rms[10], 1e-12)
	// 第一帧一半为补零
	assert.InDelta(t, math.Sqrt(0.125), rms[0], 1e-12)
}

func TestAmplitudeToDB(t *testing.T) {
	db := AmplitudeToDB([]float64{1, 0.1, 0}, 80)
	require.Len(t, db, 3)
	assert.InDelta(t, 0, db[0], 1e-9)
	assert.InDelta(t, -20, db[1], 1e-9)
	assert.InDelta(t, -80, db[2], 1e-9, "clipped to max - top_db")

	db = AmplitudeToDB([]float64{0}, 80)
	assert.InDelta(t, -100, db[0], 1e-9, "amplitude floor is 1e-5")

	assert.Empty(t, AmplitudeToDB(nil, 80))
}

func TestPowerToDBMatrixUsesGlobalMax(t *testing.T) {
	db := powerToDBMatrix([][]float64{{1, 0}, {1e-12, 0.01}}, 80)
	assert.InDelta(t, 0, db[0][0], 1e-9)
	assert.InDelta(t, -80, db[0][1], 1e-9)
	assert.InDelta(t, -80, db[1][0], 1e-9)
	assert.InDelta(t, -20, db[1][1], 1e-9)
}

func TestMeanAndMedian(t *testing.T) {
	_, ok := Mean(nil)
	assert.False(t, ok)

	m, ok := Mean([]float64{1, 2, 3, 6})
	assert.True(t, ok)
	assert.Equal(t, 3.0, m)

	assert.Equal(t, 2.0, medianOf([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, medianOf([]float64{4, 1, 3, 2}))
	assert.Equal(t, 0.0, medianOf(nil))
}

func TestArgMaxPrefersFirst(t *testing.T) {
	assert.Equal(t, 0, argMax([]float64{0, 0, 0}))
	assert.Equal(t, 1, argMax([]float64{1, 3, 3}))
}

func TestMelScaleRoundTrip(t *testing.T) {
	assert.InDelta(t, 15, hzToMel(1000), 1e-12)
	assert.InDelta(t, 7.5, hzToMel(500), 1e-12)
	for _, hz := range []float64{0, 120, 999, 1000, 4000, 11025} {
		assert.InDelta(t, hz, melToHz(hzToMel(hz)), 1e-6)
	}
}

func TestMelFilterBank(t *testing.T) {
	bank := MelFilterBank(testSampleRate, 2048, 128)
	require.Len(t, bank, 128)

	for m, filter := range bank {
		require.Len(t, filter, 1025)
		sum := 0.0
		for _, w := range filter {
			require.GreaterOrEqual(t, w, 0.0)
			sum += w
		}
		if m > 0 {
			assert.Greater(t, sum, 0.0, "filter %d is empty", m)
		}
	}

	// 滤波器中心频率递增
	assert.Less(t, argMax(bank[10]), argMax(bank[60]))
	assert.Less(t, argMax(bank[60]), argMax(bank[120]))
}

func TestApplyFilterBankMatchesDirectSum(t *testing.T) {
	bank := filterBankMatrix([][]float64{{1, 0, 2}, {0, 0.5, 0}})

	out := applyFilterBank([][]float64{{1, 2, 3}, {4, 5, 6}}, bank)
	assert.Equal(t, [][]float64{{7, 1}, {16, 2.5}}, out)

	assert.Empty(t, applyFilterBank(nil, bank))
}

func TestOnsetStrengthSilence(t *testing.T) {
	o := NewOnsetDetector(testSampleRate, 2048, 512, 128, 80)
	env := o.Strength(o.MelDB(make([]float64, testSampleRate)), AggregateMean)

	require.Len(t, env, 44)
	for _, v := range env {
		assert.Equal(t, 0.0, v)
	}

	assert.Nil(t, o.Strength(o.MelDB(nil), AggregateMean))
}

func TestOnsetStrengthDetectsClicks(t *testing.T) {
	o := NewOnsetDetector(testSampleRate, 2048, 512, 128, 80)
	env := o.Strength(o.MelDB(clickTrain(testSampleRate, 22*512, 2)), AggregateMedian)

	require.Len(t, env, frameCount(2*testSampleRate, 512))
	// 前 1 + n_fft/(2*hop) 帧为补零
	assert.Equal(t, []float64{0, 0, 0}, env[:3])
	assert.Greater(t, maxOf(env), 0.0)
	for _, v := range env {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestTempoEstimatorZeroEnvelope(t *testing.T) {
	e := NewTempoEstimator(testSampleRate, 512, 8, 120, 320)
	assert.Equal(t, 0.0, e.Estimate(make([]float64, 100)))
	assert.Equal(t, 0.0, e.Estimate(nil))
}

func TestTempoEstimatorPeriodicEnvelope(t *testing.T) {
	e := NewTempoEstimator(testSampleRate, 512, 8, 120, 320)
	assert.Equal(t, 344, e.winLength)

	env := make([]float64, 300)
	for i := 3; i < len(env); i += 22 {
		env[i] = 5
	}
	assert.InDelta(t, 60.0*testSampleRate/(512*22), e.Estimate(env), 1e-9)
}

func TestAutocorrelate(t *testing.T) {
	ac := autocorrelate([]float64{1, 2, 3})
	require.Len(t, ac, 3)
	assert.InDelta(t, 14, ac[0], 1e-9)
	assert.InDelta(t, 8, ac[1], 1e-9)
	assert.InDelta(t, 3, ac[2], 1e-9)
}

func TestLinearRampPad(t *testing.T) {
	out := linearRampPad([]float64{4, 8}, 2)
	assert.Equal(t, []float64{0, 2, 4, 8, 4, 0}, out)
}

func TestChromaPitchClasses(t *testing.T) {
	c := NewChromaAnalyzer(testSampleRate, 512, 32.70319566257483, 7, 36)

	cases := map[float64]int{
		261.63: 0,  // C4
		329.63: 4,  // E4
		440.00: 9,  // A4
		123.47: 11, // B2
	}
	for freq, want := range cases {
		mean := c.MeanChroma(sine(freq, testSampleRate, 1, 0.5))
		require.Len(t, mean, 12)
		assert.Equal(t, want, argMax(mean), "%.2f Hz", freq)
	}

	assert.Nil(t, c.MeanChroma(nil))
}

func TestChromaFramesAreMaxNormalized(t *testing.T) {
	c := NewChromaAnalyzer(testSampleRate, 512, 32.70319566257483, 7, 36)
	chroma := c.Chroma(sine(440, testSampleRate, 0.5, 0.5))

	require.Len(t, chroma, frameCount(testSampleRate/2, 512))
	for _, frame := range chroma {
		assert.InDelta(t, 1.0, maxOf(frame), 1e-12)
	}
}

func TestChromaSkipsBinsAboveNyquist(t *testing.T) {
	c := NewChromaAnalyzer(8000, 512, 32.70319566257483, 7, 36)
	top := c.octaves[0]
	assert.Nil(t, top.kernels[len(top.kernels)-1])
	assert.NotNil(t, top.kernels[0])
}

func TestDecimateKeepsLowFrequencies(t *testing.T) {
	c := NewChromaAnalyzer(testSampleRate, 512, 32.70319566257483, 7, 36)

	low := c.decimate(sine(200, testSampleRate, 0.5, 1))
	high := c.decimate(sine(9000, testSampleRate, 0.5, 1))
	require.Len(t, low, (testSampleRate/2+1)/2)

	peak := func(x []float64) float64 {
		m := 0.0
		for _, v := range x[100 : len(x)-100] {
			m = math.Max(m, math.Abs(v))
		}
		return m
	}
	assert.InDelta(t, 1.0, peak(low), 0.01)
	assert.Less(t, peak(high), 0.01)
}
