package analyzer

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// TempoEstimator 基于起音包络自相关 (tempogram) 的全局速度估计
type TempoEstimator struct {
	sampleRate int
	hopLength  int
	winLength  int
	startBPM   float64
	maxBPM     float64
}

// NewTempoEstimator 创建速度估计器，windowSeconds 为自相关窗口长度
func NewTempoEstimator(sampleRate, hopLength int, windowSeconds, startBPM, maxBPM float64) *TempoEstimator {
	winLength := int(math.Floor(windowSeconds*float64(sampleRate))) / hopLength
	if winLength < 2 {
		winLength = 2
	}
	return &TempoEstimator{
		sampleRate: sampleRate,
		hopLength:  hopLength,
		winLength:  winLength,
		startBPM:   startBPM,
		maxBPM:     maxBPM,
	}
}

// Estimate 返回全局速度 (BPM)。包络全为零时返回 0。
func (e *TempoEstimator) Estimate(onsetEnv []float64) float64 {
	if !anyNonZero(onsetEnv) {
		return 0
	}

	tg := e.globalTempogram(onsetEnv)

	best := -1
	bestScore := math.Inf(-1)
	for lag := 1; lag < len(tg); lag++ {
		bpm := e.lagToBPM(lag)
		if bpm >= e.maxBPM {
			continue
		}
		// 以 startBPM 为中心的对数正态先验
		prior := math.Log2(bpm) - math.Log2(e.startBPM)
		score := math.Log1p(1e6*math.Max(0, tg[lag])) - 0.5*prior*prior
		if score > bestScore {
			bestScore = score
			best = lag
		}
	}
	if best < 0 {
		return 0
	}

	return e.lagToBPM(best)
}

func (e *TempoEstimator) lagToBPM(lag int) float64 {
	return 60.0 * float64(e.sampleRate) / (float64(e.hopLength) * float64(lag))
}

// globalTempogram 逐帧加窗自相关，按最大值归一化后对所有帧取平均
func (e *TempoEstimator) globalTempogram(onsetEnv []float64) []float64 {
	n := len(onsetEnv)
	padded := linearRampPad(onsetEnv, e.winLength/2)
	win := periodicHann(e.winLength)

	acc := make([]float64, e.winLength)
	frame := make([]float64, e.winLength)
	for t := 0; t < n; t++ {
		for i := range frame {
			frame[i] = padded[t+i] * win[i]
		}
		ac := autocorrelate(frame)
		peak := 0.0
		for _, v := range ac {
			if math.Abs(v) > peak {
				peak = math.Abs(v)
			}
		}
		if peak < math.SmallestNonzeroFloat64 {
			continue
		}
		for i, v := range ac {
			acc[i] += v / peak
		}
	}

	for i := range acc {
		acc[i] /= float64(n)
	}
	return acc
}

// autocorrelate 通过 FFT 计算线性自相关，返回 0 ~ len(x)-1 的滞后
func autocorrelate(x []float64) []float64 {
	size := nearestPowerOf2(2*len(x) - 1)
	buf := make([]float64, size)
	copy(buf, x)

	spec := fft.FFTReal(buf)
	for i, c := range spec {
		mag := cmplx.Abs(c)
		spec[i] = complex(mag*mag, 0)
	}
	inv := fft.IFFT(spec)

	ac := make([]float64, len(x))
	for i := range ac {
		ac[i] = real(inv[i])
	}
	return ac
}

// linearRampPad 两端各补 width 个点，从 0 线性过渡到边缘值
func linearRampPad(x []float64, width int) []float64 {
	out := make([]float64, len(x)+2*width)
	copy(out[width:], x)
	if len(x) == 0 || width == 0 {
		return out
	}
	left, right := x[0], x[len(x)-1]
	for i := 0; i < width; i++ {
		out[i] = left * float64(i) / float64(width)
		out[width+len(x)+i] = right * float64(width-1-i) / float64(width)
	}
	return out
}

func anyNonZero(values []float64) bool {
	for _, v := range values {
		if v != 0 {
			return true
		}
	}
	return false
}
