package analyzer

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
)

const (
	// 频谱核稀疏化阈值 (相对最大幅度)
	kernelSparsity = 0.0054
	// 降采样低通滤波器半长与截止频率 (周期/采样)
	lowpassHalfTaps = 32
	lowpassCutoff   = 0.225
)

// kernelEntry 稀疏频谱核中的一个非零项
type kernelEntry struct {
	bin    int
	weight complex128
}

// cqtOctave 一个八度的常Q频谱核
type cqtOctave struct {
	firstBin int
	fftLen   int
	kernels  [][]kernelEntry // 高于奈奎斯特频率的频点为 nil
}

// ChromaAnalyzer 基于常Q变换的音级能量分析
type ChromaAnalyzer struct {
	sampleRate    int
	hopLength     int
	binsPerOctave int
	numOctaves    int
	octaves       []cqtOctave // 从最高八度开始
	lowpass       []float64
}

// NewChromaAnalyzer 创建音级分析器。hopLength 必须能被 2^(numOctaves-1) 整除。
func NewChromaAnalyzer(sampleRate, hopLength int, fmin float64, numOctaves, binsPerOctave int) *ChromaAnalyzer {
	c := &ChromaAnalyzer{
		sampleRate:    sampleRate,
		hopLength:     hopLength,
		binsPerOctave: binsPerOctave,
		numOctaves:    numOctaves,
		lowpass:       halfbandLowpass(),
	}

	q := 1.0 / (math.Pow(2, 1.0/float64(binsPerOctave)) - 1)
	for o := 0; o < numOctaves; o++ {
		octaveRate := float64(sampleRate) / math.Pow(2, float64(o))
		firstBin := (numOctaves - 1 - o) * binsPerOctave
		c.octaves = append(c.octaves, buildOctaveKernels(firstBin, binsPerOctave, fmin, q, octaveRate))
	}

	return c
}

// buildOctaveKernels 为一个八度构建频域稀疏核
func buildOctaveKernels(firstBin, binsPerOctave int, fmin, q, sampleRate float64) cqtOctave {
	lowest := fmin * math.Pow(2, float64(firstBin)/float64(binsPerOctave))
	fftLen := nearestPowerOf2(int(math.Ceil(q * sampleRate / lowest)))

	oct := cqtOctave{
		firstBin: firstBin,
		fftLen:   fftLen,
		kernels:  make([][]kernelEntry, binsPerOctave),
	}

	for i := 0; i < binsPerOctave; i++ {
		freq := fmin * math.Pow(2, float64(firstBin+i)/float64(binsPerOctave))
		if freq >= sampleRate/2 {
			continue
		}
		length := int(math.Ceil(q * sampleRate / freq))
		if length > fftLen {
			length = fftLen
		}

		win := periodicHann(length)
		norm := 0.0
		for _, w := range win {
			norm += w
		}

		temporal := make([]complex128, fftLen)
		start := fftLen/2 - length/2
		for n := 0; n < length; n++ {
			phase := 2 * math.Pi * freq * float64(n-length/2) / sampleRate
			temporal[start+n] = complex(win[n]/norm, 0) * cmplx.Exp(complex(0, phase))
		}

		spectral := fft.FFT(temporal)
		peak := 0.0
		for _, v := range spectral {
			if a := cmplx.Abs(v); a > peak {
				peak = a
			}
		}

		var entries []kernelEntry
		for k, v := range spectral {
			if cmplx.Abs(v) >= kernelSparsity*peak {
				// 由帕塞瓦尔定理，时域内积 = 频域内积 / N
				entries = append(entries, kernelEntry{bin: k, weight: cmplx.Conj(v) / complex(float64(fftLen), 0)})
			}
		}
		oct.kernels[i] = entries
	}

	return oct
}

// Chroma 计算逐帧音级能量 [帧][12]，每帧按最大值归一化
func (c *ChromaAnalyzer) Chroma(samples []float64) [][]float64 {
	numFrames := frameCount(len(samples), c.hopLength)
	if numFrames == 0 {
		return nil
	}

	chroma := make([][]float64, numFrames)
	for t := range chroma {
		chroma[t] = make([]float64, 12)
	}

	mergeBins := c.binsPerOctave / 12
	signal := samples
	hop := c.hopLength
	for o, oct := range c.octaves {
		if o > 0 {
			signal = c.decimate(signal)
			hop /= 2
		}

		frame := make([]float64, oct.fftLen)
		for t := 0; t < numFrames; t++ {
			centeredFrame(signal, t*hop, frame)
			spectrum := fft.FFTReal(frame)

			for i, kernel := range oct.kernels {
				if kernel == nil {
					continue
				}
				var sum complex128
				for _, e := range kernel {
					sum += spectrum[e.bin] * e.weight
				}
				// 每个音级对应以平均律音高为中心的 mergeBins 个频点
				bin := oct.firstBin + i
				pitchClass := ((bin + mergeBins/2) / mergeBins) % 12
				chroma[t][pitchClass] += cmplx.Abs(sum)
			}
		}
	}

	for _, frame := range chroma {
		peak := maxOf(frame)
		if peak <= 0 {
			continue
		}
		for i := range frame {
			frame[i] /= peak
		}
	}

	return chroma
}

// MeanChroma 跨帧平均的音级能量，无帧时返回 nil
func (c *ChromaAnalyzer) MeanChroma(samples []float64) []float64 {
	chroma := c.Chroma(samples)
	if len(chroma) == 0 {
		return nil
	}
	mean := make([]float64, 12)
	for _, frame := range chroma {
		floats.Add(mean, frame)
	}
	floats.Scale(1/float64(len(chroma)), mean)
	return mean
}

// decimate 低通滤波后 2 倍降采样
func (c *ChromaAnalyzer) decimate(signal []float64) []float64 {
	out := make([]float64, (len(signal)+1)/2)
	for i := range out {
		center := 2 * i
		sum := 0.0
		for m, h := range c.lowpass {
			idx := center + lowpassHalfTaps - m
			if idx >= 0 && idx < len(signal) {
				sum += h * signal[idx]
			}
		}
		out[i] = sum
	}
	return out
}

// halfbandLowpass 汉宁窗加权的 sinc 低通滤波器，直流增益为 1
func halfbandLowpass() []float64 {
	taps := 2*lowpassHalfTaps + 1
	win := window.Hann(taps)
	h := make([]float64, taps)
	sum := 0.0
	for m := 0; m < taps; m++ {
		x := float64(m - lowpassHalfTaps)
		v := 2 * lowpassCutoff
		if x != 0 {
			v = math.Sin(2*math.Pi*lowpassCutoff*x) / (math.Pi * x)
		}
		h[m] = v * win[m]
		sum += h[m]
	}
	for m := range h {
		h[m] /= sum
	}
	return h
}
