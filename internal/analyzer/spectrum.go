package analyzer

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// SpectrumAnalyzer 短时傅里叶变换分析器
type SpectrumAnalyzer struct {
	sampleRate  int
	frameLength int
	hopLength   int
	window      []float64
}

// NewSpectrumAnalyzer 创建频谱分析器
func NewSpectrumAnalyzer(sampleRate, frameLength, hopLength int) *SpectrumAnalyzer {
	return &SpectrumAnalyzer{
		sampleRate:  sampleRate,
		frameLength: frameLength,
		hopLength:   hopLength,
		window:      periodicHann(frameLength),
	}
}

// NumFrames 居中分帧后的帧数
func (s *SpectrumAnalyzer) NumFrames(numSamples int) int {
	return frameCount(numSamples, s.hopLength)
}

// PowerSpectrogram 计算功率谱，结果按 [帧][频点] 排列，频点数为 frameLength/2+1
func (s *SpectrumAnalyzer) PowerSpectrogram(samples []float64) [][]float64 {
	numFrames := s.NumFrames(len(samples))
	spec := make([][]float64, numFrames)

	frame := make([]float64, s.frameLength)
	for t := 0; t < numFrames; t++ {
		centeredFrame(samples, t*s.hopLength, frame)
		for i := range frame {
			frame[i] *= s.window[i]
		}
		spec[t] = s.calculatePowerSpectrum(fft.FFTReal(frame))
	}

	return spec
}

// calculatePowerSpectrum 计算功率谱
func (s *SpectrumAnalyzer) calculatePowerSpectrum(spectrum []complex128) []float64 {
	power := make([]float64, len(spectrum)/2+1) // 实信号频谱对称

	for i := 0; i < len(power); i++ {
		mag := cmplx.Abs(spectrum[i])
		power[i] = mag * mag
	}

	return power
}

// frameCount 居中分帧 (两端各补 frameLength/2 个零) 的帧数
func frameCount(numSamples, hopLength int) int {
	if numSamples <= 0 {
		return 0
	}
	return 1 + numSamples/hopLength
}

// centeredFrame 以 center 为中心截取 len(dst) 个采样，越界部分补零
func centeredFrame(samples []float64, center int, dst []float64) {
	start := center - len(dst)/2
	for i := range dst {
		idx := start + i
		if idx >= 0 && idx < len(samples) {
			dst[i] = samples[idx]
		} else {
			dst[i] = 0
		}
	}
}

// periodicHann 周期汉宁窗，适用于频谱分析
func periodicHann(n int) []float64 {
	return window.Hann(n + 1)[:n]
}

// nearestPowerOf2 找到不小于 n 的最小2的幂
func nearestPowerOf2(n int) int {
	power := 1
	for power < n {
		power <<= 1
	}
	return power
}
