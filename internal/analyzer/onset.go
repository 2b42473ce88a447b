package analyzer

import "gonum.org/v1/gonum/mat"

// Aggregate 跨梅尔带的聚合函数
type Aggregate func([]float64) float64

var (
	AggregateMean   Aggregate = meanOf
	AggregateMedian Aggregate = medianOf
)

// OnsetDetector 基于梅尔谱正向差分的起音强度计算
type OnsetDetector struct {
	spectrum    *SpectrumAnalyzer
	melBank     *mat.Dense
	frameLength int
	hopLength   int
	topDB       float64
}

// NewOnsetDetector 创建起音检测器
func NewOnsetDetector(sampleRate, frameLength, hopLength, numMels int, topDB float64) *OnsetDetector {
	return &OnsetDetector{
		spectrum:    NewSpectrumAnalyzer(sampleRate, frameLength, hopLength),
		melBank:     filterBankMatrix(MelFilterBank(sampleRate, frameLength, numMels)),
		frameLength: frameLength,
		hopLength:   hopLength,
		topDB:       topDB,
	}
}

// MelDB 计算 dB 梅尔谱 [帧][梅尔带]
func (o *OnsetDetector) MelDB(samples []float64) [][]float64 {
	mel := applyFilterBank(o.spectrum.PowerSpectrogram(samples), o.melBank)
	return powerToDBMatrix(mel, o.topDB)
}

// Strength 由 dB 梅尔谱计算起音强度包络，长度与帧数相同
func (o *OnsetDetector) Strength(melDB [][]float64, agg Aggregate) []float64 {
	numFrames := len(melDB)
	if numFrames == 0 {
		return nil
	}

	env := make([]float64, numFrames)
	// 居中分帧带来的时间偏移 + 一阶差分的滞后
	shift := 1 + o.frameLength/(2*o.hopLength)

	diff := make([]float64, 0)
	for t := 1; t < numFrames; t++ {
		out := t - 1 + shift
		if out >= numFrames {
			break
		}
		cur, prev := melDB[t], melDB[t-1]
		if cap(diff) < len(cur) {
			diff = make([]float64, len(cur))
		}
		diff = diff[:len(cur)]
		for m := range cur {
			d := cur[m] - prev[m]
			if d < 0 {
				d = 0
			}
			diff[m] = d
		}
		env[out] = agg(diff)
	}

	return env
}
