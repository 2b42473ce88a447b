package analyzer

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Slaney 梅尔刻度：1 kHz 以下线性，以上对数
const (
	melFSp       = 200.0 / 3
	melMinLogHz  = 1000.0
	melMinLogMel = melMinLogHz / melFSp
)

var melLogStep = math.Log(6.4) / 27.0

func hzToMel(hz float64) float64 {
	if hz >= melMinLogHz {
		return melMinLogMel + math.Log(hz/melMinLogHz)/melLogStep
	}
	return hz / melFSp
}

func melToHz(mel float64) float64 {
	if mel >= melMinLogMel {
		return melMinLogHz * math.Exp(melLogStep*(mel-melMinLogMel))
	}
	return melFSp * mel
}

// MelFilterBank 构建 0 ~ sr/2 的三角梅尔滤波器组 (Slaney 面积归一化)。
// 返回 [numMels][frameLength/2+1]。
func MelFilterBank(sampleRate, frameLength, numMels int) [][]float64 {
	numBins := frameLength/2 + 1
	fftFreqs := make([]float64, numBins)
	for k := range fftFreqs {
		fftFreqs[k] = float64(k) * float64(sampleRate) / float64(frameLength)
	}

	melMin := hzToMel(0)
	melMax := hzToMel(float64(sampleRate) / 2)
	melF := make([]float64, numMels+2)
	for i := range melF {
		melF[i] = melToHz(melMin + (melMax-melMin)*float64(i)/float64(numMels+1))
	}

	weights := make([][]float64, numMels)
	for m := 0; m < numMels; m++ {
		weights[m] = make([]float64, numBins)
		lowerWidth := melF[m+1] - melF[m]
		upperWidth := melF[m+2] - melF[m+1]
		enorm := 2.0 / (melF[m+2] - melF[m])
		for k, f := range fftFreqs {
			lower := (f - melF[m]) / lowerWidth
			upper := (melF[m+2] - f) / upperWidth
			w := math.Max(0, math.Min(lower, upper))
			weights[m][k] = w * enorm
		}
	}

	return weights
}

// filterBankMatrix 将 [梅尔带][频点] 权重转为矩阵
func filterBankMatrix(bank [][]float64) *mat.Dense {
	w := mat.NewDense(len(bank), len(bank[0]), nil)
	for m, weights := range bank {
		w.SetRow(m, weights)
	}
	return w
}

// applyFilterBank 将 [帧][频点] 功率谱投影到 [帧][梅尔带]
func applyFilterBank(spec [][]float64, bank *mat.Dense) [][]float64 {
	out := make([][]float64, len(spec))
	if len(spec) == 0 {
		return out
	}

	_, numBins := bank.Dims()
	power := mat.NewDense(len(spec), numBins, nil)
	for t, frame := range spec {
		power.SetRow(t, frame)
	}

	var mel mat.Dense
	mel.Mul(power, bank.T())
	for t := range out {
		out[t] = mel.RawRowView(t)
	}
	return out
}
