package analyzer

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// powerAmin 功率转 dB 时的最小值，对应幅度 1e-5
	powerAmin = 1e-10
)

// RMS 逐帧均方根能量，分帧方式与 STFT 一致
func RMS(samples []float64, frameLength, hopLength int) []float64 {
	numFrames := frameCount(len(samples), hopLength)
	rms := make([]float64, numFrames)

	frame := make([]float64, frameLength)
	for t := 0; t < numFrames; t++ {
		centeredFrame(samples, t*hopLength, frame)
		rms[t] = math.Sqrt(floats.Dot(frame, frame) / float64(frameLength))
	}

	return rms
}

// AmplitudeToDB 幅度转分贝 (参考值 1.0)，低于最大值 topDB 的部分截断
func AmplitudeToDB(amplitude []float64, topDB float64) []float64 {
	power := make([]float64, len(amplitude))
	for i, a := range amplitude {
		power[i] = a * a
	}
	return PowerToDB(power, topDB)
}

// PowerToDB 功率转分贝 (参考值 1.0)
func PowerToDB(power []float64, topDB float64) []float64 {
	db := make([]float64, len(power))
	for i, p := range power {
		db[i] = powerToDB(p)
	}
	if topDB > 0 && len(db) > 0 {
		floor := maxOf(db) - topDB
		for i := range db {
			if db[i] < floor {
				db[i] = floor
			}
		}
	}
	return db
}

// powerToDBMatrix 对整个矩阵做 dB 转换，截断阈值以全局最大值计算
func powerToDBMatrix(power [][]float64, topDB float64) [][]float64 {
	db := make([][]float64, len(power))
	globalMax := math.Inf(-1)
	for t, row := range power {
		db[t] = make([]float64, len(row))
		for i, p := range row {
			db[t][i] = powerToDB(p)
			if db[t][i] > globalMax {
				globalMax = db[t][i]
			}
		}
	}
	if topDB > 0 && len(db) > 0 {
		floor := globalMax - topDB
		for _, row := range db {
			for i := range row {
				if row[i] < floor {
					row[i] = floor
				}
			}
		}
	}
	return db
}

func powerToDB(p float64) float64 {
	return 10 * math.Log10(math.Max(powerAmin, p))
}

// Mean 算术平均值，空输入返回 false
func Mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	return stat.Mean(values, nil), true
}

func meanOf(values []float64) float64 {
	m, _ := Mean(values)
	return m
}

// medianOf 中位数，偶数个时取中间两个的平均
func medianOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return math.Inf(-1)
	}
	return floats.Max(values)
}

// argMax 返回最大值的下标，相等时取第一个
func argMax(values []float64) int {
	if len(values) == 0 {
		return 0
	}
	return floats.MaxIdx(values)
}
