package types

import (
	"fmt"
	"time"
)

// PitchClassNames 十二个音级名称，索引 0 对应 C
var PitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// ExtractorConfig 特征提取配置
type ExtractorConfig struct {
	FrameLength int // STFT / RMS 帧长 (采样点)
	HopLength   int // 帧移 (采样点)
	NumMels     int // 梅尔滤波器数量

	StartBPM     float64 // 节拍先验中心 (BPM)
	MaxBPM       float64 // 节拍上限 (BPM)
	TempoWindowS float64 // 速度自相关窗口 (秒)

	ChromaFMin          float64 // CQT 最低频率 (Hz)
	ChromaOctaves       int     // CQT 八度数
	ChromaBinsPerOctave int     // 每八度 CQT 频点数

	TopDB float64 // dB 转换动态范围下限
}

// DefaultExtractorConfig 返回默认配置
func DefaultExtractorConfig() *ExtractorConfig {
	return &ExtractorConfig{
		FrameLength:         2048,
		HopLength:           512,
		NumMels:             128,
		StartBPM:            120,
		MaxBPM:              320,
		TempoWindowS:        8,
		ChromaFMin:          32.70319566257483, // C1
		ChromaOctaves:       7,
		ChromaBinsPerOctave: 36,
		TopDB:               80,
	}
}

// Validate 检查配置是否可用
func (c *ExtractorConfig) Validate() error {
	switch {
	case c.FrameLength <= 0 || c.HopLength <= 0:
		return fmt.Errorf("invalid frame/hop length: %d/%d", c.FrameLength, c.HopLength)
	case c.NumMels <= 0:
		return fmt.Errorf("invalid mel band count: %d", c.NumMels)
	case c.StartBPM <= 0 || c.MaxBPM <= 0 || c.TempoWindowS <= 0:
		return fmt.Errorf("invalid tempo parameters")
	case c.ChromaFMin <= 0 || c.ChromaOctaves <= 0:
		return fmt.Errorf("invalid chroma range")
	case c.ChromaBinsPerOctave <= 0 || c.ChromaBinsPerOctave%12 != 0:
		return fmt.Errorf("chroma bins per octave must be a positive multiple of 12, got %d", c.ChromaBinsPerOctave)
	case c.HopLength%(1<<uint(c.ChromaOctaves-1)) != 0:
		return fmt.Errorf("hop length %d is not divisible by 2^%d", c.HopLength, c.ChromaOctaves-1)
	}
	return nil
}

// FeatureRecord 特征提取结果，字段为 nil 时输出 null
type FeatureRecord struct {
	BPM          *float64 `json:"bpm"`
	Energy       *float64 `json:"energy"`
	Loudness     *float64 `json:"loudness"`
	SpectralFlux *float64 `json:"spectralFlux"`
	MusicalKey   *string  `json:"musicalKey"`
}

// AudioFile 音频文件接口
type AudioFile interface {
	GetFormat() string
	GetSampleRate() int
	GetBitDepth() int
	GetChannels() int
	GetDuration() time.Duration
	// GetSamples 返回按声道平均后的单声道采样，范围 [-1, 1)
	GetSamples() ([]float64, error)
	Close() error
}
