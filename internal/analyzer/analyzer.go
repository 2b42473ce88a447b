package analyzer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"audio-feature-extractor/internal/decoder"
	"audio-feature-extractor/internal/types"

	"go.uber.org/zap"
)

// 提取阶段，用于进度回调
const (
	StageTempo  = "tempo"
	StageEnergy = "energy"
	StageFlux   = "spectral flux"
	StageKey    = "key"
	NumStages   = 4
)

// bpm 保留的小数位数
const bpmDecimals = 2

// NotFoundError 输入文件不存在
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return "Audio file not found: " + e.Path
}

// StageHook 每完成一个提取阶段后调用
type StageHook func(stage string)

// Analyzer 音频特征提取器
type Analyzer struct {
	config          *types.ExtractorConfig
	decoderRegistry *decoder.DecoderRegistry
	logger          *zap.Logger
	onStage         StageHook
}

// NewAnalyzer 创建新的分析器，logger 为 nil 时不输出日志
func NewAnalyzer(config *types.ExtractorConfig, logger *zap.Logger) *Analyzer {
	if config == nil {
		config = types.DefaultExtractorConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		config:          config,
		decoderRegistry: decoder.NewDecoderRegistry(),
		logger:          logger,
	}
}

// SetStageHook 设置阶段回调
func (a *Analyzer) SetStageHook(hook StageHook) {
	a.onStage = hook
}

// ExtractFile 加载并分析单个音频文件
func (a *Analyzer) ExtractFile(filePath string) (*types.FeatureRecord, error) {
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: filePath}
		}
		return nil, err
	}

	audioFile, err := a.decoderRegistry.DecodeFile(filePath)
	if err != nil {
		return nil, err
	}
	defer audioFile.Close()

	samples, err := audioFile.GetSamples()
	if err != nil {
		return nil, err
	}

	a.logger.Info("decoded audio",
		zap.String("path", filePath),
		zap.String("format", audioFile.GetFormat()),
		zap.Int("sampleRate", audioFile.GetSampleRate()),
		zap.Int("channels", audioFile.GetChannels()),
		zap.Int("bitDepth", audioFile.GetBitDepth()),
		zap.Duration("duration", audioFile.GetDuration()),
	)

	return a.Extract(samples, audioFile.GetSampleRate())
}

// Extract 对单声道采样计算全部特征，各特征互不依赖
func (a *Analyzer) Extract(samples []float64, sampleRate int) (*types.FeatureRecord, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	if err := a.config.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	cfg := a.config
	record := &types.FeatureRecord{}

	onset := NewOnsetDetector(sampleRate, cfg.FrameLength, cfg.HopLength, cfg.NumMels, cfg.TopDB)
	melDB := onset.MelDB(samples)

	// 速度：中位数聚合的起音包络
	tempo := NewTempoEstimator(sampleRate, cfg.HopLength, cfg.TempoWindowS, cfg.StartBPM, cfg.MaxBPM).
		Estimate(onset.Strength(melDB, AggregateMedian))
	if tempo != 0 {
		bpm := roundBPM(tempo)
		record.BPM = &bpm
	}
	a.stageDone(StageTempo)

	// 能量与响度
	rms := RMS(samples, cfg.FrameLength, cfg.HopLength)
	if energy, ok := Mean(rms); ok {
		loudness, _ := Mean(AmplitudeToDB(rms, cfg.TopDB))
		record.Energy = &energy
		record.Loudness = &loudness
	}
	a.stageDone(StageEnergy)

	// 频谱通量：均值聚合的起音包络
	if flux, ok := Mean(onset.Strength(melDB, AggregateMean)); ok {
		record.SpectralFlux = &flux
	}
	a.stageDone(StageFlux)

	// 调性：平均音级能量最大的音级
	chroma := NewChromaAnalyzer(sampleRate, cfg.HopLength, cfg.ChromaFMin, cfg.ChromaOctaves, cfg.ChromaBinsPerOctave)
	if mean := chroma.MeanChroma(samples); mean != nil {
		key := types.PitchClassNames[argMax(mean)]
		record.MusicalKey = &key
	}
	a.stageDone(StageKey)

	a.logger.Info("features extracted",
		zap.Int("samples", len(samples)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return record, nil
}

// roundBPM 保留 bpmDecimals 位小数：按二进制值的精确十进制展开舍入，恰好一半时取偶数 (0.125 -> 0.12)
func roundBPM(tempo float64) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(tempo, 'f', bpmDecimals, 64), 64)
	return v
}

func (a *Analyzer) stageDone(stage string) {
	a.logger.Debug("stage finished", zap.String("stage", stage))
	if a.onStage != nil {
		a.onStage(stage)
	}
}
