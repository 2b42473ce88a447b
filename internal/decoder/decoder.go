package decoder

import (
	"fmt"
	"path/filepath"
	"strings"

	"audio-feature-extractor/internal/types"
)

// AudioDecoder 音频解码器接口
type AudioDecoder interface {
	Decode(filePath string) (types.AudioFile, error)
	SupportedFormats() []string
}

// DecoderRegistry 解码器注册表
type DecoderRegistry struct {
	decoders map[string]AudioDecoder
}

// NewDecoderRegistry 创建新的解码器注册表
func NewDecoderRegistry() *DecoderRegistry {
	registry := &DecoderRegistry{
		decoders: make(map[string]AudioDecoder),
	}

	registry.Register(&WAVDecoder{})
	registry.Register(&FLACDecoder{})
	registry.Register(&MP3Decoder{})

	return registry
}

// Register 注册解码器
func (r *DecoderRegistry) Register(decoder AudioDecoder) {
	for _, format := range decoder.SupportedFormats() {
		r.decoders[strings.ToLower(format)] = decoder
	}
}

// GetDecoder 根据文件扩展名获取解码器
func (r *DecoderRegistry) GetDecoder(filePath string) (AudioDecoder, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext == "" {
		return nil, fmt.Errorf("cannot determine audio format: %s", filePath)
	}

	// 移除点号
	ext = ext[1:]

	decoder, exists := r.decoders[ext]
	if !exists {
		return nil, fmt.Errorf("unsupported audio format: %s", ext)
	}

	return decoder, nil
}

// DecodeFile 解码音频文件
func (r *DecoderRegistry) DecodeFile(filePath string) (types.AudioFile, error) {
	decoder, err := r.GetDecoder(filePath)
	if err != nil {
		return nil, err
	}

	return decoder.Decode(filePath)
}

// interleavedToMono 将交错的整数采样按声道取平均并归一化到 [-1, 1)
func interleavedToMono(data []int, channels, bitDepth int) []float64 {
	if channels <= 0 {
		channels = 1
	}
	frames := len(data) / channels
	mono := make([]float64, frames)

	maxVal := float64(int(1) << uint(bitDepth-1))
	// 8 bit WAV 为无符号采样
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}

	for i := 0; i < frames; i++ {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			sum += float64(data[i*channels+ch] - offset)
		}
		mono[i] = sum / float64(channels) / maxVal
	}

	return mono
}
