package decoder

import (
	"fmt"
	"os"
	"time"

	"audio-feature-extractor/internal/types"

	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// WAVDecoder WAV格式解码器
type WAVDecoder struct{}

// WAVFile WAV文件实现
type WAVFile struct {
	file       *os.File
	sampleRate int
	bitDepth   int
	channels   int
	duration   time.Duration
	samples    []float64
}

// SupportedFormats 返回支持的格式
func (d *WAVDecoder) SupportedFormats() []string {
	return []string{"wav", "wave"}
}

// Decode 解码WAV文件，一次性读取全部PCM数据
func (d *WAVDecoder) Decode(filePath string) (types.AudioFile, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		file.Close()
		return nil, fmt.Errorf("invalid WAV file: %s", filePath)
	}

	if decoder.WavAudioFormat != wavFormatPCM && decoder.WavAudioFormat != wavFormatExtensible {
		file.Close()
		return nil, fmt.Errorf("unsupported WAV encoding (format tag %d): %s", decoder.WavAudioFormat, filePath)
	}

	channels := int(decoder.NumChans)
	sampleRate := int(decoder.SampleRate)
	bitDepth := int(decoder.BitDepth)
	if channels <= 0 || sampleRate <= 0 || bitDepth <= 0 {
		file.Close()
		return nil, fmt.Errorf("invalid WAV format: %d channels, %d Hz, %d bit", channels, sampleRate, bitDepth)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read WAV data: %w", err)
	}

	samples := interleavedToMono(buf.Data, channels, bitDepth)

	return &WAVFile{
		file:       file,
		sampleRate: sampleRate,
		bitDepth:   bitDepth,
		channels:   channels,
		duration:   time.Duration(float64(len(samples)) / float64(sampleRate) * float64(time.Second)),
		samples:    samples,
	}, nil
}

// GetFormat 获取格式名称
func (w *WAVFile) GetFormat() string {
	return "WAV"
}

// GetSampleRate 获取采样率
func (w *WAVFile) GetSampleRate() int {
	return w.sampleRate
}

// GetBitDepth 获取位深度
func (w *WAVFile) GetBitDepth() int {
	return w.bitDepth
}

// GetChannels 获取声道数
func (w *WAVFile) GetChannels() int {
	return w.channels
}

// GetDuration 获取时长
func (w *WAVFile) GetDuration() time.Duration {
	return w.duration
}

// GetSamples 获取音频采样数据
func (w *WAVFile) GetSamples() ([]float64, error) {
	return w.samples, nil
}

// Close 关闭文件
func (w *WAVFile) Close() error {
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}
