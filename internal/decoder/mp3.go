package decoder

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"audio-feature-extractor/internal/types"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 固定输出 16 bit 小端双声道 PCM
const (
	mp3BitDepth      = 16
	mp3Channels      = 2
	mp3BytesPerFrame = mp3Channels * mp3BitDepth / 8
)

// MP3Decoder MP3格式解码器
type MP3Decoder struct{}

// MP3File MP3文件实现
type MP3File struct {
	file       *os.File
	sampleRate int
	duration   time.Duration
	samples    []float64
}

// SupportedFormats 返回支持的格式
func (d *MP3Decoder) SupportedFormats() []string {
	return []string{"mp3"}
}

// Decode 解码MP3文件
func (d *MP3Decoder) Decode(filePath string) (types.AudioFile, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create MP3 decoder: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	sampleRate := decoder.SampleRate()
	if sampleRate <= 0 {
		file.Close()
		return nil, fmt.Errorf("invalid MP3 sample rate: %d", sampleRate)
	}

	frames := len(pcm) / mp3BytesPerFrame
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		left := int16(binary.LittleEndian.Uint16(pcm[i*mp3BytesPerFrame:]))
		right := int16(binary.LittleEndian.Uint16(pcm[i*mp3BytesPerFrame+2:]))
		samples[i] = (float64(left) + float64(right)) / 2 / 32768.0
	}

	return &MP3File{
		file:       file,
		sampleRate: sampleRate,
		duration:   time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second)),
		samples:    samples,
	}, nil
}

// GetFormat 获取格式名称
func (m *MP3File) GetFormat() string {
	return "MP3"
}

// GetSampleRate 获取采样率
func (m *MP3File) GetSampleRate() int {
	return m.sampleRate
}

// GetBitDepth 获取位深度
func (m *MP3File) GetBitDepth() int {
	return mp3BitDepth
}

// GetChannels 获取声道数
func (m *MP3File) GetChannels() int {
	return mp3Channels
}

// GetDuration 获取时长
func (m *MP3File) GetDuration() time.Duration {
	return m.duration
}

// GetSamples 获取音频采样数据
func (m *MP3File) GetSamples() ([]float64, error) {
	return m.samples, nil
}

// Close 关闭文件
func (m *MP3File) Close() error {
	if m.file != nil {
		return m.file.Close()
	}
	return nil
}
