package decoder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"audio-feature-extractor/internal/types"

	"github.com/mewkiz/flac"
)

// FLACDecoder FLAC格式解码器
type FLACDecoder struct{}

// FLACFile FLAC文件实现
type FLACFile struct {
	stream     *flac.Stream
	file       *os.File
	sampleRate int
	bitDepth   int
	channels   int
	duration   time.Duration
	samples    []float64
}

// SupportedFormats 返回支持的格式
func (d *FLACDecoder) SupportedFormats() []string {
	return []string{"flac"}
}

// Decode 解码FLAC文件头
func (d *FLACDecoder) Decode(filePath string) (types.AudioFile, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	info := stream.Info
	if info == nil || info.SampleRate == 0 || info.NChannels == 0 || info.BitsPerSample == 0 {
		file.Close()
		return nil, fmt.Errorf("cannot read FLAC stream info: %s", filePath)
	}

	return &FLACFile{
		stream:     stream,
		file:       file,
		sampleRate: int(info.SampleRate),
		bitDepth:   int(info.BitsPerSample),
		channels:   int(info.NChannels),
		duration:   time.Duration(float64(info.NSamples) / float64(info.SampleRate) * float64(time.Second)),
	}, nil
}

// GetFormat 获取格式名称
func (f *FLACFile) GetFormat() string {
	return "FLAC"
}

// GetSampleRate 获取采样率
func (f *FLACFile) GetSampleRate() int {
	return f.sampleRate
}

// GetBitDepth 获取位深度
func (f *FLACFile) GetBitDepth() int {
	return f.bitDepth
}

// GetChannels 获取声道数
func (f *FLACFile) GetChannels() int {
	return f.channels
}

// GetDuration 获取时长
func (f *FLACFile) GetDuration() time.Duration {
	return f.duration
}

// GetSamples 逐帧解码并混合为单声道
func (f *FLACFile) GetSamples() ([]float64, error) {
	if f.samples != nil {
		return f.samples, nil
	}

	maxVal := float64(int(1) << uint(f.bitDepth-1))
	samples := make([]float64, 0, int(f.duration.Seconds()*float64(f.sampleRate))+1)

	for {
		frame, err := f.stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode FLAC frame: %w", err)
		}
		if len(frame.Subframes) < f.channels {
			return nil, fmt.Errorf("FLAC frame has %d subframes, expected %d", len(frame.Subframes), f.channels)
		}

		for i := 0; i < len(frame.Subframes[0].Samples); i++ {
			sum := 0.0
			for ch := 0; ch < f.channels; ch++ {
				sum += float64(frame.Subframes[ch].Samples[i])
			}
			samples = append(samples, sum/float64(f.channels)/maxVal)
		}
	}

	f.samples = samples
	return samples, nil
}

// Close 关闭文件
func (f *FLACFile) Close() error {
	if f.file != nil {
		return f.file.Close()
	}
	return nil
}
