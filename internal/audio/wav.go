// Package audio holds the in-memory PCM representation used by the speaker
// pipeline: WAV decoding and encoding, mono downmix, time slicing and
// resampling to the embedding model's rate.
package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	formatPCM   = 1
	formatFloat = 3
)

// ErrInvalidWAV is returned for input that is not a decodable RIFF/WAVE stream.
var ErrInvalidWAV = errors.New("audio: invalid wav")

// Audio is decoded PCM normalized to [-1, 1], interleaved by channel.
type Audio struct {
	SampleRate int
	Channels   int
	Samples    []float32
}

// Frames returns the number of samples per channel.
func (a *Audio) Frames() int {
	if a.Channels <= 0 {
		return 0
	}
	return len(a.Samples) / a.Channels
}

// Duration returns the length in seconds.
func (a *Audio) Duration() float64 {
	if a.SampleRate <= 0 {
		return 0
	}
	return float64(a.Frames()) / float64(a.SampleRate)
}

// ReadFile decodes the WAV file at path.
func ReadFile(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a RIFF/WAVE stream. Supported encodings are integer PCM
// (8, 16, 24, 32 bit) and 32-bit IEEE float.
func Decode(r io.ReadSeeker) (*Audio, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE stream with a fmt chunk", ErrInvalidWAV)
	}
	channels, rate := int(d.NumChans), int(d.SampleRate)
	if channels <= 0 || rate <= 0 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrInvalidWAV, channels, rate)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}

	scale, err := sampleScale(d.WavAudioFormat, int(d.BitDepth))
	if err != nil {
		return nil, err
	}
	samples := make([]float32, len(buf.Data)/channels*channels)
	for i := range samples {
		samples[i] = scale(buf.Data[i])
	}
	return &Audio{SampleRate: rate, Channels: channels, Samples: samples}, nil
}

// sampleScale maps a decoded integer sample to [-1, 1].
func sampleScale(format uint16, bits int) (func(int) float32, error) {
	switch {
	case format == formatFloat && bits == 32:
		return func(v int) float32 { return math.Float32frombits(uint32(v)) }, nil
	case bits == 8:
		return func(v int) float32 { return (float32(v) - 128) / 128 }, nil
	case bits == 16:
		return func(v int) float32 { return float32(int16(v)) / 32768 }, nil
	case bits == 24:
		return func(v int) float32 { return float32(v) / 8388608 }, nil
	case bits == 32:
		return func(v int) float32 { return float32(float64(int32(v)) / 2147483648) }, nil
	}
	return nil, fmt.Errorf("%w: unsupported encoding format=%d bits=%d", ErrInvalidWAV, format, bits)
}

// WriteFile encodes a as 16-bit PCM WAV at path.
func (a *Audio) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := a.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Encode writes a as a 16-bit PCM WAV stream. The header is patched once
// the data is written, so w must be seekable.
func (a *Audio) Encode(w io.WriteSeeker) error {
	if a.Channels <= 0 || a.SampleRate <= 0 {
		return fmt.Errorf("audio: cannot encode %d channels at %d Hz", a.Channels, a.SampleRate)
	}

	data := make([]int, len(a.Samples))
	for i, s := range a.Samples {
		data[i] = int(toInt16(s))
	}

	enc := wav.NewEncoder(w, a.SampleRate, 16, a.Channels, formatPCM)
	if err := enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: a.Channels, SampleRate: a.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finish wav: %w", err)
	}
	return nil
}

func toInt16(s float32) int16 {
	switch {
	case s >= 1:
		return math.MaxInt16
	case s <= -1:
		return math.MinInt16
	}
	return int16(s * 32767)
}
