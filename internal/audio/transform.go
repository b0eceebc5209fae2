package audio

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Mono averages all channels into one. A mono input is returned as is.
func (a *Audio) Mono() *Audio {
	if a.Channels == 1 {
		return a
	}
	frames := a.Frames()
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < a.Channels; c++ {
			sum += a.Samples[i*a.Channels+c]
		}
		out[i] = sum / float32(a.Channels)
	}
	return &Audio{SampleRate: a.SampleRate, Channels: 1, Samples: out}
}

// Slice returns the frames in [start, end) seconds, clamped to the audio.
// Sample offsets are truncated toward zero. The result shares no memory with a.
func (a *Audio) Slice(start, end float64) *Audio {
	frames := a.Frames()
	from := clamp(int(start*float64(a.SampleRate)), 0, frames)
	to := clamp(int(end*float64(a.SampleRate)), from, frames)

	out := make([]float32, (to-from)*a.Channels)
	copy(out, a.Samples[from*a.Channels:to*a.Channels])
	return &Audio{SampleRate: a.SampleRate, Channels: a.Channels, Samples: out}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Resample converts a to rate Hz. Each channel is resampled on its own and
// the result is interleaved again, truncated to the shortest channel.
func (a *Audio) Resample(rate int) (*Audio, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("audio: invalid target rate %d", rate)
	}
	if rate == a.SampleRate || len(a.Samples) == 0 {
		return &Audio{SampleRate: rate, Channels: a.Channels, Samples: a.Samples}, nil
	}

	frames := a.Frames()
	want := int(math.Round(float64(frames) * float64(rate) / float64(a.SampleRate)))

	channels := make([][]float64, a.Channels)
	n := want
	for c := range channels {
		in := make([]float64, frames)
		for i := range in {
			in[i] = float64(a.Samples[i*a.Channels+c])
		}
		res, err := resampleChannel(in, a.SampleRate, rate)
		if err != nil {
			return nil, fmt.Errorf("resample %d -> %d Hz: %w", a.SampleRate, rate, err)
		}
		channels[c] = res
		n = min(n, len(res))
	}

	out := make([]float32, n*a.Channels)
	for i := 0; i < n; i++ {
		for c, ch := range channels {
			out[i*a.Channels+c] = float32(ch[i])
		}
	}
	return &Audio{SampleRate: rate, Channels: a.Channels, Samples: out}, nil
}

// resampleChannel runs one mono stream through the filter and flushes its tail.
func resampleChannel(in []float64, from, to int) ([]float64, error) {
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("create resampler: %w", err)
	}
	out, err := rs.Process(in)
	if err != nil {
		return nil, err
	}
	tail, err := rs.Flush()
	if err != nil {
		return nil, err
	}
	return append(out, tail...), nil
}
