package audio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nguyentantai21042004/meeting-flow/internal/logger"
)

func sine(rate int, seconds float64, freq float64) *Audio {
	n := int(float64(rate) * seconds)
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return &Audio{SampleRate: rate, Channels: 1, Samples: s}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := sine(16000, 0.25, 440)

	f, err := os.Create(filepath.Join(t.TempDir(), "round.wav"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := in.Encode(f); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	out, err := Decode(f)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if out.SampleRate != 16000 || out.Channels != 1 {
		t.Fatalf("format = %d Hz x%d, want 16000 x1", out.SampleRate, out.Channels)
	}
	if len(out.Samples) != len(in.Samples) {
		t.Fatalf("len = %d, want %d", len(out.Samples), len(in.Samples))
	}
	for i := range in.Samples {
		if d := math.Abs(float64(in.Samples[i] - out.Samples[i])); d > 1.0/16384 {
			t.Fatalf("sample %d = %v, want %v", i, out.Samples[i], in.Samples[i])
		}
	}
}

func TestDecodeInvalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not riff", []byte("this is not a wav file at all")},
		{"riff without data", append([]byte("RIFF\x04\x00\x00\x00WAVE"), []byte{}...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data))
			if !errors.Is(err, ErrInvalidWAV) {
				t.Errorf("Decode() error = %v, want ErrInvalidWAV", err)
			}
		})
	}
}

func TestMono(t *testing.T) {
	st := &Audio{SampleRate: 8000, Channels: 2, Samples: []float32{0.2, 0.4, -1, 1, 0.5, 0.5}}
	m := st.Mono()
	want := []float32{0.3, 0, 0.5}
	if m.Channels != 1 || len(m.Samples) != len(want) {
		t.Fatalf("Mono() = %+v", m)
	}
	for i, w := range want {
		if math.Abs(float64(m.Samples[i]-w)) > 1e-6 {
			t.Errorf("Mono()[%d] = %v, want %v", i, m.Samples[i], w)
		}
	}
}

func TestSlice(t *testing.T) {
	a := &Audio{SampleRate: 10, Channels: 1, Samples: make([]float32, 30)}
	for i := range a.Samples {
		a.Samples[i] = float32(i)
	}

	tests := []struct {
		name       string
		start, end float64
		wantLen    int
		wantFirst  float32
	}{
		{"middle", 1.0, 2.0, 10, 10},
		{"truncates offsets", 0.15, 0.55, 4, 1},
		{"clamps end", 2.5, 9.0, 5, 25},
		{"clamps negative start", -1, 0.3, 3, 0},
		{"inverted range", 2.0, 1.0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := a.Slice(tt.start, tt.end)
			if len(s.Samples) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(s.Samples), tt.wantLen)
			}
			if tt.wantLen > 0 && s.Samples[0] != tt.wantFirst {
				t.Errorf("first = %v, want %v", s.Samples[0], tt.wantFirst)
			}
		})
	}
}

func TestResample(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		seconds  float64
	}{
		{"upsample", 8000, 16000, 1.0},
		{"downsample short clip", 44100, 16000, 0.05},
		{"downsample", 48000, 16000, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := sine(tt.from, tt.seconds, 220)
			out, err := in.Resample(tt.to)
			if err != nil {
				t.Fatalf("Resample() error = %v", err)
			}
			if out.SampleRate != tt.to {
				t.Errorf("SampleRate = %d, want %d", out.SampleRate, tt.to)
			}
			want := int(math.Round(tt.seconds * float64(tt.to)))
			if got := out.Frames(); got < want*97/100 || got > want {
				t.Errorf("Frames() = %d, want about %d", got, want)
			}
		})
	}

	in := sine(8000, 1.0, 220)
	same, err := in.Resample(8000)
	if err != nil || len(same.Samples) != len(in.Samples) {
		t.Errorf("Resample() to same rate changed length: %v", err)
	}

	if _, err := in.Resample(0); err == nil {
		t.Error("Resample(0) should fail")
	}
}

func TestResampleKeepsChannelsApart(t *testing.T) {
	left := sine(44100, 0.2, 440)
	st := &Audio{SampleRate: 44100, Channels: 2, Samples: make([]float32, 2*len(left.Samples))}
	for i, s := range left.Samples {
		st.Samples[2*i] = s
	}

	out, err := st.Resample(16000)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	if out.Channels != 2 || len(out.Samples)%2 != 0 {
		t.Fatalf("Resample() = %d channels, %d samples", out.Channels, len(out.Samples))
	}

	var l, r float64
	for i := 0; i < out.Frames(); i++ {
		l += float64(out.Samples[2*i] * out.Samples[2*i])
		r += float64(out.Samples[2*i+1] * out.Samples[2*i+1])
	}
	if l == 0 || r > l*1e-3 {
		t.Errorf("channel energy L=%v R=%v, want silent right channel", l, r)
	}
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := sine(16000, 0.1, 300).WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	a, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if a.Frames() != 1600 {
		t.Errorf("Frames() = %d, want 1600", a.Frames())
	}
}

type fakeExecutor struct {
	name string
	args []string
	err  error
}

func (f *fakeExecutor) Execute(ctx context.Context, name string, args ...string) (string, error) {
	f.name, f.args = name, args
	return "", f.err
}

func (f *fakeExecutor) ExecuteInDir(ctx context.Context, dir, name string, args ...string) (string, error) {
	return f.Execute(ctx, name, args...)
}

func TestNormalize(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	in := filepath.Join(dir, "meeting.m4a")
	if err := os.WriteFile(in, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	exec := &fakeExecutor{}
	n := NewNormalizer(exec, "ffmpeg", 16000, logger.NewNop())

	out, err := n.Normalize(ctx, in, "")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if want := filepath.Join(dir, "meeting_normalized.wav"); out != want {
		t.Errorf("Normalize() = %q, want %q", out, want)
	}
	if got := strings.Join(exec.args, " "); !strings.Contains(got, "-ar 16000 -ac 1") {
		t.Errorf("ffmpeg args = %q", got)
	}

	if _, err := n.Normalize(ctx, filepath.Join(dir, "missing.wav"), ""); err == nil {
		t.Error("Normalize() should fail for a missing input")
	}

	exec.err = errors.New("exit status 1")
	if _, err := n.Normalize(ctx, in, filepath.Join(dir, "out.wav")); err == nil {
		t.Error("Normalize() should surface ffmpeg failures")
	}
}
