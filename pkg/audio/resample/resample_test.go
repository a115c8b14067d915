// ABOUTME: Tests for audio resampler and buffer conversion
// ABOUTME: Tests interpolation, output lengths and channel remapping
package resample

import (
	"testing"

	"github.com/soundflex/soundflex-go/pkg/audio"
)

func TestNew(t *testing.T) {
	r := New(44100, 48000, 2)

	if r == nil {
		t.Fatal("expected resampler to be created")
	}
	if r.inputRate != 44100 {
		t.Errorf("expected inputRate 44100, got %d", r.inputRate)
	}
	if r.outputRate != 48000 {
		t.Errorf("expected outputRate 48000, got %d", r.outputRate)
	}
	if r.channels != 2 {
		t.Errorf("expected channels 2, got %d", r.channels)
	}
}

func TestResampleIdentityRate(t *testing.T) {
	r := New(48000, 48000, 1)

	input := []int32{0, 100, 200, 300, 400}
	output := make([]int32, len(input))

	n := r.Resample(input, output)

	// Last frame has no successor to interpolate towards
	if n != len(input)-1 {
		t.Fatalf("expected %d samples, got %d", len(input)-1, n)
	}
	for i := 0; i < n; i++ {
		if output[i] != input[i] {
			t.Errorf("sample %d: expected %d, got %d", i, input[i], output[i])
		}
	}
}

func TestResampleUpsamplingInterpolates(t *testing.T) {
	r := New(1, 2, 1)

	input := []int32{0, 100, 200}
	output := make([]int32, 6)

	n := r.Resample(input, output)
	if n != 4 {
		t.Fatalf("expected 4 samples, got %d", n)
	}

	expected := []int32{0, 50, 100, 150}
	for i, want := range expected {
		if output[i] != want {
			t.Errorf("sample %d: expected %d, got %d", i, want, output[i])
		}
	}
}

func TestResampleEmptyInput(t *testing.T) {
	r := New(44100, 48000, 2)
	if n := r.Resample(nil, make([]int32, 10)); n != 0 {
		t.Errorf("expected 0 samples, got %d", n)
	}
}

func TestOutputSamplesNeeded(t *testing.T) {
	r := New(24000, 48000, 2)
	if got := r.OutputSamplesNeeded(200); got != 400 {
		t.Errorf("expected 400, got %d", got)
	}
}

func TestConvertRateLength(t *testing.T) {
	tests := []struct {
		name       string
		inRate     int
		outRate    int
		inFrames   int
		wantFrames int
	}{
		{"upsample", 22050, 44100, 1000, 2000},
		{"downsample", 48000, 44100, 4800, 4410},
		{"odd ratio", 44100, 48000, 441, 480},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := audio.NewSilence(audio.Format{SampleRate: tt.inRate, Channels: 2}, tt.inFrames)
			for i := range buf.Samples {
				buf.Samples[i] = 1000
			}

			out := Convert(buf, tt.outRate, 0)

			if out.Format.SampleRate != tt.outRate {
				t.Errorf("expected rate %d, got %d", tt.outRate, out.Format.SampleRate)
			}
			if out.Frames() != tt.wantFrames {
				t.Errorf("expected %d frames, got %d", tt.wantFrames, out.Frames())
			}
			for i, s := range out.Samples {
				if s != 1000 {
					t.Fatalf("sample %d: expected constant 1000, got %d", i, s)
				}
			}
		})
	}
}

func TestConvertChannels(t *testing.T) {
	mono := &audio.Buffer{
		Samples: []int32{10, 20, 30},
		Format:  audio.Format{SampleRate: 100, Channels: 1},
	}

	stereo := Convert(mono, 0, 2)
	expected := []int32{10, 10, 20, 20, 30, 30}
	if len(stereo.Samples) != len(expected) {
		t.Fatalf("expected %d samples, got %d", len(expected), len(stereo.Samples))
	}
	for i, want := range expected {
		if stereo.Samples[i] != want {
			t.Errorf("stereo sample %d: expected %d, got %d", i, want, stereo.Samples[i])
		}
	}

	back := Convert(&audio.Buffer{
		Samples: []int32{10, 30, -4, 4},
		Format:  audio.Format{SampleRate: 100, Channels: 2},
	}, 0, 1)
	if back.Samples[0] != 20 || back.Samples[1] != 0 {
		t.Errorf("expected downmix [20 0], got %v", back.Samples)
	}
}

func TestConvertNoop(t *testing.T) {
	buf := audio.NewSilence(audio.Format{SampleRate: 44100, Channels: 2}, 10)
	if out := Convert(buf, 44100, 2); out != buf {
		t.Error("expected the same buffer when no conversion is needed")
	}
}
