// ABOUTME: Tests for audio types
// ABOUTME: Tests sample conversion, slicing and saturating mix helpers
package audio

import (
	"errors"
	"math"
	"testing"
)

func TestSampleFromInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int16
		expected int32
	}{
		{"zero", 0, 0},
		{"positive", 100, 100 << 8},
		{"negative", -100, -100 << 8},
		{"max", 32767, 32767 << 8},
		{"min", -32768, -32768 << 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFromInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestSampleToInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int32
		expected int16
	}{
		{"zero", 0, 0},
		{"positive", 100 << 8, 100},
		{"negative", -100 << 8, -100},
		{"24bit positive", 1000000, 3906}, // 1000000 >> 8 = 3906
		{"24bit negative", -1000000, -3907},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleToInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestSampleTo24Bit(t *testing.T) {
	tests := []struct {
		name     string
		input    int32
		expected [3]byte
	}{
		{"zero", 0, [3]byte{0, 0, 0}},
		{"positive", 0x123456, [3]byte{0x56, 0x34, 0x12}},
		{"negative", -256, [3]byte{0x00, 0xFF, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleTo24Bit(tt.input)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestSampleFrom24Bit(t *testing.T) {
	tests := []struct {
		name     string
		input    [3]byte
		expected int32
	}{
		{"zero", [3]byte{0, 0, 0}, 0},
		{"positive", [3]byte{0x56, 0x34, 0x12}, 0x123456},
		{"negative", [3]byte{0x00, 0xFF, 0xFF}, -256},
		{"max positive", [3]byte{0xFF, 0xFF, 0x7F}, Max24Bit},
		{"max negative", [3]byte{0x00, 0x00, 0x80}, Min24Bit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SampleFrom24Bit(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestRoundTrip16Bit(t *testing.T) {
	// Test that 16-bit samples survive round-trip conversion
	samples := []int16{0, 100, -100, 1000, -1000, 32767, -32768}

	for _, original := range samples {
		sample32 := SampleFromInt16(original)
		result := SampleToInt16(sample32)
		if result != original {
			t.Errorf("round-trip failed: %d -> %d -> %d", original, sample32, result)
		}
	}
}

func TestRoundTrip24Bit(t *testing.T) {
	// Test that 24-bit samples survive round-trip conversion
	samples := []int32{0, 100000, -100000, Max24Bit, Min24Bit}

	for _, original := range samples {
		bytes := SampleTo24Bit(original)
		result := SampleFrom24Bit(bytes)
		// Mask to 24-bit for comparison
		expected := original & 0xFFFFFF
		if expected&0x800000 != 0 {
			expected |= ^0xFFFFFF
		}
		if result != expected {
			t.Errorf("round-trip failed: %d -> %v -> %d (expected %d)", original, bytes, result, expected)
		}
	}
}

func TestBufferFramesAndSeconds(t *testing.T) {
	buf := NewSilence(Format{SampleRate: 1000, Channels: 2}, 1500)

	if buf.Frames() != 1500 {
		t.Errorf("expected 1500 frames, got %d", buf.Frames())
	}
	if len(buf.Samples) != 3000 {
		t.Errorf("expected 3000 samples, got %d", len(buf.Samples))
	}
	if buf.Seconds() != 1.5 {
		t.Errorf("expected 1.5s, got %f", buf.Seconds())
	}

	var nilBuf *Buffer
	if nilBuf.Frames() != 0 || nilBuf.Seconds() != 0 {
		t.Error("nil buffer should report zero length")
	}
}

func TestBufferSlice(t *testing.T) {
	buf := NewSilence(Format{SampleRate: 100, Channels: 1}, 100)
	for i := range buf.Samples {
		buf.Samples[i] = int32(i)
	}

	tests := []struct {
		name      string
		start     float64
		end       float64
		wantFirst int32
		wantLen   int
		wantErr   bool
	}{
		{"middle", 0.1, 0.3, 10, 20, false},
		{"whole", 0, 1, 0, 100, false},
		{"clamped end", 0.5, 5, 50, 50, false},
		{"clamped start past end", 2, 3, 0, 0, false},
		{"empty", 0.2, 0.2, 0, 0, false},
		{"negative start", -0.1, 0.5, 0, 0, true},
		{"start after end", 0.5, 0.4, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := buf.Slice(tt.start, tt.end)
			if tt.wantErr {
				if !errors.Is(err, ErrRange) {
					t.Fatalf("expected ErrRange, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Frames() != tt.wantLen {
				t.Errorf("expected %d frames, got %d", tt.wantLen, out.Frames())
			}
			if tt.wantLen > 0 && out.Samples[0] != tt.wantFirst {
				t.Errorf("expected first sample %d, got %d", tt.wantFirst, out.Samples[0])
			}
		})
	}
}

func TestSliceDoesNotClobberSource(t *testing.T) {
	buf := NewSilence(Format{SampleRate: 10, Channels: 1}, 10)
	head, err := buf.Slice(0, 0.5)
	if err != nil {
		t.Fatalf("slice failed: %v", err)
	}

	_ = append(head.Samples, 99)

	if buf.Samples[5] != 0 {
		t.Errorf("append through slice modified source: %d", buf.Samples[5])
	}
}

func TestMixInto(t *testing.T) {
	tests := []struct {
		name     string
		dst      []int32
		src      []int32
		offset   int
		expected []int32
	}{
		{"add at start", []int32{1, 2, 3}, []int32{10, 10}, 0, []int32{11, 12, 3}},
		{"add with offset", []int32{0, 0, 0, 0}, []int32{5, 6}, 2, []int32{0, 0, 5, 6}},
		{"truncate at end", []int32{0, 0, 0}, []int32{1, 2, 3}, 2, []int32{0, 0, 1}},
		{"offset past end", []int32{0, 0}, []int32{1}, 5, []int32{0, 0}},
		{"saturate positive", []int32{Max24Bit - 1}, []int32{10}, 0, []int32{Max24Bit}},
		{"saturate negative", []int32{Min24Bit + 1}, []int32{-10}, 0, []int32{Min24Bit}},
		{"negative offset", []int32{0, 0, 0}, []int32{1, 2, 3}, -1, []int32{2, 3, 0}},
		{"offset before source", []int32{0, 0}, []int32{1}, -5, []int32{0, 0}},
		{"minimum int offset", []int32{0, 0}, []int32{1, 2}, math.MinInt, []int32{0, 0}},
		{"maximum int offset", []int32{0, 0}, []int32{1, 2}, math.MaxInt, []int32{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			MixInto(tt.dst, tt.src, tt.offset)
			for i := range tt.expected {
				if tt.dst[i] != tt.expected[i] {
					t.Errorf("sample %d: expected %d, got %d", i, tt.expected[i], tt.dst[i])
				}
			}
		})
	}
}

func TestFrameAt(t *testing.T) {
	format := Format{SampleRate: 1000, Channels: 2}

	tests := []struct {
		name     string
		seconds  float64
		expected int
	}{
		{"zero", 0, 0},
		{"rounds to nearest", 0.0015, 2},
		{"negative", -0.25, -250},
		{"huge", 1e300, math.MaxInt},
		{"huge negative", -1e300, math.MinInt},
		{"positive infinity", math.Inf(1), math.MaxInt},
		{"NaN", math.NaN(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := format.FrameAt(tt.seconds); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestScaleBitDepth(t *testing.T) {
	tests := []struct {
		name     string
		sample   int32
		bitDepth int
		expected int32
	}{
		{"8-bit", 1, 8, 1 << 16},
		{"16-bit", -100, 16, -100 << 8},
		{"24-bit", 12345, 24, 12345},
		{"32-bit", 1 << 20, 32, 1 << 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scaled := ScaleTo24Bit(tt.sample, tt.bitDepth)
			if scaled != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, scaled)
			}
			if back := ScaleFrom24Bit(scaled, tt.bitDepth); back != tt.sample {
				t.Errorf("round trip: expected %d, got %d", tt.sample, back)
			}
		})
	}
}
