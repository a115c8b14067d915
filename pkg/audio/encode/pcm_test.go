// ABOUTME: Unit tests for PCM encoder
// ABOUTME: Tests 16-bit and 24-bit PCM encoding
package encode

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/soundflex/soundflex-go/pkg/audio"
)

func TestNewPCM(t *testing.T) {
	tests := []struct {
		name        string
		bitDepth    int
		wantErr     bool
		errContains string
	}{
		{name: "valid 16-bit PCM", bitDepth: 16},
		{name: "valid 24-bit PCM", bitDepth: 24},
		{name: "unsupported bit depth", bitDepth: 32, wantErr: true, errContains: "unsupported bit depth"},
		{name: "zero bit depth", bitDepth: 0, wantErr: true, errContains: "unsupported bit depth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoder, err := NewPCM(tt.bitDepth)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewPCM() expected error, got nil")
				} else if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("NewPCM() error = %v, want error containing %v", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Errorf("NewPCM() unexpected error = %v", err)
			}
			if encoder == nil {
				t.Errorf("NewPCM() returned nil encoder")
			}
		})
	}
}

func TestPCMEncoder_Encode16Bit(t *testing.T) {
	encoder, err := NewPCM(16)
	if err != nil {
		t.Fatalf("NewPCM() failed: %v", err)
	}
	defer encoder.Close()

	samples := []int32{
		0,         // silence
		0x7FFF00,  // max positive 16-bit (left-justified in 24-bit)
		-0x800000, // max negative 16-bit (left-justified in 24-bit)
		0x123400,  // arbitrary positive value
		-0x567800, // arbitrary negative value
	}

	output, err := encoder.Encode(samples)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	if len(output) != len(samples)*2 {
		t.Errorf("Encode() output size = %d, want %d", len(output), len(samples)*2)
	}

	for i, sample := range samples {
		expected := audio.SampleToInt16(sample)
		actual := int16(binary.LittleEndian.Uint16(output[i*2:]))
		if actual != expected {
			t.Errorf("Sample %d: got %d, want %d", i, actual, expected)
		}
	}
}

func TestPCMEncoder_Encode24Bit(t *testing.T) {
	encoder, err := NewPCM(24)
	if err != nil {
		t.Fatalf("NewPCM() failed: %v", err)
	}
	defer encoder.Close()

	samples := []int32{0, 0x7FFFFF, -0x800000, 0x123456, -0x567890}

	output, err := encoder.Encode(samples)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	if len(output) != len(samples)*3 {
		t.Errorf("Encode() output size = %d, want %d", len(output), len(samples)*3)
	}

	for i, sample := range samples {
		expected := audio.SampleTo24Bit(sample)
		actual := [3]byte{output[i*3], output[i*3+1], output[i*3+2]}
		if actual != expected {
			t.Errorf("Sample %d: got %v, want %v", i, actual, expected)
		}
	}
}

func TestPCMEncoder_Close(t *testing.T) {
	encoder, err := NewPCM(16)
	if err != nil {
		t.Fatalf("NewPCM() failed: %v", err)
	}

	if err := encoder.Close(); err != nil {
		t.Errorf("Close() unexpected error = %v", err)
	}
}
