package audio

import (
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestFormatChunkSize(t *testing.T) {
	tests := []struct {
		format Format
		size   int
		dur    time.Duration
	}{
		{Format{SampleRate: 16000, Channels: 1, FramesPerBuffer: 1024}, 2048, 64 * time.Millisecond},
		{Format{SampleRate: 8000, Channels: 2, FramesPerBuffer: 800}, 3200, 100 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := tt.format.ChunkSize(); got != tt.size {
			t.Errorf("%+v ChunkSize() = %d, want %d", tt.format, got, tt.size)
		}
		if got := tt.format.Duration(); got != tt.dur {
			t.Errorf("%+v Duration() = %v, want %v", tt.format, got, tt.dur)
		}
	}
}

func TestFormatValidate(t *testing.T) {
	if err := (Format{SampleRate: 16000, Channels: 1, FramesPerBuffer: 1024}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := Format{SampleRate: 16000, Channels: 0, FramesPerBuffer: 1024}.Validate()
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestEncodePCM16(t *testing.T) {
	dst := make([]byte, 6)
	n := EncodePCM16(dst, []int16{1, -1, 0x1234})
	if n != 6 {
		t.Fatalf("wrote %d bytes, want 6", n)
	}
	want := []byte{0x01, 0x00, 0xff, 0xff, 0x34, 0x12}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %#x, want %#x", i, dst[i], want[i])
		}
	}
}

func TestEncodePCM16ShortBuffer(t *testing.T) {
	dst := make([]byte, 3)
	if n := EncodePCM16(dst, []int16{1, 2}); n != 2 {
		t.Errorf("wrote %d bytes, want 2", n)
	}
}
