package audio

import (
	"encoding/binary"
	"time"

	"github.com/mrsingh-rishi/wit-stream/model"
	"github.com/pkg/errors"
)

// BytesPerSample is fixed: signed 16-bit little-endian PCM.
const BytesPerSample = 2

var (
	ErrDeviceNotFound = errors.New("audio device not found")
	ErrInvalidFormat  = errors.New("invalid audio format")
)

//go:generate mockgen -destination=../mocks/mock_audio.go -package=mocks github.com/mrsingh-rishi/wit-stream/audio Source

// Source produces fixed-size chunks of raw audio.
//
// Read blocks until a whole chunk is available. Stop halts capture and
// Close releases the underlying device; callers invoke them in that order.
type Source interface {
	ChunkSize() int
	Start() error
	Read() (model.AudioChunk, error)
	Stop() error
	Close() error
}

// Format describes the PCM stream a Source produces.
type Format struct {
	SampleRate      int
	Channels        int
	FramesPerBuffer int
}

func (f Format) Validate() error {
	if f.SampleRate <= 0 || f.Channels <= 0 || f.FramesPerBuffer <= 0 {
		return errors.Wrapf(ErrInvalidFormat, "%+v", f)
	}
	return nil
}

// Samples is the number of int16 samples in one chunk.
func (f Format) Samples() int { return f.FramesPerBuffer * f.Channels }

// ChunkSize is the number of bytes in one chunk.
func (f Format) ChunkSize() int { return f.Samples() * BytesPerSample }

// Duration is how much audio one chunk holds.
func (f Format) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(f.FramesPerBuffer) * time.Second / time.Duration(f.SampleRate)
}

// EncodePCM16 writes samples into dst as little-endian int16 and returns
// the number of bytes written. It stops early if dst is too small.
func EncodePCM16(dst []byte, samples []int16) int {
	n := 0
	for _, s := range samples {
		if n+BytesPerSample > len(dst) {
			break
		}
		binary.LittleEndian.PutUint16(dst[n:], uint16(s))
		n += BytesPerSample
	}
	return n
}
