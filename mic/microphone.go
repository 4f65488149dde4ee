// Package mic captures audio from a PortAudio input device.
package mic

import (
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/mrsingh-rishi/wit-stream/audio"
	"github.com/mrsingh-rishi/wit-stream/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Microphone is an audio.Source reading blocking buffers from PortAudio.
type Microphone struct {
	format audio.Format
	device audio.Device
	buffer []int16
	stream *portaudio.Stream
	logger logrus.FieldLogger

	closeOnce sync.Once
	closeErr  error
}

var _ audio.Source = (*Microphone)(nil)

// Open initializes PortAudio and opens an input stream on the device
// described by spec (see audio.SelectDevice). The stream is not started.
func Open(format audio.Format, spec string, logger logrus.FieldLogger) (*Microphone, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, errors.Wrap(err, "initialize portaudio")
	}

	infos, err := portaudio.Devices()
	if err != nil {
		portaudio.Terminate()
		return nil, errors.Wrap(err, "list devices")
	}
	var def *portaudio.DeviceInfo
	if d, err := portaudio.DefaultInputDevice(); err == nil {
		def = d
	}
	devices := toDevices(infos, def)

	device, err := audio.SelectDevice(devices, spec)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	params := portaudio.LowLatencyParameters(infos[device.Index], nil)
	params.Input.Channels = format.Channels
	params.SampleRate = float64(format.SampleRate)
	params.FramesPerBuffer = format.FramesPerBuffer

	buffer := make([]int16, format.Samples())
	stream, err := portaudio.OpenStream(params, buffer)
	if err != nil {
		portaudio.Terminate()
		return nil, errors.Wrapf(err, "open stream on %q", device.Name)
	}

	logger.WithFields(logrus.Fields{
		"device":      device.Name,
		"sample_rate": format.SampleRate,
		"chunk_bytes": format.ChunkSize(),
	}).Debug("audio input opened")

	return &Microphone{
		format: format,
		device: device,
		buffer: buffer,
		stream: stream,
		logger: logger,
	}, nil
}

func (m *Microphone) ChunkSize() int { return m.format.ChunkSize() }

func (m *Microphone) Device() audio.Device { return m.device }

func (m *Microphone) Start() error {
	return errors.Wrap(m.stream.Start(), "start stream")
}

// Read blocks until one buffer has been captured.
func (m *Microphone) Read() (model.AudioChunk, error) {
	if err := m.stream.Read(); err != nil {
		// Overflow drops samples but the buffer is still whole.
		if err != portaudio.InputOverflowed {
			return nil, errors.Wrap(err, "read stream")
		}
		m.logger.Warn("audio input overflowed")
	}
	chunk := make(model.AudioChunk, m.format.ChunkSize())
	audio.EncodePCM16(chunk, m.buffer)
	return chunk, nil
}

func (m *Microphone) Stop() error {
	return errors.Wrap(m.stream.Stop(), "stop stream")
}

// Close closes the stream and releases PortAudio. Safe to call twice.
func (m *Microphone) Close() error {
	m.closeOnce.Do(func() {
		if err := m.stream.Close(); err != nil {
			m.closeErr = errors.Wrap(err, "close stream")
		}
		if err := portaudio.Terminate(); err != nil && m.closeErr == nil {
			m.closeErr = errors.Wrap(err, "terminate portaudio")
		}
	})
	return m.closeErr
}

// InputDevices lists every device with at least one input channel.
func InputDevices() ([]audio.Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, errors.Wrap(err, "initialize portaudio")
	}
	defer portaudio.Terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, errors.Wrap(err, "list devices")
	}
	var def *portaudio.DeviceInfo
	if d, err := portaudio.DefaultInputDevice(); err == nil {
		def = d
	}
	return toDevices(infos, def), nil
}

func toDevices(infos []*portaudio.DeviceInfo, def *portaudio.DeviceInfo) []audio.Device {
	var devices []audio.Device
	for i, info := range infos {
		if info.MaxInputChannels <= 0 {
			continue
		}
		devices = append(devices, audio.Device{
			Index:      i,
			Name:       info.Name,
			Channels:   info.MaxInputChannels,
			SampleRate: info.DefaultSampleRate,
			Default:    def != nil && info.Name == def.Name && info.MaxInputChannels == def.MaxInputChannels,
		})
	}
	return devices
}
