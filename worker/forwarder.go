package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/mrsingh-rishi/wit-stream/audio"
	"github.com/mrsingh-rishi/wit-stream/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -destination=../mocks/mock_worker.go -package=mocks github.com/mrsingh-rishi/wit-stream/worker ChunkSink

// ChunkSink receives audio chunks and is closed once forwarding ends.
type ChunkSink interface {
	WriteChunk(chunk model.AudioChunk) error
	Close() error
}

// Forwarder reads chunks from an audio source and writes them to a sink
// until it is stopped or either side fails.
type Forwarder struct {
	source audio.Source
	sink   ChunkSink
	logger logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	startOnce sync.Once
	startErr  error
	err       error
	forwarded atomic.Int64
}

func NewForwarder(source audio.Source, sink ChunkSink, logger logrus.FieldLogger) *Forwarder {
	ctx, cancel := context.WithCancel(context.Background())
	return &Forwarder{
		source: source,
		sink:   sink,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start starts the source and the forwarding loop in its own goroutine.
// If the source cannot start, cleanup runs immediately, Done is closed and
// the error is returned. Later calls return the first result.
func (f *Forwarder) Start() error {
	f.startOnce.Do(func() {
		if err := f.source.Start(); err != nil {
			f.startErr = errors.Wrap(err, "start audio source")
			f.err = f.startErr
			f.cleanup()
			close(f.done)
			return
		}
		go f.process()
	})
	return f.startErr
}

// Stop asks the loop to exit. The current Read finishes first.
func (f *Forwarder) Stop() {
	f.cancel()
}

// Done is closed after the source has been released and the sink closed.
func (f *Forwarder) Done() <-chan struct{} { return f.done }

// Err is the reason the loop ended; nil when it was stopped. Valid after Done.
func (f *Forwarder) Err() error { return f.err }

// Forwarded is the number of chunks written so far.
func (f *Forwarder) Forwarded() int64 { return f.forwarded.Load() }

func (f *Forwarder) process() {
	defer close(f.done)
	defer f.cleanup()

	size := f.source.ChunkSize()
	for {
		select {
		case <-f.ctx.Done():
			return
		default:
		}

		chunk, err := f.source.Read()
		if err != nil {
			f.err = errors.Wrap(err, "read audio")
			return
		}
		if len(chunk) != size {
			f.logger.WithFields(logrus.Fields{"bytes": len(chunk), "want": size}).Warn("dropping audio chunk of wrong size")
			continue
		}

		// A stop that arrived during Read wins over sending.
		select {
		case <-f.ctx.Done():
			return
		default:
		}

		if err := f.sink.WriteChunk(chunk); err != nil {
			f.err = errors.Wrap(err, "forward audio")
			return
		}
		f.forwarded.Add(1)
	}
}

// cleanup releases resources in a fixed order: stop the stream, close it
// (releasing the device), then close the sink.
func (f *Forwarder) cleanup() {
	f.cancel()
	if err := f.source.Stop(); err != nil {
		f.logger.WithError(err).Warn("stopping audio source")
	}
	if err := f.source.Close(); err != nil {
		f.logger.WithError(err).Warn("closing audio source")
	}
	if err := f.sink.Close(); err != nil {
		f.logger.WithError(err).Warn("closing connection")
	}
	f.logger.WithField("chunks", f.forwarded.Load()).Info("audio stream stopped")
}
