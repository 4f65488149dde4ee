package session

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mrsingh-rishi/wit-stream/audio"
	"github.com/mrsingh-rishi/wit-stream/model"
	"github.com/mrsingh-rishi/wit-stream/stt"
	"github.com/mrsingh-rishi/wit-stream/worker"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const closedNotice = "### Connection closed ###"

//go:generate mockgen -destination=../mocks/mock_session.go -package=mocks github.com/mrsingh-rishi/wit-stream/session Stream,Streamer

// Stream is an open speech connection.
type Stream interface {
	Events() <-chan model.Event
	WriteChunk(chunk model.AudioChunk) error
	Close() error
}

// Streamer opens a Stream for a language code.
type Streamer interface {
	Connect(ctx context.Context, language string) (Stream, error)
}

// StreamerFunc adapts a function to Streamer.
type StreamerFunc func(ctx context.Context, language string) (Stream, error)

func (f StreamerFunc) Connect(ctx context.Context, language string) (Stream, error) {
	return f(ctx, language)
}

// FromClient adapts an stt.Client to Streamer.
func FromClient(client *stt.Client) Streamer {
	return StreamerFunc(func(ctx context.Context, language string) (Stream, error) {
		conn, err := client.Connect(ctx, language)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}

// SourceOpener acquires the audio input once the connection is open.
type SourceOpener func() (audio.Source, error)

type State int

const (
	Idle State = iota
	Connecting
	Streaming
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Streaming:
		return "streaming"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session runs one transcription connection and prints what comes back.
type Session struct {
	streamer Streamer
	open     SourceOpener
	out      io.Writer
	logger   logrus.FieldLogger

	mu    sync.Mutex
	state State
}

func New(streamer Streamer, open SourceOpener, out io.Writer, logger logrus.FieldLogger) *Session {
	return &Session{
		streamer: streamer,
		open:     open,
		out:      out,
		logger:   logger,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()
	s.logger.WithFields(logrus.Fields{"from": prev, "to": state}).Debug("session state")
}

// Run connects for language and blocks until the connection is closed,
// whether by the remote end, a transport error or ctx being cancelled.
// Connection problems are printed and Run returns nil; only failing to
// acquire the audio input is returned as an error.
func (s *Session) Run(ctx context.Context, language string) error {
	language = strings.ToUpper(strings.TrimSpace(language))
	logger := s.logger.WithField("language", language)

	s.setState(Connecting)
	defer s.setState(Closed)

	stream, err := s.streamer.Connect(ctx, language)
	if err != nil {
		if errors.Is(err, stt.ErrUnknownLanguage) {
			fmt.Fprintf(s.out, "API key not found for language: %s\n", language)
			return nil
		}
		fmt.Fprintf(s.out, "Error occurred: %v\n", err)
		fmt.Fprintln(s.out, closedNotice)
		return nil
	}

	var fwd *worker.Forwarder
	events := stream.Events()
	done := ctx.Done()
	interrupted := false

	streamClosed := false
	closeStream := func() {
		if streamClosed {
			return
		}
		streamClosed = true
		if err := stream.Close(); err != nil {
			logger.WithError(err).Warn("closing connection")
		}
	}

	for {
		var ev model.Event
		select {
		case <-done:
			done = nil
			interrupted = true
			logger.Info("interrupted, shutting down")
			if fwd != nil {
				fwd.Stop()
			} else {
				closeStream()
			}
			continue
		case e, ok := <-events:
			if !ok {
				e = model.ClosedEvent()
			}
			ev = e
		}

		switch ev.Kind {
		case model.Opened:
			// Already streaming, or interrupted before the socket opened.
			if fwd != nil || interrupted {
				continue
			}
			source, err := s.open()
			if err != nil {
				closeStream()
				return errors.Wrap(err, "open audio input")
			}
			fwd = worker.NewForwarder(source, stream, logger)
			if err := fwd.Start(); err != nil {
				// The forwarder's cleanup has already closed the stream.
				streamClosed = true
				return err
			}
			s.setState(Streaming)
			fmt.Fprintln(s.out, "Streaming audio...")

		case model.Message:
			fmt.Fprintf(s.out, "Transcribed text: %s\n", ev.Text)

		case model.Error:
			fmt.Fprintf(s.out, "Error occurred: %v\n", ev.Err)

		case model.Closed:
			fmt.Fprintln(s.out, closedNotice)
			if fwd == nil {
				closeStream()
				return nil
			}
			fwd.Stop()
			<-fwd.Done()
			if err := fwd.Err(); err != nil {
				logger.WithError(err).Warn("audio forwarding ended with error")
			}
			logger.WithField("chunks", fwd.Forwarded()).Debug("forwarding finished")
			fmt.Fprintln(s.out, "Audio stream stopped.")
			return nil
		}
	}
}
