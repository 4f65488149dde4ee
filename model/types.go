package model

import "fmt"

// AudioChunk represents one fixed-size buffer of raw PCM audio.
type AudioChunk []byte

// TranscribedText represents text produced by the transcription service.
type TranscribedText string

// EventKind enumerates what can happen on a streaming connection.
type EventKind int

const (
	Opened EventKind = iota
	Message
	Error
	Closed
)

func (k EventKind) String() string {
	switch k {
	case Opened:
		return "opened"
	case Message:
		return "message"
	case Error:
		return "error"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is delivered on a connection's event channel.
// Text is set for Message, Err for Error.
type Event struct {
	Kind EventKind
	Text TranscribedText
	Err  error
}

func OpenedEvent() Event { return Event{Kind: Opened} }

func MessageEvent(text string) Event {
	return Event{Kind: Message, Text: TranscribedText(text)}
}

func ErrorEvent(err error) Event { return Event{Kind: Error, Err: err} }

func ClosedEvent() Event { return Event{Kind: Closed} }
