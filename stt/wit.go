package stt

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mrsingh-rishi/wit-stream/config"
	"github.com/mrsingh-rishi/wit-stream/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const tokenParam = "access_token"

// eventBuffer is large enough that a burst of transcripts does not stall
// the reader while the consumer prints.
const eventBuffer = 16

var (
	ErrUnknownLanguage = errors.New("API key not found for language")
	ErrDial            = errors.New("websocket dial failed")
	ErrClosed          = errors.New("connection closed")
)

// Dialer opens websocket connections. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Client opens streaming speech connections, one per call to Connect.
type Client struct {
	credentials config.Credentials
	endpoint    string
	dialer      Dialer
	logger      logrus.FieldLogger
}

// NewClient returns a Client for cfg. A nil dialer uses websocket.DefaultDialer.
func NewClient(cfg *config.Config, dialer Dialer, logger logrus.FieldLogger) *Client {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Client{
		credentials: cfg.Credentials,
		endpoint:    cfg.Endpoint,
		dialer:      dialer,
		logger:      logger,
	}
}

// BuildURL returns endpoint with the access token query parameter set to token.
func BuildURL(endpoint, token string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", errors.Wrapf(err, "parse endpoint %q", endpoint)
	}
	q := u.Query()
	q.Set(tokenParam, token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// redact hides the access token so URLs can be logged.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	q := u.Query()
	if q.Has(tokenParam) {
		q.Set(tokenParam, "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Connect dials the endpoint with the credential for language. It does not
// dial at all when the language has no credential.
func (c *Client) Connect(ctx context.Context, language string) (*Conn, error) {
	token, ok := c.credentials.Lookup(language)
	if !ok {
		return nil, errors.Wrap(ErrUnknownLanguage, language)
	}

	target, err := BuildURL(c.endpoint, token)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger := c.logger.WithFields(logrus.Fields{"session": id, "language": language})
	logger.WithField("url", redact(target)).Debug("dialing speech endpoint")

	ws, resp, err := c.dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(ErrDial, "%s: %v (status %s)", redact(target), err, resp.Status)
		}
		return nil, errors.Wrapf(ErrDial, "%s: %v", redact(target), err)
	}
	logger.Info("connected to speech endpoint")

	conn := &Conn{
		id:     id,
		ws:     ws,
		events: make(chan model.Event, eventBuffer),
		closed: make(chan struct{}),
		logger: logger,
	}
	go conn.readLoop()
	return conn, nil
}

// Conn is one open streaming connection. WriteChunk and Close may be
// called from a goroutine other than the one consuming Events.
type Conn struct {
	id     string
	ws     *websocket.Conn
	events chan model.Event
	logger logrus.FieldLogger

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

// ID identifies the connection in logs.
func (c *Conn) ID() string { return c.id }

// Events yields Opened first and Closed last, then is closed.
func (c *Conn) Events() <-chan model.Event { return c.events }

// WriteChunk sends one chunk as a single binary frame.
func (c *Conn) WriteChunk(chunk model.AudioChunk) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
		return errors.Wrap(err, "write audio chunk")
	}
	return nil
}

// Close sends a normal closure frame and closes the socket. Only the
// first call has any effect; later calls return its result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)

		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client shutdown")
		if err := c.ws.WriteMessage(websocket.CloseMessage, msg); err != nil {
			c.logger.WithError(err).Debug("close frame not sent")
		}
		c.writeMu.Unlock()

		if err := c.ws.Close(); err != nil {
			c.closeErr = errors.Wrap(err, "close websocket")
		}
		c.logger.Debug("websocket closed")
	})
	return c.closeErr
}

func (c *Conn) readLoop() {
	defer close(c.events)
	c.emit(model.OpenedEvent())

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.emit(model.ErrorEvent(errors.Wrap(err, "read")))
				} else {
					c.logger.WithError(err).Debug("remote closed connection")
				}
			}
			c.emit(model.ClosedEvent())
			return
		}

		c.logger.WithField("bytes", len(data)).Debug("message received")
		text, ok, err := decodeTranscript(data)
		if err != nil {
			c.emit(model.ErrorEvent(err))
			continue
		}
		if ok {
			c.emit(model.MessageEvent(text))
		}
	}
}

// emit drops the event once the connection has been closed locally and
// nobody is reading any more.
func (c *Conn) emit(ev model.Event) {
	select {
	case c.events <- ev:
	case <-c.closed:
		select {
		case c.events <- ev:
		default:
		}
	}
}

type transcriptMessage struct {
	Text *string `json:"text"`
}

// decodeTranscript reports the text field of a message and whether it was present.
func decodeTranscript(data []byte) (string, bool, error) {
	var msg transcriptMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", false, errors.Wrap(err, "decode transcription message")
	}
	if msg.Text == nil {
		return "", false, nil
	}
	return *msg.Text, true, nil
}
