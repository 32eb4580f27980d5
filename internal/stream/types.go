package stream

import (
	"errors"
	"time"

	"github.com/rickgao/treasury-basis/internal/api"
	"github.com/rickgao/treasury-basis/internal/model"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no messages)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrNoSession       = errors.New("gateway returned no session token")
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// QuoteHandler receives merged quote updates.
type QuoteHandler interface {
	HandleQuote(q model.Quote)
}

// QuoteHandlerFunc is a function adapter for QuoteHandler.
type QuoteHandlerFunc func(model.Quote)

func (f QuoteHandlerFunc) HandleQuote(q model.Quote) {
	f(q)
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL                string        // e.g. wss://localhost:5000/v1/api/ws
	Session            string        // Session token sent as the api cookie
	InsecureSkipVerify bool          // Gateway serves a self-signed certificate
	KeepaliveInterval  time.Duration // Interval between tic messages
	StaleTimeout       time.Duration // Max time without any message
	WriteTimeout       time.Duration // Write deadline for sends
	BufferSize         int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		KeepaliveInterval: 60 * time.Second,
		StaleTimeout:      3 * time.Minute,
		WriteTimeout:      5 * time.Second,
		BufferSize:        1000,
	}
}

// ManagerConfig configures the stream Manager.
type ManagerConfig struct {
	WSURL              string
	InsecureSkipVerify bool
	Fields             []string // Snapshot field codes to subscribe
	KeepaliveInterval  time.Duration
	StaleTimeout       time.Duration
	ReconnectBaseWait  time.Duration
	ReconnectMaxWait   time.Duration
	BufferSize         int
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Fields:            api.DefaultFields,
		KeepaliveInterval: 60 * time.Second,
		StaleTimeout:      3 * time.Minute,
		ReconnectBaseWait: 1 * time.Second,
		ReconnectMaxWait:  60 * time.Second,
		BufferSize:        1000,
	}
}
