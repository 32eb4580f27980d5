package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/treasury-basis/internal/api"
	"github.com/rickgao/treasury-basis/internal/metrics"
	"github.com/rickgao/treasury-basis/internal/model"
)

// SessionSource provides the gateway session token.
type SessionSource interface {
	Tickle(ctx context.Context) (*api.TickleResponse, error)
}

// ConidSource lists the contracts to subscribe.
type ConidSource interface {
	Conids() []int64
}

// Manager keeps the market data websocket subscribed.
type Manager interface {
	// Start connects and subscribes every conid of the source.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the connection.
	Stop(ctx context.Context) error

	// Stats returns current connection statistics.
	Stats() ManagerStats
}

// ManagerStats provides statistics about the stream.
type ManagerStats struct {
	Connected     bool
	Subscriptions int
	Updates       int64
	Reconnects    int64
}

// manager implements the Manager interface.
type manager struct {
	cfg      ManagerConfig
	sessions SessionSource
	conids   ConidSource
	handler  QuoteHandler
	logger   *slog.Logger

	mu     sync.Mutex
	client Client

	// Latest merged quote per conid, owned by the active read loop.
	quotes map[int64]model.Quote

	subscriptions atomic.Int64
	updates       atomic.Int64
	reconnects    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a new stream Manager.
func NewManager(cfg ManagerConfig, sessions SessionSource, conids ConidSource, handler QuoteHandler, logger *slog.Logger) Manager {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultManagerConfig()
	if len(cfg.Fields) == 0 {
		cfg.Fields = def.Fields
	}
	if cfg.ReconnectBaseWait <= 0 {
		cfg.ReconnectBaseWait = def.ReconnectBaseWait
	}
	if cfg.ReconnectMaxWait <= 0 {
		cfg.ReconnectMaxWait = def.ReconnectMaxWait
	}

	return &manager{
		cfg:      cfg,
		sessions: sessions,
		conids:   conids,
		handler:  handler,
		logger:   logger,
		quotes:   make(map[int64]model.Quote),
	}
}

// Start connects and subscribes.
func (m *manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	c, err := m.connect(m.ctx)
	if err != nil {
		m.cancel()
		return fmt.Errorf("connect stream: %w", err)
	}
	m.subscribeAll(c)

	m.wg.Add(1)
	go m.readLoop(c)

	m.logger.Info("stream manager started",
		"url", m.cfg.WSURL,
		"subscriptions", m.subscriptions.Load(),
	)
	return nil
}

// Stop gracefully shuts down.
func (m *manager) Stop(ctx context.Context) error {
	m.logger.Info("stopping stream manager")

	if m.cancel != nil {
		m.cancel()
	}

	// Wait for goroutines with timeout
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout, forcing close")
	}

	m.mu.Lock()
	if m.client != nil {
		m.client.Close()
	}
	m.mu.Unlock()

	m.logger.Info("stream manager stopped")
	return nil
}

// Stats returns current statistics.
func (m *manager) Stats() ManagerStats {
	m.mu.Lock()
	connected := m.client != nil && m.client.IsConnected()
	m.mu.Unlock()

	return ManagerStats{
		Connected:     connected,
		Subscriptions: int(m.subscriptions.Load()),
		Updates:       m.updates.Load(),
		Reconnects:    m.reconnects.Load(),
	}
}

// connect fetches a session token and dials a new client.
func (m *manager) connect(ctx context.Context) (Client, error) {
	resp, err := m.sessions.Tickle(ctx)
	if err != nil {
		return nil, err
	}
	if resp.Session == "" {
		return nil, ErrNoSession
	}

	cfg := ClientConfig{
		URL:                m.cfg.WSURL,
		Session:            resp.Session,
		InsecureSkipVerify: m.cfg.InsecureSkipVerify,
		KeepaliveInterval:  m.cfg.KeepaliveInterval,
		StaleTimeout:       m.cfg.StaleTimeout,
		BufferSize:         m.cfg.BufferSize,
	}
	c := NewClient(cfg, m.logger)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.client = c
	m.mu.Unlock()
	return c, nil
}

// subscribeAll sends one market data subscription per conid. Failures are
// logged and skipped.
func (m *manager) subscribeAll(c Client) {
	var sent int64
	for _, conid := range m.conids.Conids() {
		msg, err := SubscribeMessage(conid, m.cfg.Fields)
		if err == nil {
			err = c.Send(msg)
		}
		if err != nil {
			m.logger.Warn("subscribe failed", "conid", conid, "error", err)
			continue
		}
		sent++
	}
	m.subscriptions.Store(sent)
}

// readLoop reads messages from a connection and hands quotes to the handler.
func (m *manager) readLoop(c Client) {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return

		case err := <-c.Errors():
			m.logger.Warn("stream connection error", "error", err)
			m.wg.Add(1)
			go m.reconnect(c)
			return

		case msg, ok := <-c.Messages():
			if !ok {
				return
			}
			m.handle(msg)
		}
	}
}

// handle merges one market data message into the latest quote.
func (m *manager) handle(msg TimestampedMessage) {
	q, ok := ParseUpdate(msg.Data, msg.ReceivedAt)
	if !ok {
		return
	}
	merged := Merge(m.quotes[q.Conid], q)
	m.quotes[q.Conid] = merged

	m.updates.Add(1)
	metrics.StreamUpdates.Inc()
	if m.handler != nil {
		m.handler.HandleQuote(merged)
	}
}

// reconnect replaces a failed connection with exponential backoff.
func (m *manager) reconnect(old Client) {
	defer m.wg.Done()

	old.Close()
	wait := m.cfg.ReconnectBaseWait

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-time.After(wait):
		}

		m.logger.Info("attempting stream reconnection")

		c, err := m.connect(m.ctx)
		if err != nil {
			m.logger.Warn("stream reconnection failed", "error", err)

			// Exponential backoff
			wait *= 2
			if wait > m.cfg.ReconnectMaxWait {
				wait = m.cfg.ReconnectMaxWait
			}
			continue
		}

		m.reconnects.Add(1)
		m.subscribeAll(c)
		m.logger.Info("stream reconnected", "subscriptions", m.subscriptions.Load())

		m.wg.Add(1)
		go m.readLoop(c)
		return
	}
}
