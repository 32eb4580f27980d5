package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/treasury-basis/internal/api"
	"github.com/rickgao/treasury-basis/internal/model"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*http.Request, *websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(r, conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

type fakeSessions struct {
	calls   atomic.Int32
	session string
	err     error
}

func (f *fakeSessions) Tickle(_ context.Context) (*api.TickleResponse, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &api.TickleResponse{Session: f.session}, nil
}

type fixedConids []int64

func (c fixedConids) Conids() []int64 { return c }

func TestSubscribeMessage(t *testing.T) {
	got, err := SubscribeMessage(265598, []string{"31", "84"})
	if err != nil {
		t.Fatalf("SubscribeMessage: %v", err)
	}
	if want := `smd+265598+{"fields":["31","84"]}`; string(got) != want {
		t.Errorf("SubscribeMessage = %s, want %s", got, want)
	}
	if got := string(UnsubscribeMessage(265598)); got != "umd+265598+{}" {
		t.Errorf("UnsubscribeMessage = %s", got)
	}
}

func TestParseUpdate(t *testing.T) {
	now := time.Date(2025, 3, 14, 14, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		data   string
		wantOK bool
		want   model.Quote
	}{
		{
			name:   "market data",
			data:   `{"server_id":"q0","conid":11,"topic":"smd+11","31":"110'16","84":"110'16","87":"1.2K"}`,
			wantOK: true,
			want:   model.Quote{Conid: 11, Last: "110'16", Bid: "110'16", Volume: "1.2K", UpdatedAt: now},
		},
		{
			name:   "numeric field",
			data:   `{"topic":"smd+101","84":99.5}`,
			wantOK: true,
			want:   model.Quote{Conid: 101, Bid: "99.5", UpdatedAt: now},
		},
		{name: "system topic", data: `{"topic":"system","hb":1}`},
		{name: "auth status", data: `{"topic":"sts","args":{"authenticated":true}}`},
		{name: "bad conid", data: `{"topic":"smd+abc","31":"1"}`},
		{name: "no topic", data: `{"31":"1"}`},
		{name: "not json", data: `tic`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseUpdate([]byte(tt.data), now)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseUpdate = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	t0 := time.Date(2025, 3, 14, 14, 0, 0, 0, time.UTC)
	prev := model.Quote{Conid: 11, Last: "110'16", Bid: "110'16", Ask: "110'17", Volume: "1K", UpdatedAt: t0}
	upd := model.Quote{Conid: 11, Ask: "110'18", UpdatedAt: t0.Add(time.Second)}

	got := Merge(prev, upd)
	want := model.Quote{Conid: 11, Last: "110'16", Bid: "110'16", Ask: "110'18", Volume: "1K", UpdatedAt: t0.Add(time.Second)}
	if got != want {
		t.Errorf("Merge = %+v, want %+v", got, want)
	}
}

func TestClient_SendsSessionCookie(t *testing.T) {
	cookies := make(chan string, 1)
	server := mockWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		cookies <- r.Header.Get("Cookie")
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	c := NewClient(ClientConfig{URL: wsURL(server), Session: "abc123"}, nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	select {
	case got := <-cookies:
		if got != "api=abc123" {
			t.Errorf("Cookie = %q, want api=abc123", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for handshake")
	}

	if !c.IsConnected() {
		t.Error("expected IsConnected to return true")
	}
}

func TestClient_Keepalive(t *testing.T) {
	received := make(chan string, 4)
	server := mockWSServer(t, func(_ *http.Request, conn *websocket.Conn) {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- string(msg)
		}
	})
	defer server.Close()

	cfg := ClientConfig{
		URL:               wsURL(server),
		KeepaliveInterval: 10 * time.Millisecond,
		StaleTimeout:      time.Minute,
	}
	c := NewClient(cfg, nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	select {
	case msg := <-received:
		if msg != "tic" {
			t.Errorf("keepalive = %q, want tic", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for keepalive")
	}
}

func TestClient_SendNotConnected(t *testing.T) {
	c := NewClient(ClientConfig{URL: "ws://localhost:12345"}, nil)

	if err := c.Send([]byte("tic")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestClient_DoubleClose(t *testing.T) {
	server := mockWSServer(t, func(_ *http.Request, conn *websocket.Conn) {
		time.Sleep(time.Second)
	})
	defer server.Close()

	c := NewClient(ClientConfig{URL: wsURL(server)}, nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if err := c.Connect(context.Background()); !errors.Is(err, ErrAlreadyClosed) {
		t.Errorf("Connect after Close = %v, want ErrAlreadyClosed", err)
	}
}

// quoteCollector gathers handled quotes.
type quoteCollector struct {
	ch chan model.Quote
}

func (c *quoteCollector) HandleQuote(q model.Quote) { c.ch <- q }

func (c *quoteCollector) next(t *testing.T) model.Quote {
	t.Helper()
	select {
	case q := <-c.ch:
		return q
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for quote")
		return model.Quote{}
	}
}

func readSubscriptions(conn *websocket.Conn, n int) ([]string, error) {
	var subs []string
	for len(subs) < n {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return subs, err
		}
		if string(msg) == "tic" {
			continue
		}
		subs = append(subs, string(msg))
	}
	return subs, nil
}

func TestManager_SubscribesAndMerges(t *testing.T) {
	var mu sync.Mutex
	var subs []string

	server := mockWSServer(t, func(_ *http.Request, conn *websocket.Conn) {
		got, err := readSubscriptions(conn, 2)
		mu.Lock()
		subs = got
		mu.Unlock()
		if err != nil {
			return
		}
		for _, msg := range []string{
			`{"topic":"system","hb":1}`,
			`{"topic":"smd+11","31":"110'16","84":"110'16"}`,
			`{"topic":"smd+11","86":"110'17"}`,
		} {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		time.Sleep(time.Second)
	})
	defer server.Close()

	sessions := &fakeSessions{session: "abc123"}
	collector := &quoteCollector{ch: make(chan model.Quote, 10)}
	cfg := ManagerConfig{WSURL: wsURL(server), Fields: []string{"31", "84", "86"}}
	m := NewManager(cfg, sessions, fixedConids{11, 101}, collector, nil)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		m.Stop(ctx)
	}()

	first := collector.next(t)
	if first.Conid != 11 || first.Bid != "110'16" || first.Ask != "" {
		t.Errorf("first = %+v", first)
	}
	second := collector.next(t)
	if second.Bid != "110'16" || second.Ask != "110'17" || second.Last != "110'16" {
		t.Errorf("second = %+v, want merged bid, ask and last", second)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{
		`smd+11+{"fields":["31","84","86"]}`,
		`smd+101+{"fields":["31","84","86"]}`,
	}
	if len(subs) != len(want) {
		t.Fatalf("subscriptions = %v, want %v", subs, want)
	}
	for i := range want {
		if subs[i] != want[i] {
			t.Errorf("subscription %d = %s, want %s", i, subs[i], want[i])
		}
	}

	stats := m.Stats()
	if stats.Subscriptions != 2 || stats.Updates != 2 {
		t.Errorf("Stats = %+v, want 2 subscriptions and 2 updates", stats)
	}
}

func TestManager_Reconnects(t *testing.T) {
	var conns atomic.Int32

	server := mockWSServer(t, func(_ *http.Request, conn *websocket.Conn) {
		n := conns.Add(1)
		if _, err := readSubscriptions(conn, 1); err != nil {
			return
		}
		if n == 1 {
			return // drop the first connection
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"topic":"smd+11","84":"111'00"}`))
		time.Sleep(time.Second)
	})
	defer server.Close()

	sessions := &fakeSessions{session: "abc123"}
	collector := &quoteCollector{ch: make(chan model.Quote, 10)}
	cfg := ManagerConfig{
		WSURL:             wsURL(server),
		ReconnectBaseWait: 10 * time.Millisecond,
		ReconnectMaxWait:  50 * time.Millisecond,
	}
	m := NewManager(cfg, sessions, fixedConids{11}, collector, nil)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		m.Stop(ctx)
	}()

	q := collector.next(t)
	if q.Bid != "111'00" {
		t.Errorf("Bid = %q, want 111'00", q.Bid)
	}
	if got := sessions.calls.Load(); got != 2 {
		t.Errorf("tickle calls = %d, want 2", got)
	}
	if got := m.Stats().Reconnects; got != 1 {
		t.Errorf("Reconnects = %d, want 1", got)
	}
}

func TestManager_StartFails(t *testing.T) {
	tests := []struct {
		name     string
		sessions *fakeSessions
	}{
		{"tickle error", &fakeSessions{err: errors.New("gateway down")}},
		{"empty session", &fakeSessions{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(ManagerConfig{WSURL: "ws://localhost:12345"}, tt.sessions, fixedConids{11}, nil, nil)
			if err := m.Start(context.Background()); err == nil {
				t.Error("Start() error = nil, want failure")
			}
		})
	}
}

func TestDefaultConfigs(t *testing.T) {
	clientCfg := DefaultClientConfig()
	if clientCfg.KeepaliveInterval != 60*time.Second {
		t.Errorf("KeepaliveInterval = %v, want 60s", clientCfg.KeepaliveInterval)
	}

	mgrCfg := DefaultManagerConfig()
	if len(mgrCfg.Fields) != len(api.DefaultFields) {
		t.Errorf("Fields = %v, want %v", mgrCfg.Fields, api.DefaultFields)
	}
	if mgrCfg.ReconnectMaxWait != 60*time.Second {
		t.Errorf("ReconnectMaxWait = %v, want 60s", mgrCfg.ReconnectMaxWait)
	}
}
