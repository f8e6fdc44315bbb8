package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dgnsrekt/sp500-explorer/internal/dashboard"
)

type fakeRenderer struct{}

func (fakeRenderer) Rerun(_ context.Context, pick dashboard.Selector) *dashboard.Page {
	state := pick([]string{"X", "Y"}, []string{"A", "B", "C"})
	return &dashboard.Page{
		Title: dashboard.Title,
		Selection: dashboard.Selected{
			Sectors:      state.SortedSectors(),
			Symbols:      state.SortedSymbols(),
			CompanyCount: state.CompanyCount,
			ShowPlots:    state.ShowPlots,
		},
	}
}

func (fakeRenderer) Ticker(_ context.Context, q dashboard.TickerQuery) *dashboard.TickerPage {
	return &dashboard.TickerPage{Title: "ticker", Query: q}
}

type blockingRenderer struct {
	fakeRenderer
	release chan struct{}
}

func (b blockingRenderer) Rerun(ctx context.Context, pick dashboard.Selector) *dashboard.Page {
	<-b.release
	return b.fakeRenderer.Rerun(ctx, pick)
}

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	return startHubWith(t, fakeRenderer{})
}

func startHubWith(t *testing.T, renderer Renderer) (*Hub, string) {
	t.Helper()

	enc, err := NewEncoder()
	require.NoError(t, err)
	t.Cleanup(enc.Close)

	hub := NewHub(renderer, enc, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string, protocols ...string) *websocket.Conn {
	t.Helper()
	dialer := websocket.Dialer{Subprotocols: protocols, HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) Downstream {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg Downstream
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_RerunOverJSON(t *testing.T) {
	_, url := startHub(t)
	conn := dial(t, url)

	hello := readJSON(t, conn)
	assert.Equal(t, TypeConnected, hello.Type)
	assert.NotEmpty(t, hello.ConnectionID)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":      "rerun",
		"id":        7,
		"selection": map[string]any{"sectors": []string{"X"}, "company_count": 40, "show_plots": true},
	}))

	reply := readJSON(t, conn)
	assert.Equal(t, TypePage, reply.Type)
	assert.Equal(t, uint64(7), reply.ID)
	require.NotNil(t, reply.Page)
	assert.Equal(t, []string{"X"}, reply.Page.Selection.Sectors)
	assert.Equal(t, []string{"A", "B", "C"}, reply.Page.Selection.Symbols)
	assert.Equal(t, 10, reply.Page.Selection.CompanyCount)
	assert.True(t, reply.Page.Selection.ShowPlots)
}

func TestHub_TickerAndPing(t *testing.T) {
	_, url := startHub(t)
	conn := dial(t, url, ProtocolJSON)
	readJSON(t, conn)

	require.NoError(t, conn.WriteJSON(Upstream{Type: TypeTicker, ID: 1, Ticker: &dashboard.TickerQuery{Symbol: "MSFT"}}))
	reply := readJSON(t, conn)
	assert.Equal(t, TypeTicker, reply.Type)
	require.NotNil(t, reply.Ticker)
	assert.Equal(t, "MSFT", reply.Ticker.Query.Symbol)

	require.NoError(t, conn.WriteJSON(Upstream{Type: TypePing, ID: 2}))
	assert.Equal(t, TypePong, readJSON(t, conn).Type)
}

func TestHub_UnknownMessage(t *testing.T) {
	_, url := startHub(t)
	conn := dial(t, url)
	readJSON(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscribe"}`)))
	reply := readJSON(t, conn)
	assert.Equal(t, TypeError, reply.Type)
	assert.Contains(t, reply.Error, "unknown message type")
}

func TestHub_InvalidatedBroadcast(t *testing.T) {
	hub, url := startHub(t)
	first := dial(t, url)
	second := dial(t, url)
	readJSON(t, first)
	readJSON(t, second)

	require.Eventually(t, func() bool { return hub.Count() == 2 }, 2*time.Second, 10*time.Millisecond)
	hub.Invalidated(3)

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readJSON(t, conn)
		assert.Equal(t, TypeInvalidated, msg.Type)
		assert.Equal(t, 3, msg.Count)
	}
}

func TestHub_ZstdProtocol(t *testing.T) {
	_, url := startHub(t)
	conn := dial(t, url, ProtocolJSONZstd)
	assert.Equal(t, ProtocolJSONZstd, conn.Subprotocol())

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	msgType, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, msgType)

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()

	raw, err := dec.DecodeAll(payload, nil)
	require.NoError(t, err)

	var hello Downstream
	require.NoError(t, json.Unmarshal(raw, &hello))
	assert.Equal(t, TypeConnected, hello.Type)
}

func TestHub_ReadsWhileRerunIsRunning(t *testing.T) {
	release := make(chan struct{})
	_, url := startHubWith(t, blockingRenderer{release: release})
	conn := dial(t, url)
	readJSON(t, conn)

	require.NoError(t, conn.WriteJSON(Upstream{Type: TypeRerun, ID: 1}))
	for i := 0; i <= requestQueueSize; i++ {
		require.NoError(t, conn.WriteJSON(Upstream{Type: TypePing, ID: uint64(100 + i)}))
	}

	// The queue is full while the rerun blocks, so the reader rejects the overflow.
	busy := readJSON(t, conn)
	assert.Equal(t, TypeError, busy.Type)
	assert.Contains(t, busy.Error, "too many pending requests")

	close(release)

	var page *Downstream
	var pongs []uint64
	for page == nil || len(pongs) == 0 {
		msg := readJSON(t, conn)
		switch msg.Type {
		case TypePage:
			require.Empty(t, pongs, "rerun must be answered before requests queued behind it")
			page = &msg
		case TypePong:
			pongs = append(pongs, msg.ID)
		}
	}
	assert.Equal(t, uint64(1), page.ID)
	assert.Equal(t, uint64(100), pongs[0])
}
