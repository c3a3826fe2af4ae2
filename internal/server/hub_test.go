package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/rlnc-dashboard/playback"
)

func dialHub(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readFrame(t *testing.T, conn *websocket.Conn) playback.Frame {
	t.Helper()
	msg := readMessage(t, conn)
	require.Equal(t, "frame", msg.Type, "error: %s", msg.Error)
	require.NotNil(t, msg.Frame)
	return *msg.Frame
}

func TestHubSendsCurrentFrameOnConnect(t *testing.T) {
	f := newFixture(t)
	f.ctl.Seek(20)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	conn := dialHub(t, ts)
	frame := readFrame(t, conn)
	assert.Equal(t, 20, frame.Step)
	assert.Equal(t, "0.808", frame.AdaptivePDR)
}

func TestHubAppliesCommands(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	conn := dialHub(t, ts)
	readFrame(t, conn)

	step := 10
	require.NoError(t, conn.WriteJSON(Command{Action: "seek", Step: &step}))
	assert.Equal(t, 10, readFrame(t, conn).Step)

	require.NoError(t, conn.WriteJSON(Command{Action: "advance"}))
	assert.Equal(t, 11, readFrame(t, conn).Step)

	require.NoError(t, conn.WriteJSON(Command{Action: "toggle"}))
	frame := readFrame(t, conn)
	assert.True(t, frame.Playing)
	assert.Equal(t, 11, frame.Step)

	f.clock.Advance(300 * time.Millisecond)
	frame = readFrame(t, conn)
	assert.Equal(t, 12, frame.Step)
	assert.True(t, frame.Playing)
}

func TestHubRejectsBadCommands(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	conn := dialHub(t, ts)
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(Command{Action: "rewind"}))
	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, `unknown action "rewind"`, msg.Error)

	require.NoError(t, conn.WriteJSON(Command{Action: "seek"}))
	msg = readMessage(t, conn)
	assert.Equal(t, "seek requires a step", msg.Error)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg = readMessage(t, conn)
	assert.Equal(t, "malformed command", msg.Error)

	// The connection survives bad input.
	require.NoError(t, conn.WriteJSON(Command{Action: "advance"}))
	assert.Equal(t, 1, readFrame(t, conn).Step)
}

func TestHubBroadcastsToEveryClient(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	a := dialHub(t, ts)
	b := dialHub(t, ts)
	readFrame(t, a)
	readFrame(t, b)
	assert.Equal(t, 2, f.srv.Hub().Clients())
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.WebSocketClients))

	f.ctl.Seek(40)
	assert.Equal(t, 40, readFrame(t, a).Step)
	assert.Equal(t, 40, readFrame(t, b).Step)
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	conn := dialHub(t, ts)
	readFrame(t, conn)
	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = conn.Close()

	require.Eventually(t, func() bool { return f.srv.Hub().Clients() == 0 }, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return testutil.ToFloat64(f.metrics.WebSocketClients) == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	conn := dialHub(t, ts)
	readFrame(t, conn)
	f.srv.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "err = %v", err)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHubRenderNeverBlocks(t *testing.T) {
	h := NewHub(nil, nil, nil)
	c := &client{send: make(chan []byte, 1), done: make(chan struct{})}
	h.clients[c] = struct{}{}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			h.Render(playback.Frame{Step: i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Render blocked on a full client buffer")
	}
	assert.Len(t, c.send, 1)
}

func TestHubRegisterEnforcesLimitUnderConcurrency(t *testing.T) {
	h := NewHub(nil, nil, nil)
	h.limit = 3

	var (
		wg       sync.WaitGroup
		admitted atomic.Int32
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if h.register(&client{done: make(chan struct{})}) {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), admitted.Load())
	assert.Equal(t, 3, h.Clients())
}

func TestHubRefusesConnectionsOverLimit(t *testing.T) {
	f := newFixture(t)
	f.srv.hub.limit = 1
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	first := dialHub(t, ts)
	readFrame(t, first)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
