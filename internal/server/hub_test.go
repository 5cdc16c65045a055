package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/MeKo-Tech/lingolens/internal/pipeline"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dialHub(t *testing.T, f *fixture) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return f.srv.Hub().Clients() == 1 }, 5*time.Second, 10*time.Millisecond)
	return conn
}

// readUntil reads events until one of the given type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) rawEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var ev rawEvent
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == typ {
			return ev
		}
	}
}

func TestHubStreamsStateAndFrames(t *testing.T) {
	f := newFixture(t, Config{SendImages: true})
	conn := dialHub(t, f)

	require.Equal(t, http.StatusOK, f.post("/pipeline/start", nil).StatusCode)

	ev := readUntil(t, conn, "state")
	var st StateEvent
	require.NoError(t, json.Unmarshal(ev.Payload, &st))
	assert.Equal(t, "idle", st.From)
	assert.Equal(t, "starting", st.To)

	f.pushFrame()
	ev = readUntil(t, conn, "frame")
	var fe FrameEvent
	require.NoError(t, json.Unmarshal(ev.Payload, &fe))
	require.Len(t, fe.Regions, 1)
	assert.Equal(t, "Hello World", fe.Regions[0].TranslationText())
	assert.NotEmpty(t, fe.ImagePNG)

	ev = readUntil(t, conn, "stats")
	var stats pipeline.Stats
	require.NoError(t, json.Unmarshal(ev.Payload, &stats))
	assert.Equal(t, int64(1), stats.FrameCount)
}

func TestHubOmitsImagesByDefault(t *testing.T) {
	f := newFixture(t, Config{})
	conn := dialHub(t, f)
	require.Equal(t, http.StatusOK, f.post("/pipeline/start", nil).StatusCode)
	f.pushFrame()

	var fe FrameEvent
	require.NoError(t, json.Unmarshal(readUntil(t, conn, "frame").Payload, &fe))
	assert.Empty(t, fe.ImagePNG)
}

func TestHubDropsForFullClientQueue(t *testing.T) {
	h := NewHub(1, false)
	c := &client{send: make(chan []byte, 1)}
	h.clients[c] = struct{}{}

	h.Broadcast(Event{Type: "state"})
	h.Broadcast(Event{Type: "state"})
	assert.Len(t, c.send, 1)

	h.Close()
	_, ok := <-c.send
	assert.True(t, ok, "queued message is still delivered")
	_, ok = <-c.send
	assert.False(t, ok, "queue is closed on hub close")
	assert.Zero(t, h.Clients())
}

func TestHubFrameErrorEvent(t *testing.T) {
	h := NewHub(4, false)
	c := &client{send: make(chan []byte, 4)}
	h.clients[c] = struct{}{}

	h.OnFrameError(&pipeline.FrameError{Stage: pipeline.StageDetect, Err: errors.New("engine down")})

	var ev rawEvent
	require.NoError(t, json.Unmarshal(<-c.send, &ev))
	assert.Equal(t, "frame_error", ev.Type)
	var fe FrameErrorEvent
	require.NoError(t, json.Unmarshal(ev.Payload, &fe))
	assert.Equal(t, "detect", fe.Stage)
	assert.Equal(t, "engine down", fe.Error)
}

func TestHubServeWSAfterCloseRejectsClient(t *testing.T) {
	f := newFixture(t, Config{})
	f.srv.Hub().Close()

	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	defer func() { _ = conn.Close() }()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.Zero(t, f.srv.Hub().Clients())
}
