// File: server/server_test.go
package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/arenabit/rumble/actor"
	"github.com/arenabit/rumble/game"
	"github.com/arenabit/rumble/metrics"
	"github.com/arenabit/rumble/utils"
)

func newTestServer(t *testing.T, cfg utils.Config) (*Server, *httptest.Server) {
	t.Helper()
	engine := actor.NewEngine()
	aggregator := metrics.New(nil)
	mmPID := engine.Spawn(actor.NewProps(game.NewMatchmakerProducer(cfg, aggregator)))
	require.NotNil(t, mmPID)

	s := New(cfg, engine, mmPID, aggregator)
	ts := httptest.NewServer(s.httpServer.Handler)
	t.Cleanup(func() {
		ts.Close()
		engine.Shutdown(2 * time.Second)
	})
	return s, ts
}

func dialSubscribe(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := strings.Replace(ts.URL, "http", "ws", 1) + "/subscribe"
	ws, err := websocket.Dial(url, "", ts.URL)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func sendEnvelope(t *testing.T, ws *websocket.Conn, event string, data interface{}) {
	t.Helper()
	env, err := game.NewEnvelope(event, data)
	require.NoError(t, err)
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, websocket.Message.Send(ws, string(raw)))
}

// awaitEvent reads frames until the named event arrives or the deadline
// passes.
func awaitEvent(t *testing.T, ws *websocket.Conn, event string) game.Envelope {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var raw []byte
		if err := websocket.Message.Receive(ws, &raw); err != nil {
			t.Fatalf("waiting for %q: %v", event, err)
		}
		var env game.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		if env.Event == event {
			return env
		}
	}
}

func TestSubscribeJoinFlow(t *testing.T) {
	_, ts := newTestServer(t, utils.DefaultConfig())
	ws := dialSubscribe(t, ts)

	sendEnvelope(t, ws, "joinQueue", game.JoinQueuePayload{Region: "NA", Name: "Alice"})

	env := awaitEvent(t, ws, "matchFound")
	var found game.MatchFoundMessage
	require.NoError(t, json.Unmarshal(env.Data, &found))
	assert.Equal(t, "NA", found.Region)
	assert.True(t, strings.HasPrefix(found.MatchID, "match-"))
	assert.NotEmpty(t, found.PlayerID)

	// The driver keeps the room ticking; a state update follows.
	state := awaitEvent(t, ws, "stateUpdate")
	var update game.StateUpdateMessage
	require.NoError(t, json.Unmarshal(state.Data, &update))
	require.Len(t, update.Players, 1)
	assert.Equal(t, found.PlayerID, update.Players[0].ID)
	require.NotNil(t, update.Players[0].Name, "first broadcast after join is a full state")
	assert.Equal(t, "Alice", *update.Players[0].Name)
}

func TestSubscribeLowercaseRegionAccepted(t *testing.T) {
	_, ts := newTestServer(t, utils.DefaultConfig())
	ws := dialSubscribe(t, ts)

	sendEnvelope(t, ws, "joinQueue", game.JoinQueuePayload{Region: "eu", Name: "Bob"})

	env := awaitEvent(t, ws, "matchFound")
	var found game.MatchFoundMessage
	require.NoError(t, json.Unmarshal(env.Data, &found))
	assert.Equal(t, "EU", found.Region)
}

func TestSubscribeInvalidRegionRejected(t *testing.T) {
	_, ts := newTestServer(t, utils.DefaultConfig())
	ws := dialSubscribe(t, ts)

	sendEnvelope(t, ws, "joinQueue", game.JoinQueuePayload{Region: "MARS", Name: "Alice"})

	env := awaitEvent(t, ws, "error")
	var notice game.NoticeMessage
	require.NoError(t, json.Unmarshal(env.Data, &notice))
	assert.Contains(t, notice.Message, "invalid region")

	// The server closes the session after the error.
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	var raw []byte
	for {
		if err := websocket.Message.Receive(ws, &raw); err != nil {
			return
		}
	}
}

func TestPingAnsweredBeforeJoin(t *testing.T) {
	_, ts := newTestServer(t, utils.DefaultConfig())
	ws := dialSubscribe(t, ts)

	sendEnvelope(t, ws, "m-ping", map[string]interface{}{"seq": 7})

	env := awaitEvent(t, ws, "m-pong")
	var pong map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &pong))
	assert.EqualValues(t, 7, pong["seq"])
	assert.Contains(t, pong, "serverTime")
}

func TestBugReportEndpoint(t *testing.T) {
	_, ts := newTestServer(t, utils.DefaultConfig())

	resp, err := http.Post(ts.URL+"/api/health", "application/json",
		strings.NewReader(`{"bugReport":"jump feels floaty"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/api/health", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLiveEndpointMethods(t *testing.T) {
	_, ts := newTestServer(t, utils.DefaultConfig())

	resp, err := http.Post(ts.URL+"/api/live", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, utils.DefaultConfig())

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	buf := make([]byte, 4096)
	n, _ := resp.Body.Read(buf)
	assert.Contains(t, string(buf[:n]), "rumble_players_current")
}

func TestCORSHeaderFromConfig(t *testing.T) {
	cfg := utils.DefaultConfig()
	cfg.ClientURL = "https://game.example.com"
	_, ts := newTestServer(t, cfg)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/live", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://game.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}
