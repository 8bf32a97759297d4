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
	"github.com/playmatatu/balldrop/internal/game"
	"github.com/vmihailenco/msgpack/v5"
)

// Helper to start a hub whose loop stops with the test.
func setupHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubFansOutAndDropsForSlowClients(t *testing.T) {
	hub := setupHub(t)
	c := &Client{hub: hub, playerID: 1, sessionID: "sbx_a", codec: CodecJSON, send: make(chan outbound, 1)}
	hub.register <- c
	waitFor(t, "registration", func() bool { return hub.RoomSize("sbx_a") == 1 })

	hub.PublishFrame("sbx_a", game.Frame{Tick: 1})
	hub.PublishFrame("sbx_a", game.Frame{Tick: 2})
	hub.PublishFrame("sbx_other", game.Frame{Tick: 3})

	out := <-c.send
	var env struct {
		Type string     `json:"type"`
		Data game.Frame `json:"data"`
	}
	if err := json.Unmarshal(out.data, &env); err != nil {
		t.Fatal(err)
	}
	if env.Type != TypeFrame || env.Data.Tick != 1 {
		t.Errorf("first message = %+v", env)
	}
	if hub.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", hub.Dropped())
	}

	hub.unregister <- c
	waitFor(t, "unregistration", func() bool { return hub.RoomSize("sbx_a") == 0 })
	if _, ok := <-c.send; ok {
		t.Errorf("send channel still open after unregister")
	}
	if hub.sendTo(c, Envelope{Type: TypeError}) {
		t.Errorf("sendTo succeeded for a departed client")
	}
}

func TestRelayEventSkipsPlayTimeAndEmptyRooms(t *testing.T) {
	hub := setupHub(t)
	c := &Client{hub: hub, playerID: 1, sessionID: "sbx_b", codec: CodecJSON, send: make(chan outbound, 4)}
	hub.register <- c
	waitFor(t, "registration", func() bool { return hub.RoomSize("sbx_b") == 1 })

	if relayEvent(hub, `{"type":"ball_dropped","session_id":"sbx_b","ball_id":"ball_1"}`) != true {
		t.Errorf("ball_dropped for a watched session was not relayed")
	}
	if relayEvent(hub, `{"type":"play_time","session_id":"sbx_b","play_ms":1000}`) {
		t.Errorf("play_time must not be relayed")
	}
	if relayEvent(hub, `{"type":"ball_dropped","session_id":"sbx_nobody"}`) {
		t.Errorf("event for an unwatched session was relayed")
	}
	if relayEvent(hub, `not json`) {
		t.Errorf("garbage payload was relayed")
	}

	out := <-c.send
	if !strings.Contains(string(out.data), `"type":"event"`) || !strings.Contains(string(out.data), "ball_1") {
		t.Errorf("relayed message = %s", out.data)
	}
}

type reply struct {
	Type    string          `json:"type"`
	Seq     int64           `json:"seq"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Helper to serve one session over a real websocket and dial it.
func setupConn(t *testing.T, codec Codec) (*websocket.Conn, *game.Session, *Hub) {
	t.Helper()
	hub := setupHub(t)
	s := game.NewSession("sbx_ws", 1, game.Options{Seed: 1}, hub, game.SessionConfig{})
	t.Cleanup(s.Stop)

	up := NewUpgrader(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := hub.Serve(w, r, up, s, 1, codec); err != nil {
			t.Logf("serve: %v", err)
		}
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, s, hub
}

// readUntil skips frames until a message of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) reply {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var r reply
		if err := conn.ReadJSON(&r); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if r.Type == typ {
			return r
		}
	}
}

func TestServeExecutesCommands(t *testing.T) {
	conn, _, _ := setupConn(t, CodecJSON)

	first := readUntil(t, conn, TypeFrame)
	var f game.Frame
	if err := json.Unmarshal(first.Data, &f); err != nil || !f.Paused {
		t.Fatalf("initial frame = %s (%v)", first.Data, err)
	}

	conn.WriteJSON(map[string]interface{}{"type": "place", "seq": 1, "data": map[string]interface{}{"kind": "smallSquare"}})
	r := readUntil(t, conn, TypeResult)
	var res game.Result
	json.Unmarshal(r.Data, &res)
	if r.Seq != 1 || !res.Applied || res.ShapeID == "" {
		t.Errorf("place reply = %+v (%s)", r, r.Data)
	}

	conn.WriteJSON(map[string]interface{}{"type": "place", "seq": 2, "data": map[string]interface{}{"kind": "hexagon"}})
	if e := readUntil(t, conn, TypeError); e.Seq != 2 || e.Message == "" {
		t.Errorf("bad kind reply = %+v", e)
	}

	conn.WriteJSON(map[string]interface{}{"type": "fly", "seq": 3})
	if e := readUntil(t, conn, TypeError); e.Seq != 3 {
		t.Errorf("unknown command reply = %+v", e)
	}
}

func TestServeSpeaksMsgpack(t *testing.T) {
	conn, _, _ := setupConn(t, CodecMsgpack)

	send := func(v interface{}) {
		b, err := msgpack.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
			t.Fatal(err)
		}
	}
	send(map[string]interface{}{"type": "place", "seq": 1, "data": map[string]interface{}{"kind": "largeSquare"}})
	send(map[string]interface{}{"type": "snapshot", "seq": 2})

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		kind, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if kind != websocket.BinaryMessage {
			t.Fatalf("message kind = %d, want binary", kind)
		}
		var env struct {
			Type string             `msgpack:"type"`
			Seq  int64              `msgpack:"seq"`
			Data msgpack.RawMessage `msgpack:"data"`
		}
		if err := msgpack.Unmarshal(raw, &env); err != nil {
			t.Fatal(err)
		}
		if env.Type != TypeResult || env.Seq != 2 {
			continue
		}
		var res game.Result
		if err := msgpack.Unmarshal(env.Data, &res); err != nil {
			t.Fatal(err)
		}
		if res.Frame == nil || len(res.Frame.Shapes) != 1 || res.Frame.Shapes[0].Kind != game.LargeSquare {
			t.Errorf("snapshot = %+v", res.Frame)
		}
		return
	}
}

func TestClosedSessionDisconnectsViewers(t *testing.T) {
	conn, s, hub := setupConn(t, CodecJSON)
	readUntil(t, conn, TypeFrame)

	s.Stop()
	hub.CloseRoom(s.ID, "session ended")

	if r := readUntil(t, conn, TypeClosed); r.Message != "session ended" {
		t.Errorf("close message = %+v", r)
	}
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Errorf("connection still open after the room closed")
	}
}

func TestPongKeepsSessionActive(t *testing.T) {
	conn, s, _ := setupConn(t, CodecJSON)
	readUntil(t, conn, TypeFrame)

	before := s.LastActive()
	time.Sleep(20 * time.Millisecond)
	if err := conn.WriteControl(websocket.PongMessage, nil, time.Now().Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "pong to touch the session", func() bool { return s.LastActive().After(before) })
}

func TestWatchStartsOncePerSession(t *testing.T) {
	hub := setupHub(t)
	s := game.NewSession("sbx_watch", 1, game.Options{}, nil, game.SessionConfig{})
	t.Cleanup(s.Stop)

	c := &Client{hub: hub, playerID: 1, sessionID: s.ID, codec: CodecJSON, send: make(chan outbound, 4)}
	hub.register <- c
	waitFor(t, "registration", func() bool { return hub.RoomSize(s.ID) == 1 })

	if !hub.Watch(s) {
		t.Fatalf("first watch did not start a watcher")
	}
	for i := 0; i < 3; i++ {
		if hub.Watch(s) {
			t.Fatalf("watch %d started a second watcher", i+2)
		}
	}

	s.Stop()
	waitFor(t, "room to close", func() bool { return hub.RoomSize(s.ID) == 0 })
	waitFor(t, "watcher to finish", func() bool { return !hub.Watching(s.ID) })
}
