package web

import (
	"encoding/binary"
	"encoding/json"
	"image/png"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nqnqxp/extendedRealities-Xiona/internal/visual"
)

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(Config{MaskResolution: 16, FieldRadius: 120, FieldHeight: 90})
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/mask.png", s.handleMask)
	mux.HandleFunc("/api/status", s.handleStatus)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	t.Cleanup(func() { s.Close() })
	return s, ts
}

func TestRenderFrameWithoutClients(t *testing.T) {
	s := NewServer(Config{})
	if err := s.RenderFrame([]float32{1, 2, 3}, visual.Parameters{}, 0.5, 60); err != nil {
		t.Fatalf("RenderFrame with no clients: %v", err)
	}
}

func TestMaskEndpointServesPNG(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/mask.png")
	if err != nil {
		t.Fatalf("GET /mask.png: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 16 {
		t.Fatalf("mask is %dx%d, want 16x16", b.Dx(), b.Dy())
	}
}

func TestStatusReflectsLastFrame(t *testing.T) {
	s, ts := testServer(t)

	p := visual.DefaultMapper().Map(1)
	if err := s.RenderFrame(make([]float32, 9), p, 1, 59.5); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp.Body.Close()
	var meta frameMeta
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if meta.Count != 3 {
		t.Fatalf("count = %d, want 3", meta.Count)
	}
	if math.Abs(meta.FallSpeed-p.FallSpeed) > 1e-9 {
		t.Fatalf("fallSpeed = %f, want %f", meta.FallSpeed, p.FallSpeed)
	}
}

func TestWebSocketReceivesFrame(t *testing.T) {
	s, ts := testServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The client registers in the upgrade handler; give it a moment before
	// broadcasting.
	deadline := time.Now().Add(time.Second)
	for {
		s.mu.RLock()
		n := len(s.clients)
		s.mu.RUnlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	positions := []float32{1.5, -2, 40}
	if err := s.RenderFrame(positions, visual.DefaultMapper().Map(0.5), 0.5, 60); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read meta: %v", err)
	}
	if msgType != websocket.TextMessage {
		t.Fatalf("first message type = %d, want text", msgType)
	}
	var meta frameMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatalf("unmarshal meta: %v", err)
	}
	if meta.Count != 1 {
		t.Fatalf("count = %d, want 1", meta.Count)
	}

	msgType, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read positions: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Fatalf("second message type = %d, want binary", msgType)
	}
	if len(data) != len(positions)*4 {
		t.Fatalf("payload is %d bytes, want %d", len(data), len(positions)*4)
	}
	for i, want := range positions {
		got := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		if got != want {
			t.Fatalf("position %d = %f, want %f", i, got, want)
		}
	}
}

func TestWebSocketRejectedAfterClose(t *testing.T) {
	s, ts := testServer(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if _, _, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Fatal("dial succeeded against a closed server")
	}

	s.mu.RLock()
	n := len(s.clients)
	s.mu.RUnlock()
	if n != 0 {
		t.Fatalf("closed server tracked %d clients", n)
	}
}

func TestIndexServesPage(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "winterscene") {
		t.Fatal("index page missing title")
	}
}
