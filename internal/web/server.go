package web

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image/png"
	"log"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nqnqxp/extendedRealities-Xiona/internal/sprite"
	"github.com/nqnqxp/extendedRealities-Xiona/internal/visual"
)

// Server streams the scene to browser clients over a websocket: one JSON
// text message with the frame's visual parameters, followed by one binary
// message holding the raw little-endian float32 position buffer. It
// implements the scene's Renderer contract.
type Server struct {
	addr           string
	maskResolution int
	fieldRadius    float64
	fieldHeight    float64
	log            *log.Logger

	httpSrv *http.Server

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]bool
	closed  bool
	last    frameMeta

	scratch []byte
}

type client struct {
	conn *websocket.Conn
	send chan [][]byte
}

type frameMeta struct {
	FallSpeed     float64 `json:"fallSpeed"`
	ParticleSize  float64 `json:"particleSize"`
	GlowIntensity float64 `json:"glowIntensity"`
	Loudness      float64 `json:"loudness"`
	FPS           float64 `json:"fps"`
	Count         int     `json:"count"`
}

// Config controls the web renderer.
type Config struct {
	Addr           string
	MaskResolution int
	FieldRadius    float64
	FieldHeight    float64
	Log            *log.Logger
}

// NewServer prepares the server; Start brings the listener up.
func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8990"
	}
	if cfg.MaskResolution <= 0 {
		cfg.MaskResolution = 64
	}
	if cfg.Log == nil {
		cfg.Log = log.Default()
	}
	return &Server{
		addr:           cfg.Addr,
		maskResolution: cfg.MaskResolution,
		fieldRadius:    cfg.FieldRadius,
		fieldHeight:    cfg.FieldHeight,
		log:            cfg.Log,
		clients:        make(map[*client]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start brings up the HTTP listener in the background.
func (s *Server) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/mask.png", s.handleMask)
	mux.HandleFunc("/api/status", s.handleStatus)

	s.httpSrv = &http.Server{Addr: s.addr, Handler: mux}
	s.log.Printf("[web] serving scene on http://localhost%s", s.addr)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Printf("[web] server stopped: %v", err)
		}
	}()
}

// RenderFrame broadcasts the frame to connected clients. Slow clients drop
// frames instead of stalling the loop.
func (s *Server) RenderFrame(positions []float32, p visual.Parameters, level, fps float64) error {
	meta := frameMeta{
		FallSpeed:     p.FallSpeed,
		ParticleSize:  p.ParticleSize,
		GlowIntensity: p.GlowIntensity,
		Loudness:      level,
		FPS:           fps,
		Count:         len(positions) / 3,
	}

	s.mu.Lock()
	s.last = meta
	if len(s.clients) == 0 {
		s.mu.Unlock()
		return nil
	}

	metaMsg, err := json.Marshal(meta)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("web: encode frame meta: %w", err)
	}
	if len(s.scratch) != len(positions)*4 {
		s.scratch = make([]byte, len(positions)*4)
	}
	for i, v := range positions {
		binary.LittleEndian.PutUint32(s.scratch[i*4:], math.Float32bits(v))
	}
	posMsg := make([]byte, len(s.scratch))
	copy(posMsg, s.scratch)

	for c := range s.clients {
		select {
		case c.send <- [][]byte{metaMsg, posMsg}:
		default:
		}
	}
	s.mu.Unlock()
	return nil
}

// Close disconnects every client, refuses new ones, and shuts the listener
// down.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	for c := range s.clients {
		close(c.send)
		delete(s.clients, c)
	}
	s.mu.Unlock()

	if s.httpSrv != nil {
		return s.httpSrv.Close()
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("[web] upgrade failed: %v", err)
		return
	}
	c := &client{
		conn: conn,
		send: make(chan [][]byte, 8),
	}
	s.mu.Lock()
	// Close may have run between the check above and here.
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.clients[c] = true
	s.mu.Unlock()
	s.log.Printf("[web] client connected from %s", r.RemoteAddr)

	go s.writePump(c)
	go s.readPump(c)
}

func (s *Server) writePump(c *client) {
	defer c.conn.Close()
	for msgs := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msgs[0]); err != nil {
			return
		}
		if err := c.conn.WriteMessage(websocket.BinaryMessage, msgs[1]); err != nil {
			return
		}
	}
}

// readPump discards inbound messages and detaches the client when the
// connection drops.
func (s *Server) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()
}

func (s *Server) handleMask(w http.ResponseWriter, r *http.Request) {
	img, err := sprite.GenerateMask(s.maskResolution)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_ = png.Encode(w, img)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	meta := s.last
	s.mu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(meta)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, indexPage, s.fieldRadius, s.fieldHeight)
}

const indexPage = `<!DOCTYPE html>
<html>
<head>
<title>winterscene</title>
<style>body{margin:0;background:#040814;overflow:hidden}canvas{display:block}</style>
</head>
<body>
<canvas id="c"></canvas>
<script>
const radius = %f, height = %f;
const canvas = document.getElementById("c");
const ctx = canvas.getContext("2d");
const mask = new Image();
mask.src = "/mask.png";
let meta = null, positions = null;

function resize() {
  canvas.width = window.innerWidth;
  canvas.height = window.innerHeight;
}
window.addEventListener("resize", resize);
resize();

const ws = new WebSocket("ws://" + location.host + "/ws");
ws.binaryType = "arraybuffer";
ws.onmessage = (ev) => {
  if (typeof ev.data === "string") {
    meta = JSON.parse(ev.data);
  } else {
    positions = new Float32Array(ev.data);
  }
};

function draw() {
  requestAnimationFrame(draw);
  ctx.fillStyle = "#040814";
  ctx.fillRect(0, 0, canvas.width, canvas.height);
  if (!meta || !positions || !mask.complete) return;

  const focal = canvas.height * 0.9;
  const dist = radius * 2.2;
  const cx = canvas.width / 2, cy = canvas.height / 2;
  ctx.globalCompositeOperation = "lighter";
  ctx.globalAlpha = Math.min(1, meta.glowIntensity / 2.65);
  for (let i = 0; i < positions.length; i += 3) {
    const depth = focal / (positions[i + 2] + dist);
    const sx = cx + positions[i] * depth;
    const sy = cy - (positions[i + 1] - height / 2) * depth;
    const size = Math.max(1, meta.particleSize * depth);
    ctx.drawImage(mask, sx - size / 2, sy - size / 2, size, size);
  }
  ctx.globalCompositeOperation = "source-over";
  ctx.globalAlpha = 1;
}
draw();
</script>
</body>
</html>`
