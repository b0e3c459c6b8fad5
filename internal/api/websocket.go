package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"fieldsync/internal/bitpack"
	"fieldsync/internal/entity"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// MaxWSConnectionsPerIP is the maximum observer connections per IP
	MaxWSConnectionsPerIP = 10

	// sendQueueSize is how many packets may wait for a slow socket
	sendQueueSize = 64

	writeWait = 5 * time.Second

	// observerGUIDBase keeps connection players apart from simulated ones
	observerGUIDBase = 1 << 40
)

var (
	errSessionClosed = errors.New("observer session closed")
	errSlowObserver  = errors.New("observer send queue full")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}
		log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// HubConfig configures the observer hub.
type HubConfig struct {
	MaxConnections int
	SpawnPoint     mgl32.Vec3
}

// observerSession is one connected client and the player entity that
// represents it in the world.
type observerSession struct {
	id     string
	ip     string
	conn   *websocket.Conn
	player *entity.Object

	queue     chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// enqueue hands a packet to the write loop without blocking the tick.
func (s *observerSession) enqueue(pkt []byte) error {
	select {
	case <-s.done:
		return errSessionClosed
	default:
	}
	select {
	case s.queue <- pkt:
		return nil
	default:
		wsPacketsDropped.Inc()
		return errSlowObserver
	}
}

// WebSocketHub turns websocket connections into world observers. Each
// connection spawns a player and receives its update packets as binary
// messages.
type WebSocketHub struct {
	world    WorldInterface
	cfg      HubConfig
	sessions map[string]*observerSession
	mu       sync.RWMutex
	counter  atomic.Uint64

	wsLimiter *WebSocketRateLimiter
}

// NewWebSocketHub creates a hub feeding observers from world
func NewWebSocketHub(world WorldInterface, cfg HubConfig) *WebSocketHub {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 200
	}
	return &WebSocketHub{
		world:     world,
		cfg:       cfg,
		sessions:  make(map[string]*observerSession),
		wsLimiter: NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
}

// ClientCount returns the number of connected observers
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// sessionHello is the first, text, message of every connection.
type sessionHello struct {
	Event   string `json:"event"`
	Session string `json:"session"`
	GUID    string `json:"guid"`
	MapID   uint32 `json:"mapId"`
}

// command is a client request read from a text message.
type command struct {
	Cmd    string  `json:"cmd"`
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Z      float32 `json:"z"`
	Facing float32 `json:"facing"`
	Locale string  `json:"locale"`
}

// HandleWebSocket accepts an observer connection with DoS protection
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if total := h.ClientCount(); total >= h.cfg.MaxConnections {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}

	guid := bitpack.MakeGUID(bitpack.HighPlayer, 0, observerGUIDBase+h.counter.Add(1))
	s := &observerSession{
		id:     uuid.New().String(),
		ip:     ip,
		conn:   conn,
		player: entity.NewPlayer(guid, h.cfg.SpawnPoint),
		queue:  make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}

	hello := sessionHello{Event: "session", Session: s.id, GUID: guid.String(), MapID: h.world.MapID()}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(hello); err != nil {
		conn.Close()
		h.wsLimiter.Release(ip)
		return
	}

	if err := h.world.Spawn(s.player); err != nil {
		log.Printf("❌ Failed to spawn observer %s: %v", s.id, err)
		conn.Close()
		h.wsLimiter.Release(ip)
		return
	}
	if err := h.world.AddObserver(s.player, s.enqueue); err != nil {
		log.Printf("❌ Failed to register observer %s: %v", s.id, err)
		if err := h.world.Despawn(guid); err != nil {
			log.Printf("⚠️ Despawn of observer %s failed: %v", s.id, err)
		}
		conn.Close()
		h.wsLimiter.Release(ip)
		return
	}

	h.mu.Lock()
	h.sessions[s.id] = s
	count := len(h.sessions)
	h.mu.Unlock()
	log.Printf("📱 Observer %s connected from %s as %v (%d total)", s.id, ip, guid, count)
	UpdateWSConnections(count)

	go h.writeLoop(s)
	go h.readLoop(s)
}

func (h *WebSocketHub) writeLoop(s *observerSession) {
	for {
		select {
		case <-s.done:
			return
		case pkt := <-s.queue:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.BinaryMessage, pkt); err != nil {
				h.closeSession(s)
				return
			}
			IncrementWSMessages()
		}
	}
}

func (h *WebSocketHub) readLoop(s *observerSession) {
	defer h.closeSession(s)

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd command
		if err := json.Unmarshal(message, &cmd); err != nil {
			continue
		}
		h.apply(s, cmd)
	}
}

// apply runs a client command against the observer's player.
func (h *WebSocketHub) apply(s *observerSession, cmd command) {
	switch cmd.Cmd {
	case "move":
		h.world.Mutate(func() {
			s.player.Position = mgl32.Vec3{cmd.X, cmd.Y, cmd.Z}
			s.player.Facing = cmd.Facing
		})
	case "locale":
		h.world.Mutate(func() { s.player.SetLocale(cmd.Locale) })
	default:
		log.Printf("📨 Unknown command from %s: %q", s.id, cmd.Cmd)
	}
}

func (h *WebSocketHub) closeSession(s *observerSession) {
	s.closeOnce.Do(func() {
		close(s.done)
		if err := h.world.Despawn(s.player.GUID()); err != nil {
			log.Printf("⚠️ Despawn of observer %s failed: %v", s.id, err)
		}

		h.mu.Lock()
		delete(h.sessions, s.id)
		count := len(h.sessions)
		h.mu.Unlock()

		h.wsLimiter.Release(s.ip)
		s.conn.Close()
		log.Printf("📱 Observer %s disconnected (%d remaining)", s.id, count)
		UpdateWSConnections(count)
	})
}

// CloseAll disconnects every observer.
func (h *WebSocketHub) CloseAll() {
	h.mu.RLock()
	sessions := make([]*observerSession, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		h.closeSession(s)
	}
}
