package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"

	"fieldsync/internal/api"
	"fieldsync/internal/bitpack"
	"fieldsync/internal/config"
	"fieldsync/internal/entity"
	"fieldsync/internal/packet"
	"fieldsync/internal/replication"
	"fieldsync/internal/visibility"
)

var wolfID = bitpack.MakeGUID(bitpack.HighCreature, 299, 7)

func newTestWorld(t *testing.T) *replication.World {
	t.Helper()
	w := replication.NewWorld(config.DefaultReplication(), visibility.DefaultStore())
	if err := w.Spawn(entity.NewCreature(wolfID, 299, mgl32.Vec3{100, 100, 0})); err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	return w
}

func newTestRouter(t *testing.T, w *replication.World, burst int) http.Handler {
	t.Helper()
	limiter := api.NewIPRateLimiter(api.RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             burst,
		CleanupInterval:   time.Hour,
	})
	t.Cleanup(limiter.Stop)
	return api.NewRouter(api.RouterConfig{World: w, RateLimiter: limiter, DisableLogging: true})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	return rec
}

// TestGetStats tests the /api/stats endpoint
func TestGetStats(t *testing.T) {
	h := newTestRouter(t, newTestWorld(t), 100)

	rec := get(t, h, "/api/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var stats replication.Stats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("Bad JSON: %v", err)
	}
	if stats.Entities != 1 || stats.Observers != 0 {
		t.Errorf("Expected 1 entity and no observers, got %+v", stats)
	}
}

// TestGetEntities tests the /api/entities endpoint
func TestGetEntities(t *testing.T) {
	h := newTestRouter(t, newTestWorld(t), 100)

	rec := get(t, h, "/api/entities")
	var list []replication.EntitySummary
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("Bad JSON: %v", err)
	}
	if len(list) != 1 || list[0].GUID != wolfID.String() || list[0].Kind != entity.KindUnit.String() {
		t.Errorf("Unexpected entities %+v", list)
	}
}

// TestGetSchemas tests the schema listing and detail endpoints
func TestGetSchemas(t *testing.T) {
	h := newTestRouter(t, newTestWorld(t), 100)

	var list []struct {
		Name   string         `json:"name"`
		Bits   int            `json:"bits"`
		ByFlag map[string]int `json:"byFlag"`
	}
	if err := json.NewDecoder(get(t, h, "/api/schemas").Body).Decode(&list); err != nil {
		t.Fatalf("Bad JSON: %v", err)
	}
	if len(list) != len(entity.Kinds()) {
		t.Fatalf("Expected %d schemas, got %d", len(entity.Kinds()), len(list))
	}

	tests := []struct {
		path string
		code int
	}{
		{"/api/schemas/UnitData", http.StatusOK},
		{"/api/schemas/unitdata", http.StatusOK},
		{"/api/schemas/NoSuchData", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, h, tt.path)
			if rec.Code != tt.code {
				t.Fatalf("Expected status %d, got %d", tt.code, rec.Code)
			}
			if tt.code != http.StatusOK {
				return
			}
			var detail struct {
				Bits    int `json:"bits"`
				Details []struct {
					Required string `json:"required"`
				} `json:"details"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&detail); err != nil {
				t.Fatalf("Bad JSON: %v", err)
			}
			if len(detail.Details) != detail.Bits {
				t.Errorf("Expected one detail per bit, got %d for %d bits", len(detail.Details), detail.Bits)
			}
		})
	}
}

// TestRateLimiting verifies requests beyond the burst are rejected
func TestRateLimiting(t *testing.T) {
	h := newTestRouter(t, newTestWorld(t), 2)

	for i := 0; i < 2; i++ {
		if rec := get(t, h, "/health"); rec.Code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i, rec.Code)
		}
	}
	rec := get(t, h, "/health")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 after the burst, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Expected a Retry-After header")
	}
}

// TestIsAllowedOrigin checks the origin patterns
func TestIsAllowedOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"", false},
		{"http://localhost", true},
		{"http://localhost:5173", true},
		{"http://127.0.0.1:3000", true},
		{"http://localhost.evil.example", false},
		{"https://example.com", false},
	}
	for _, tt := range tests {
		if got := api.IsAllowedOrigin(tt.origin); got != tt.want {
			t.Errorf("IsAllowedOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func dial(t *testing.T, ts *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

// TestWebSocketObserverReceivesPackets connects an observer and decodes its first packet
func TestWebSocketObserverReceivesPackets(t *testing.T) {
	world := newTestWorld(t)
	server := api.NewServer(world, config.DefaultServer(), 100)
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	conn, _, err := dial(t, ts, "http://localhost:3000")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello struct {
		Event string `json:"event"`
		GUID  string `json:"guid"`
	}
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("Reading hello failed: %v", err)
	}
	if hello.Event != "session" || hello.GUID == "" {
		t.Fatalf("Unexpected hello %+v", hello)
	}

	// The hello is written before the observer is registered.
	deadline := time.Now().Add(2 * time.Second)
	for world.Stats().Observers == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	world.Tick()

	kind, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Reading packet failed: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("Expected a binary packet, got message type %d", kind)
	}
	pkt, err := packet.Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	seen := map[string]packet.UpdateType{}
	for _, b := range pkt.Blocks {
		seen[b.GUID.String()] = b.Type
	}
	if seen[hello.GUID] != packet.CreateObject2 {
		t.Errorf("Expected a create for the observer's own player, got %v", seen)
	}
	if seen[wolfID.String()] != packet.CreateObject2 {
		t.Errorf("Expected a create for the nearby wolf, got %v", seen)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for world.Stats().Observers != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s := world.Stats(); s.Observers != 0 || s.Entities != 1 {
		t.Errorf("Expected the observer and its player removed on disconnect, got %+v", s)
	}
}

// TestWebSocketRejectsForeignOrigin verifies the origin check
func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	server := api.NewServer(newTestWorld(t), config.DefaultServer(), 100)
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	conn, resp, err := dial(t, ts, "https://example.com")
	if err == nil {
		conn.Close()
		t.Fatal("Expected the handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %v", resp)
	}
}

// refusingWorld accepts spawns but refuses every observer.
type refusingWorld struct {
	*replication.World
	despawns atomic.Int32
}

func (w *refusingWorld) AddObserver(o *entity.Object, send replication.Sender) error {
	return errors.New("observers disabled")
}

func (w *refusingWorld) Despawn(g bitpack.ObjectGUID) error {
	w.despawns.Add(1)
	return w.World.Despawn(g)
}

// TestWebSocketObserverRegistrationFailure verifies the spawned player is
// removed and the connection closed when the world refuses the observer
func TestWebSocketObserverRegistrationFailure(t *testing.T) {
	world := &refusingWorld{World: newTestWorld(t)}
	server := api.NewServer(world, config.DefaultServer(), 100)
	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	conn, _, err := dial(t, ts, "http://localhost:3000")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello struct {
		Event string `json:"event"`
	}
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("Reading hello failed: %v", err)
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected the server to close the connection")
	}

	if n := world.despawns.Load(); n != 1 {
		t.Errorf("Expected 1 despawn of the refused player, got %d", n)
	}
	if s := world.Stats(); s.Entities != 1 || s.Observers != 0 {
		t.Errorf("Expected only the wolf left, got %+v", s)
	}
	if n := server.Hub().ClientCount(); n != 0 {
		t.Errorf("Expected no sessions, got %d", n)
	}
}
