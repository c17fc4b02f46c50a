// Package server provides the WebSocket status server. Connected
// clients receive a full status snapshot on join and a refreshed one on
// every broadcast tick, mirroring what the on-device display shows.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/deathly1987/spoolbuddy/buildinfo"
	"github.com/deathly1987/spoolbuddy/nfc"
	"github.com/deathly1987/spoolbuddy/scale"
	"github.com/deathly1987/spoolbuddy/wifi"
)

// MessageTypeStatus is the type field of broadcast status messages.
const MessageTypeStatus = "status"

// Config holds the server settings.
type Config struct {
	Port int

	// APISecret, if non-empty, is required as the ?secret= query
	// parameter on WebSocket connections.
	APISecret string

	// BroadcastInterval is the period between status broadcasts.
	// Zero selects the one-second default.
	BroadcastInterval time.Duration
}

// ScaleStatusPayload is the scale section of a status message.
type ScaleStatusPayload struct {
	Initialized bool    `json:"initialized"`
	WeightGrams float32 `json:"weightGrams"`
	Raw         int32   `json:"raw"`
	Stable      bool    `json:"stable"`
}

// NfcStatusPayload is the NFC section of a status message.
type NfcStatusPayload struct {
	Initialized bool   `json:"initialized"`
	RFOn        bool   `json:"rfOn"`
	CardPresent bool   `json:"cardPresent"`
	UID         string `json:"uid,omitempty"`
	CardType    string `json:"cardType,omitempty"`
	Firmware    string `json:"firmware"`
}

// WifiStatusPayload is the WiFi section of a status message.
type WifiStatusPayload struct {
	State int    `json:"state"`
	SSID  string `json:"ssid,omitempty"`
	IP    string `json:"ip,omitempty"`
	RSSI  int8   `json:"rssi"`
}

// StatusPayload is the payload of a status message.
type StatusPayload struct {
	Scale ScaleStatusPayload `json:"scale"`
	Nfc   NfcStatusPayload   `json:"nfc"`
	Wifi  WifiStatusPayload  `json:"wifi"`
}

// Server broadcasts manager status snapshots over WebSocket.
type Server struct {
	config Config

	scale *scale.Manager
	nfc   *nfc.Manager
	wifi  *wifi.Manager

	httpServer *http.Server
	ctx        context.Context
	cancel     context.CancelFunc
	stopOnce   sync.Once

	upgrader websocket.Upgrader
	clients  *ClientManager
}

// New creates a new status server over the process-wide managers. The
// HTTP server and lifecycle context are set up here, so Stop is safe to
// call at any point relative to Start.
func New(config Config, scaleMgr *scale.Manager, nfcMgr *nfc.Manager, wifiMgr *wifi.Manager) *Server {
	if config.BroadcastInterval <= 0 {
		config.BroadcastInterval = time.Second
	}
	s := &Server{
		config:  config,
		scale:   scaleMgr,
		nfc:     nfcMgr,
		wifi:    wifiMgr,
		clients: NewClientManager(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Port),
		Handler: s.routes(),
	}
	return s
}

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.enableCORS(func(w http.ResponseWriter, r *http.Request) {
		s.handleWebSocket(w, r)
	}))

	mux.HandleFunc("/api/v1/health", s.enableCORS(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodOptions {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "ok",
			"version":   buildinfo.FullVersion(),
			"timestamp": time.Now().Format("2006-01-02T15:04:05Z07:00"),
			"clients":   s.clients.Count(),
		})
	}))

	mux.HandleFunc("/api/v1/status", s.enableCORS(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodOptions {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.Snapshot())
	}))

	mux.HandleFunc("/", s.enableCORS(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(buildinfo.DisplayName + " Status Server"))
	}))

	return mux
}

// Start runs the server and blocks until Stop is called.
func (s *Server) Start() error {
	log.Printf("[status] Starting status server on port %d...", s.config.Port)

	go func() {
		log.Printf("[status] Listening on :%d", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[status] HTTP server error: %v", err)
		}
	}()

	go s.broadcastLoop()

	<-s.ctx.Done()
	log.Printf("[status] Server context cancelled, shutting down...")
	s.clients.CloseAll()

	return nil
}

// Stop stops the server. Safe to call whether or not Start has run;
// a racing Start observes the already-shut-down HTTP server and the
// cancelled context and returns.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(ctx)
		s.cancel()
	})
}

// Snapshot builds a status payload from the current manager state.
func (s *Server) Snapshot() StatusPayload {
	var payload StatusPayload

	scaleStatus := s.scale.Status()
	payload.Scale = ScaleStatusPayload{
		Initialized: scaleStatus.Initialized,
		WeightGrams: scaleStatus.WeightGrams,
		Raw:         scaleStatus.Raw,
		Stable:      scaleStatus.Stable,
	}

	nfcStatus := s.nfc.Status()
	payload.Nfc = NfcStatusPayload{
		Initialized: nfcStatus.Initialized,
		RFOn:        nfcStatus.RFOn,
		CardPresent: nfcStatus.CardPresent,
		Firmware: fmt.Sprintf("%d.%d.%d",
			nfcStatus.Firmware.Major, nfcStatus.Firmware.Minor, nfcStatus.Firmware.Patch),
	}
	if info, ok := s.nfc.CardInfo(); ok {
		payload.Nfc.UID = info.UIDHex()
		payload.Nfc.CardType = info.Type.String()
	}

	wifiState := s.wifi.State()
	payload.Wifi = WifiStatusPayload{State: int(wifiState.Kind)}
	if wifiState.Kind == wifi.StateConnected {
		ip := wifiState.IP
		payload.Wifi.IP = fmt.Sprintf("%d.%d.%d.%d", ip[0], ip[1], ip[2], ip[3])
		payload.Wifi.RSSI = wifiState.RSSI
		payload.Wifi.SSID = s.wifi.SSID()
	}

	return payload
}

// statusMessage wraps the current snapshot in a broadcast envelope.
func (s *Server) statusMessage() WebsocketMessage {
	return WebsocketMessage{
		Type:    MessageTypeStatus,
		Payload: s.Snapshot(),
	}
}

// broadcastLoop pushes a fresh snapshot to all clients on every tick.
func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(s.config.BroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if s.clients.Count() > 0 {
				s.clients.Broadcast(s.statusMessage())
			}
		}
	}
}

// handleWebSocket handles WebSocket connections from clients.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.config.APISecret != "" {
		secret := r.URL.Query().Get("secret")
		if secret != s.config.APISecret {
			log.Printf("[status] WebSocket connection rejected: invalid API secret")
			http.Error(w, "Unauthorized: Invalid API secret", http.StatusUnauthorized)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[status] WebSocket upgrade error: %v", err)
		return
	}

	clientID := uuid.New().String()
	s.clients.Register(conn, clientID)
	log.Printf("[status] Client connected: %s (total: %d)", clientID[:8], s.clients.Count())

	defer func() {
		conn.Close()
		s.clients.Unregister(conn)
		log.Printf("[status] Client disconnected: %s (total: %d)", clientID[:8], s.clients.Count())
	}()

	// Late joiners get a snapshot immediately.
	if err := conn.WriteJSON(s.statusMessage()); err != nil {
		log.Printf("[status] Failed to send initial status: %v", err)
		return
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[status] WebSocket read error: %v", err)
			}
			break
		}

		var req WebsocketMessage
		if err := json.Unmarshal(message, &req); err != nil {
			log.Printf("[status] Failed to parse message: %v", err)
			SendErrorResponse(conn, "error", "Invalid message format")
			continue
		}

		switch req.Type {
		case "getStatus":
			if err := conn.WriteJSON(s.statusMessage()); err != nil {
				log.Printf("[status] Failed to send status: %v", err)
			}
		default:
			log.Printf("[status] Unknown message type: %s", req.Type)
			SendErrorResponse(conn, "error", fmt.Sprintf("Unknown message type: %s", req.Type))
		}
	}
}

// enableCORS adds CORS headers.
func (s *Server) enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}
