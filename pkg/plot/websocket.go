package plot

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raykavin/tradesim/pkg/logger"
	"github.com/raykavin/tradesim/pkg/simulation"
)

const (
	MessageInitialData = "initialData"
	MessageTick        = "tick"
	MessageClosed      = "closed"

	writeWait = 10 * time.Second
)

// WebSocketMessage represents a message sent over WebSocket
type WebSocketMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// WebSocketManager streams session snapshots and tick events to clients
type WebSocketManager struct {
	sync.RWMutex
	clients  map[*websocket.Conn]string // connection to session id
	upgrader websocket.Upgrader
	manager  *simulation.Manager
	log      logger.Logger
}

// NewWebSocketManager creates a new WebSocket manager
func NewWebSocketManager(log logger.Logger, manager *simulation.Manager) *WebSocketManager {
	return &WebSocketManager{
		clients: make(map[*websocket.Conn]string),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		manager: manager,
		log:     log,
	}
}

// Clients returns the number of connected clients
func (m *WebSocketManager) Clients() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.clients)
}

// HandleWebSocket serves GET /ws?session={id}
func (m *WebSocketManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		http.Error(w, "Missing session parameter", http.StatusBadRequest)
		return
	}

	session, err := m.manager.Get(id)
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.Error("Failed to upgrade connection to WebSocket: ", err)
		return
	}

	m.Lock()
	m.clients[conn] = id
	clientCount := len(m.clients)
	m.Unlock()

	m.log.WithField("session", id).Infof("WebSocket client connected, total: %d", clientCount)

	// Subscribe before the snapshot so no tick falls between them
	events, cancel := session.Feed().Subscribe(simulation.DefaultFeedBuffer)
	closed := make(chan struct{})

	go m.handleClient(conn, closed)
	go m.stream(conn, session, events, cancel, closed)
}

// handleClient reads until the client goes away
func (m *WebSocketManager) handleClient(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	conn.SetPingHandler(func(string) error {
		return conn.WriteControl(websocket.PongMessage, []byte{}, time.Now().Add(writeWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.log.Error("WebSocket read error: ", err)
			}
			return
		}
	}
}

// stream owns every write on conn
func (m *WebSocketManager) stream(conn *websocket.Conn, session *simulation.Session, events <-chan simulation.TickEvent, cancel func(), closed <-chan struct{}) {
	defer func() {
		cancel()
		m.Lock()
		delete(m.clients, conn)
		remaining := len(m.clients)
		m.Unlock()
		conn.Close()
		m.log.Infof("WebSocket client disconnected, remaining: %d", remaining)
	}()

	if err := m.write(conn, MessageInitialData, session.Snapshot()); err != nil {
		m.log.Error("Error sending initial data: ", err)
		return
	}

	for {
		select {
		case <-closed:
			return
		case event, ok := <-events:
			if !ok {
				_ = m.write(conn, MessageClosed, map[string]string{"session_id": session.ID()})
				return
			}
			if err := m.write(conn, MessageTick, event); err != nil {
				m.log.Error("Error sending WebSocket message: ", err)
				return
			}
		}
	}
}

func (m *WebSocketManager) write(conn *websocket.Conn, kind string, payload any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(WebSocketMessage{Type: kind, Payload: payload})
}
