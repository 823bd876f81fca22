package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"FXBias/internal/domain/models"
	"FXBias/internal/services/scoring"
	"FXBias/internal/usecase"
	xlogger "FXBias/pkg/logger"
)

const (
	streamWriteWait = 10 * time.Second
	streamReadLimit = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage is the envelope of every stream message.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type statePayload struct {
	AnalysisData     models.AnalysisData           `json:"analysisData"`
	Overview         models.Overview               `json:"overview"`
	RiskSentiment    *models.RiskSentimentAnalysis `json:"riskSentiment,omitempty"`
	UseScoreModifier bool                          `json:"useScoreModifier"`
	UseRiskModifier  bool                          `json:"useRiskModifier"`
}

// StreamHandler pushes the session state to websocket clients after every
// committed update. Only the latest pending state is kept; slow clients
// skip intermediate states.
type StreamHandler struct {
	logger  *xlogger.Logger
	session *usecase.Session

	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex

	updates     chan models.SessionState
	done        chan struct{}
	unsubscribe func()
	closeOnce   sync.Once
}

func NewStreamHandler(logger *xlogger.Logger, session *usecase.Session) *StreamHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	h := &StreamHandler{
		logger:  logger,
		session: session,
		clients: make(map[*websocket.Conn]*sync.Mutex),
		updates: make(chan models.SessionState, 1),
		done:    make(chan struct{}),
	}
	h.unsubscribe = session.Subscribe(h.enqueue)
	go h.loop()
	return h
}

func (h *StreamHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/stream", h.Serve)
}

// enqueue replaces any state still waiting to be broadcast.
func (h *StreamHandler) enqueue(st models.SessionState) {
	for {
		select {
		case h.updates <- st:
			return
		default:
		}
		select {
		case <-h.updates:
		default:
		}
	}
}

func (h *StreamHandler) loop() {
	for {
		select {
		case <-h.done:
			return
		case st := <-h.updates:
			h.broadcast(h.stateMessage(st))
		}
	}
}

func (h *StreamHandler) stateMessage(st models.SessionState) []byte {
	data, err := json.Marshal(WSMessage{
		Type: "state",
		Payload: statePayload{
			AnalysisData:     st.AnalysisData,
			Overview:         scoring.BuildOverview(st.AnalysisData, h.session.Currencies()),
			RiskSentiment:    st.RiskSentiment,
			UseScoreModifier: st.UseScoreModifier,
			UseRiskModifier:  st.UseRiskModifier,
		},
	})
	if err != nil {
		h.logger.Error("marshal stream state failed", xlogger.Error(err))
		return nil
	}
	return data
}

func (h *StreamHandler) broadcast(data []byte) {
	if data == nil {
		return
	}
	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn, m := range h.clients {
		clients = append(clients, conn)
		mutexes = append(mutexes, m)
	}
	h.mu.RUnlock()

	for i, conn := range clients {
		if err := h.write(conn, mutexes[i], data); err != nil {
			h.logger.Warn("stream write failed", xlogger.Error(err))
		}
	}
}

func (h *StreamHandler) write(conn *websocket.Conn, m *sync.Mutex, data []byte) error {
	m.Lock()
	defer m.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Serve upgrades the request and keeps the connection until the client
// goes away.
func (h *StreamHandler) Serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	// the server read timeout must not end long-lived streams
	_ = conn.SetReadDeadline(time.Time{})
	conn.SetReadLimit(streamReadLimit)

	m := &sync.Mutex{}
	h.mu.Lock()
	h.clients[conn] = m
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("stream client connected", xlogger.Int("clients", total))

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		remaining := len(h.clients)
		h.mu.Unlock()
		_ = conn.Close()
		h.logger.Debug("stream client disconnected", xlogger.Int("clients", remaining))
	}()

	if err := h.write(conn, m, h.stateMessage(h.session.Snapshot())); err != nil {
		return nil
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn("stream read error", xlogger.Error(err))
			}
			return nil
		}
	}
}

// Close stops broadcasting and disconnects every client.
func (h *StreamHandler) Close() error {
	h.closeOnce.Do(func() {
		h.unsubscribe()
		close(h.done)
		h.mu.Lock()
		for conn := range h.clients {
			_ = conn.Close()
		}
		h.mu.Unlock()
	})
	return nil
}
