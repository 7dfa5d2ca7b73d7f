// Package websocket транслирует ход прогона подключённым клиентам.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
)

const (
	writeWait   = 2 * time.Second
	sendBacklog = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message событие, отправляемое клиентам в JSON.
type Message struct {
	Type       string             `json:"type"` // "item" или "finished"
	Run        string             `json:"run"`
	File       string             `json:"file,omitempty"`
	Detections []entity.Detection `json:"detections,omitempty"`
	Error      string             `json:"error,omitempty"`
	Completed  int                `json:"completed"`
	Total      int                `json:"total"`
	Canceled   bool               `json:"canceled,omitempty"`
}

// Hub держит подключения и рассылает им события прогона.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mutex      sync.RWMutex
	logger     logrus.FieldLogger
}

// NewHub создаёт хаб; Run нужно запустить отдельно.
func NewHub(logger logrus.FieldLogger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, sendBacklog),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		logger:     logger,
	}
}

// Run обслуживает регистрацию и рассылку до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mutex.Unlock()
			h.logger.WithField("clients", n).Info("client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			n := len(h.clients)
			h.mutex.Unlock()
			h.logger.WithField("clients", n).Info("client disconnected")

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				_ = client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.WithError(err).Warn("error sending message")
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// ServeHTTP переводит запрос в websocket и держит соединение до его закрытия клиентом.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("upgrade error")
		return
	}

	select {
	case h.register <- conn:
	case <-r.Context().Done():
		conn.Close()
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			select {
			case h.unregister <- conn:
			case <-r.Context().Done():
			}
			return
		}
	}
}

// ClientCount число подключённых клиентов
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// OnItem отправляет событие об обработанном файле.
func (h *Hub) OnItem(ctx context.Context, ev entity.ItemEvent) error {
	msg := Message{
		Type:       "item",
		Run:        ev.RunID,
		File:       ev.Result.Item.Name(),
		Detections: ev.Result.Detections,
		Completed:  ev.Completed,
		Total:      ev.Total,
		Canceled:   ev.Canceled,
	}
	if ev.Result.Err != nil {
		msg.Error = ev.Result.Err.Error()
	}
	return h.send(msg)
}

// OnRunFinished отправляет итог прогона.
func (h *Hub) OnRunFinished(ctx context.Context, result *entity.RunResult) error {
	return h.send(Message{
		Type:      "finished",
		Run:       result.ID,
		Completed: result.Completed(),
		Total:     result.Total,
		Canceled:  result.Canceled,
	})
}

func (h *Hub) send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	// Медленные клиенты не должны тормозить воркеры: при заполненной очереди событие теряется.
	select {
	case h.broadcast <- data:
	default:
		h.logger.WithFields(logrus.Fields{"type": msg.Type, "run": msg.Run}).Warn("broadcast queue full, message dropped")
	}
	return nil
}

var (
	_ port.Observer    = (*Hub)(nil)
	_ port.RunFinisher = (*Hub)(nil)
)
