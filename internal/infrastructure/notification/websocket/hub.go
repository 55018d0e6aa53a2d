package websocket

import (
	"context"
	"sync"

	"github.com/dreschagin/analytics-validator/internal/validation"
	"github.com/dreschagin/analytics-validator/pkg/logger"
)

// Hub управляет WebSocket клиентами и рассылает результаты валидации.
// Реализует интерфейс validation.CycleListener.
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Канал для broadcast результатов
	broadcast chan validation.CycleResult

	// Канал для регистрации клиентов
	register chan *Client

	// Канал для удаления клиентов
	unregister chan *Client

	// Mutex для защиты clients map и latest
	mu sync.RWMutex

	// Последний разосланный результат; новый клиент получает его сразу,
	// не дожидаясь следующего цикла валидации
	latest *Message

	// Logger
	logger *logger.Logger
}

// NewHub создает новый WebSocket hub
func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan validation.CycleResult, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run запускает hub (должен быть запущен в отдельной goroutine)
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if h.latest != nil {
				h.deliver(client, *h.latest)
			}
			h.mu.Unlock()
			h.logger.Debug("Client registered", "total_clients", len(h.clients))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("Client unregistered", "total_clients", len(h.clients))

		case result := <-h.broadcast:
			message := Message{Type: "validation_result", Data: result}

			h.mu.Lock()
			h.latest = &message
			for client := range h.clients {
				h.deliver(client, message)
			}
			h.mu.Unlock()
		}
	}
}

// deliver кладет сообщение в очередь клиента без блокировки. Клиент с
// заполненной очередью отключается. Вызывается под h.mu.
func (h *Hub) deliver(client *Client, message Message) {
	select {
	case client.send <- message:
		// Сообщение в очереди
	default:
		close(client.send)
		delete(h.clients, client)
		h.logger.Warn("Client channel full, disconnected")
	}
}

// Register регистрирует нового клиента
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister удаляет клиента
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// SendLatest отправляет клиенту последний результат по его запросу
// (команда request_latest)
func (h *Hub) SendLatest(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.latest == nil {
		return
	}
	if _, ok := h.clients[client]; !ok {
		return
	}
	h.deliver(client, *h.latest)
}

// OnCycleResult отправляет результат цикла всем клиентам
// (реализация validation.CycleListener)
func (h *Hub) OnCycleResult(_ context.Context, result validation.CycleResult) {
	select {
	case h.broadcast <- result:
		// Результат отправлен в канал
	default:
		h.logger.Warn("Broadcast channel full, dropping result", "cycle_id", result.ID)
	}
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Message представляет сообщение для отправки клиенту
type Message struct {
	Type string      `json:"type"` // "validation_result"
	Data interface{} `json:"data"`
}
