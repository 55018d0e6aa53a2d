package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dreschagin/analytics-validator/pkg/logger"
)

const (
	// Время ожидания для write операций
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Интервал ping сообщений (должен быть меньше pongWait)
	pingPeriod = 54 * time.Second

	// Максимальный размер входящей команды от dashboard-клиента
	maxCommandSize = 512
)

// clientCommand — входящее сообщение от dashboard-клиента. Единственная
// поддерживаемая команда — request_latest: клиент, подключившийся посреди
// интервала валидации, запрашивает последний результат не дожидаясь
// следующего цикла.
type clientCommand struct {
	Type string `json:"type"`
}

const commandRequestLatest = "request_latest"

// Client представляет подключенного dashboard-клиента.
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	// Очередь исходящих сообщений; заполняется hub'ом
	send chan Message

	logger *logger.Logger
}

// NewClient создает клиента для принятого WebSocket соединения.
func NewClient(hub *Hub, conn *websocket.Conn, logger *logger.Logger) *Client {
	return &Client{
		conn:   conn,
		hub:    hub,
		send:   make(chan Message, 256),
		logger: logger,
	}
}

// ReadPump читает команды клиента и поддерживает pong-дедлайны.
// Запускается в отдельной goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		if err := c.conn.Close(); err != nil {
			c.logger.Error("WebSocket close error", err)
		}
	}()

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("WebSocket set read deadline error", err)
		return
	}
	c.conn.SetReadLimit(maxCommandSize)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error", err)
			}
			return
		}

		c.handleCommand(payload)
	}
}

// handleCommand разбирает команду клиента. Неизвестные команды и мусор
// игнорируются: дешевле, чем рвать соединение живого dashboard'а.
func (c *Client) handleCommand(payload []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		c.logger.Debug("Ignoring malformed client command", "error", err.Error())
		return
	}

	switch cmd.Type {
	case commandRequestLatest:
		c.hub.SendLatest(c)
	default:
		c.logger.Debug("Ignoring unknown client command", "type", cmd.Type)
	}
}

// WritePump отправляет результаты валидации клиенту и шлет ping'и.
// Запускается в отдельной goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			c.logger.Error("WebSocket close error", err)
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("WebSocket set write deadline error", err)
				return
			}
			if !ok {
				// Hub отключил клиента
				closeFrame := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "hub shutdown")
				if err := c.conn.WriteMessage(websocket.CloseMessage, closeFrame); err != nil {
					c.logger.Error("WebSocket close message error", err)
				}
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("WebSocket write error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("WebSocket set write deadline error", err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
