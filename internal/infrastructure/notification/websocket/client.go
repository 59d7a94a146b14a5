package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dreschagin/self-configuration/internal/application/conversation"
	"github.com/dreschagin/self-configuration/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	// Время ожидания для write операций
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Интервал ping сообщений (должен быть меньше pongWait)
	pingPeriod = 54 * time.Second

	// Максимальный размер входящего сообщения
	maxMessageSize = 4096

	// Время на обработку одного chat-сообщения
	chatTimeout = 30 * time.Second
)

// ChatProcessor обрабатывает chat-сообщения клиентов
type ChatProcessor interface {
	Process(ctx context.Context, req conversation.Request) (conversation.Reply, error)
}

// inboundMessage представляет сообщение от клиента
type inboundMessage struct {
	Type      string                 `json:"type"`
	SessionID string                 `json:"session_id,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Intent    string                 `json:"intent,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// Client представляет WebSocket клиента
type Client struct {
	conn      *websocket.Conn
	hub       *Hub
	chat      ChatProcessor
	sessionID string
	send      chan Message
	logger    *logger.Logger
}

// NewClient создает нового WebSocket клиента. chat может быть nil: тогда входящие сообщения игнорируются.
// sessionID привязывает разговор к соединению; пустой sessionID берется из каждого сообщения.
func NewClient(hub *Hub, conn *websocket.Conn, chat ChatProcessor, sessionID string, logger *logger.Logger) *Client {
	return &Client{
		conn:      conn,
		hub:       hub,
		chat:      chat,
		sessionID: sessionID,
		send:      make(chan Message, 256),
		logger:    logger,
	}
}

// SessionID возвращает сессию разговора соединения
func (c *Client) SessionID() string {
	return c.sessionID
}

// Greet отправляет клиенту его сессию разговора
func (c *Client) Greet() {
	if c.sessionID == "" {
		return
	}
	c.reply(Message{Type: MessageTypeSession, Data: map[string]string{"session_id": c.sessionID}})
}

// ReadPump читает сообщения от клиента
// Запускается в отдельной goroutine
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		if err := c.conn.Close(); err != nil {
			c.logger.Debug("WebSocket close error", "error", err.Error())
		}
	}()

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("WebSocket set read deadline error", err)
		return
	}
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error", err)
			}
			break
		}

		c.handleInbound(data)
	}
}

func (c *Client) handleInbound(data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply(Message{Type: MessageTypeError, Data: "malformed message"})
		return
	}

	if msg.Type != MessageTypeChat || c.chat == nil {
		return
	}

	sessionID := c.sessionID
	if sessionID == "" {
		sessionID = msg.SessionID
	}

	ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
	defer cancel()

	reply, err := c.chat.Process(ctx, conversation.Request{
		SessionID: sessionID,
		Message:   msg.Message,
		Intent:    msg.Intent,
		Context:   msg.Context,
	})
	if err != nil {
		c.logger.Error("Chat processing failed", err, "session_id", sessionID)
		c.reply(Message{Type: MessageTypeError, Data: "failed to process message"})
		return
	}

	c.reply(Message{Type: MessageTypeChatReply, Data: reply})
}

// reply ставит ответ в очередь отправки, не блокируясь на переполненном канале
func (c *Client) reply(message Message) {
	defer func() {
		// Канал мог быть закрыт hub'ом
		_ = recover()
	}()

	select {
	case c.send <- message:
	default:
		c.logger.Warn("Client channel full, dropping reply", "type", message.Type)
	}
}

// WritePump отправляет сообщения клиенту
// Запускается в отдельной goroutine
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("WebSocket set write deadline error", err)
				return
			}
			if !ok {
				// Hub закрыл канал
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("WebSocket close message error", "error", err.Error())
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
