package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"helpdesk_chat/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client - одно websocket-соединение. Входящие кадры читает ReadPump,
// исходящие пишет только WritePump из буферизованного канала send.
type Client struct {
	id       string
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	once     sync.Once
	maxFrame int64
	log      logger.Logger
}

func NewClient(conn *websocket.Conn, bufferSize int, maxFrame int64, log logger.Logger) *Client {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	id := uuid.NewString()
	return &Client{
		id:       id,
		conn:     conn,
		send:     make(chan []byte, bufferSize),
		done:     make(chan struct{}),
		maxFrame: maxFrame,
		log:      log.With("conn_id", id),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Push кладет кадр в очередь отправки. Не блокирует: при закрытом
// соединении или переполненном буфере кадр отбрасывается.
func (c *Client) Push(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	case <-c.done:
		return false
	default:
		c.log.Warn("Send buffer full, dropping frame")
		return false
	}
}

// Close просит WritePump отправить close-кадр и закрыть соединение
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// Done закрывается, когда соединение закрыто
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// ReadPump читает кадры и передает их handle по одному. Паника в handle
// перехватывается: клиент получает событие error, цикл продолжается.
func (c *Client) ReadPump(handle func(Envelope)) {
	defer func() {
		c.Close()
		c.conn.Close()
	}()

	if c.maxFrame > 0 {
		c.conn.SetReadLimit(c.maxFrame)
	}
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("WebSocket read error", "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil || env.Event == "" {
			c.log.Debug("Invalid frame format", "error", err)
			c.PushError(ErrorPayload{Code: CodeBadRequest, Message: "invalid frame format"})
			continue
		}

		c.dispatch(handle, env)
	}
}

func (c *Client) dispatch(handle func(Envelope), env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Panic in event handler", "event", env.Event, "panic", fmt.Sprint(r))
			c.PushError(ErrorPayload{Event: env.Event, Code: CodeInternal, Message: "internal error"})
		}
	}()
	handle(env)
}

// PushError отправляет событие error
func (c *Client) PushError(payload ErrorPayload) bool {
	frame, err := Encode(EventError, payload)
	if err != nil {
		c.log.Error("Failed to encode error event", "error", err)
		return false
	}
	return c.Push(frame)
}

// WritePump пишет кадры из очереди и пингует клиента
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug("WebSocket write failed", "error", err)
				c.Close()
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
