package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/chatsync/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBufSize    = 256
	// за один проход writePump выбирает из очереди не больше стольких событий
	maxBatch = 64

	commandRate  = 20
	commandBurst = 40
)

var bufPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// Client: одно соединение рендер-клиента. Наружу уходят ревизии и ответы на команды,
// внутрь приходят команды. NewClient -> Start -> Close -> Wait.
type Client struct {
	id      string
	hub     *Hub
	conn    *websocket.Conn
	send    chan OutgoingMessage
	userID  string
	limiter *rate.Limiter

	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once
	wg     sync.WaitGroup
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		id:      uuid.NewString(),
		hub:     hub,
		conn:    conn,
		send:    make(chan OutgoingMessage, sendBufSize),
		userID:  userID,
		limiter: rate.NewLimiter(commandRate, commandBurst),
		done:    make(chan struct{}),
	}
}

func (c *Client) Start(ctx context.Context, cancel context.CancelFunc) {
	c.cancel = cancel
	c.wg.Add(2)
	go c.writePump(ctx)
	go c.readPump(ctx)
	logger.Debugf("ws client %s connected user=%s", c.id, c.userID)
}

func (c *Client) Wait() {
	c.wg.Wait()
}

// Close идемпотентен.
func (c *Client) Close() {
	c.once.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

func (c *Client) readPump(ctx context.Context) {
	defer c.wg.Done()
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		logger.Debugf("ws client %s disconnected user=%s", c.id, c.userID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Errorf("ws client %s read deadline: %v", c.id, err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for ctx.Err() == nil {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Errorf("ws client %s read: %v", c.id, err)
			}
			return
		}
		if !c.limiter.Allow() {
			c.hub.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "rate limited"})
			continue
		}
		var msg IncomingMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Warnf("ws client %s malformed command: %v", c.id, err)
			c.hub.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "malformed message"})
			continue
		}
		c.hub.HandleMessage(ctx, c, msg)
	}
}

// writePump пишет события пачками: всё, что накопилось в очереди, склеивается через coalesce,
// так что медленный клиент получает только последние ревизии.
func (c *Client) writePump(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	batch := make([]OutgoingMessage, 0, maxBatch)
	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		case msg := <-c.send:
			batch = append(batch[:0], msg)
		drain:
			for len(batch) < maxBatch {
				select {
				case m := <-c.send:
					batch = append(batch, m)
				default:
					break drain
				}
			}
			for _, m := range coalesce(batch) {
				if err := c.write(m); err != nil {
					logger.Debugf("ws client %s write: %v", c.id, err)
					return
				}
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(msg OutgoingMessage) error {
	buf := bufPool.Get().(*bytes.Buffer)
	defer bufPool.Put(buf)
	buf.Reset()
	if err := json.NewEncoder(buf).Encode(msg); err != nil {
		logger.Errorf("ws client %s encode %s: %v", c.id, msg.Type, err)
		return nil
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
}
