package ws

import (
	"context"
	"sync"
	"time"

	"github.com/chatsync/internal/logger"
)

// Executor выполняет входящую команду от имени пользователя (engine.Registry).
type Executor interface {
	Execute(ctx context.Context, userID string, in IncomingMessage) (any, error)
}

type Hub struct {
	mu         sync.RWMutex
	clients    map[string]map[*Client]struct{}
	total      int
	maxConns   int
	exec       Executor
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(maxConns int) *Hub {
	if maxConns <= 0 {
		maxConns = 10000
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		maxConns:   maxConns,
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
	}
}

// SetExecutor подключает исполнителя команд. Вызывается до Run.
func (h *Hub) SetExecutor(e Executor) {
	h.exec = e
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) shutdown() {
	// Клиентов собираем под блокировкой, закрываем без неё.
	h.mu.Lock()
	all := make([]*Client, 0, h.total)
	for _, clients := range h.clients {
		for c := range clients {
			all = append(all, c)
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	h.total = 0
	h.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
	for _, c := range all {
		c.Wait()
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.total >= h.maxConns {
		logger.Errorf("ws connection limit reached (%d), rejecting user=%s", h.maxConns, c.userID)
		c.Close()
		return
	}
	if _, ok := h.clients[c.userID]; !ok {
		h.clients[c.userID] = make(map[*Client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	h.total++
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	clients, ok := h.clients[c.userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := clients[c]; !exists {
		h.mu.Unlock()
		return
	}
	delete(clients, c)
	h.total--
	if len(clients) == 0 {
		delete(h.clients, c.userID)
	}
	h.mu.Unlock()

	c.Close()
}

// Connected сообщает, есть ли у пользователя открытые соединения.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// HandleMessage выполняет входящую команду и отвечает command_ok или command_failed.
// typing не обрабатывается.
func (h *Hub) HandleMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	switch msg.Type {
	case EventTyping:
		return
	case EventSendMessage, EventEditMessage, EventDeleteMessage,
		EventReactionAdded, EventReactionRemoved, EventVote:
	default:
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "unknown event type"})
		return
	}
	if h.exec == nil {
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "commands unavailable"})
		return
	}
	defer logger.DeferLogDuration("ws."+string(msg.Type), time.Now())()

	result, err := h.exec.Execute(ctx, c.userID, msg)
	payload := CommandResultPayload{RequestID: msg.RequestID, Op: string(msg.Type)}
	if err != nil {
		payload.Error = err.Error()
		h.sendToClient(c, OutgoingMessage{Type: EventCommandFailed, Payload: payload})
		return
	}
	payload.Result = result
	h.sendToClient(c, OutgoingMessage{Type: EventCommandOK, Payload: payload})
}

// SendToUser отправляет событие во все соединения пользователя.
func (h *Hub) SendToUser(userID string, msg OutgoingMessage) {
	h.mu.RLock()
	clients, ok := h.clients[userID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	targets := make([]*Client, 0, len(clients))
	for c := range clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.sendToClient(c, msg)
	}
}

func (h *Hub) sendToClient(c *Client, msg OutgoingMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		// Буфер отправки полон: медленный клиент закрывается.
		logger.Errorf("ws send buffer full, closing slow client user=%s", c.userID)
		c.Close()
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
