package store

import "sync"

type ChangeKind string

const (
	ChangeConversation ChangeKind = "conversation"
	ChangeMessage      ChangeKind = "message"
)

// Change: уведомление о новой ревизии стора.
type Change struct {
	Kind           ChangeKind
	Revision       uint64
	ConversationID string
	MessageID      string
}

const subscriberBuffer = 64

type notifier struct {
	mu   sync.Mutex
	subs map[int]chan Change
	next int
}

func (n *notifier) subscribe() (<-chan Change, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]chan Change)
	}
	id := n.next
	n.next++
	ch := make(chan Change, subscriberBuffer)
	n.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			if c, ok := n.subs[id]; ok {
				delete(n.subs, id)
				close(c)
			}
		})
	}
}

// publish никогда не блокирует мутацию: у медленного подписчика вытесняется самое старое
// уведомление, последнее всегда доходит.
func (n *notifier) publish(c Change) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- c:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- c:
		default:
		}
	}
}
