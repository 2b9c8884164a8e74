package command

import (
	"context"
	"sync"
)

type turnKey struct{}

// turn: очередь движка, захваченная одной командой. Отпускается один раз: перед записью
// в бэкенд или по завершении команды.
type turn struct {
	mu   *sync.Mutex
	once sync.Once
}

func (t *turn) release() { t.once.Do(t.mu.Unlock) }

// begin захватывает очередь движка на локальную часть команды. Возвращённый ctx несёт
// захват: remote отпускает его перед записью в бэкенд. done отпускает очередь, если она
// ещё занята, и пишет метрику команды.
func (s *Service) begin(ctx context.Context, op string, errp *error) (context.Context, func()) {
	s.serial.Lock()
	t := &turn{mu: s.serial}
	return context.WithValue(ctx, turnKey{}, t), func() {
		t.release()
		s.record(op, errp)
	}
}

// yield отпускает очередь, захваченную begin для этого ctx.
func yield(ctx context.Context) {
	if t, ok := ctx.Value(turnKey{}).(*turn); ok {
		t.release()
	}
}

// Locked выполняет fn в очереди движка: лента изменений и команды не пересекаются.
func (s *Service) Locked(fn func()) {
	s.serial.Lock()
	defer s.serial.Unlock()
	fn()
}
