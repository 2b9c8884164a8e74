package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatsync/internal/engine"
	"github.com/chatsync/internal/model"
	"github.com/chatsync/internal/repository"
	"github.com/chatsync/internal/service"
	"github.com/chatsync/internal/startup"
	"github.com/chatsync/internal/storage/memory"
)

// snapshot: JSON-файл с документами в том же виде, что и в хранилище.
type snapshot struct {
	Conversations []*model.Conversation          `json:"conversations"`
	Messages      []*model.Message               `json:"messages"`
	Settings      map[string]*model.UserSettings `json:"settings,omitempty"`
}

func readSnapshot(path string) (*snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &s, nil
}

func (s *snapshot) ConversationsFor(ctx context.Context, userID string) ([]*model.Conversation, error) {
	var out []*model.Conversation
	for _, c := range s.Conversations {
		if c.Participants.Has(userID) {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

// MessagesOf отдаёт последние limit сообщений чата по времени.
func (s *snapshot) MessagesOf(ctx context.Context, conversationID string, limit int) ([]*model.Message, error) {
	var out []*model.Message
	for _, m := range s.Messages {
		if m.ConversationID == conversationID {
			out = append(out, m.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// openEngine поднимает движок пользователя поверх снимка или базы.
// release освобождает пул соединений, если он был открыт.
func openEngine(ctx context.Context, o *options) (e *engine.Engine, release func(), err error) {
	settings := service.NewSettingsService(memory.New())
	release = func() {}
	var loader engine.Loader
	switch {
	case o.file != "":
		snap, err := readSnapshot(o.file)
		if err != nil {
			return nil, release, err
		}
		if us := snap.Settings[o.user]; us != nil {
			if err := settings.Save(ctx, o.user, *us); err != nil {
				return nil, release, err
			}
		}
		loader = snap
	case o.databaseURL != "":
		poolCfg, err := pgxpool.ParseConfig(o.databaseURL)
		if err != nil {
			return nil, release, fmt.Errorf("parse db config: %w", err)
		}
		pool, err := startup.ConnectDB(ctx, poolCfg, 10*time.Second, "inspect: ")
		if err != nil {
			return nil, release, err
		}
		release = pool.Close
		loader = &repository.Documents{
			Conversations: repository.NewConversationRepository(pool),
			Messages:      repository.NewMessageRepository(pool),
			Groups:        repository.NewGroupRepository(pool),
		}
	default:
		return nil, release, fmt.Errorf("either --file or --db is required")
	}

	loc, err := time.LoadLocation(o.tz)
	if err != nil {
		return nil, release, fmt.Errorf("timezone %q: %w", o.tz, err)
	}
	reg := engine.NewRegistry(engine.Options{
		Loader:   loader,
		Settings: settings,
		Location: loc,
		Now:      o.now,
	})
	e, err = reg.Get(ctx, o.user)
	if err != nil {
		return nil, release, err
	}
	if o.lockedView {
		if _, err := e.Commands().ToggleLockedView(o.passcode); err != nil {
			return nil, release, err
		}
	}
	return e, release, nil
}
