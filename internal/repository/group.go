package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatsync/internal/logger"
	"github.com/chatsync/internal/model"
)

// GroupRepository хранит GroupInfo. Движок только читает; запись: для сидов и админки.
type GroupRepository struct {
	pool *pgxpool.Pool
}

func NewGroupRepository(pool *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{pool: pool}
}

func (r *GroupRepository) Get(ctx context.Context, conversationID string) (*model.GroupInfo, error) {
	defer logger.DeferLogDuration("group.Get", time.Now())()
	g := &model.GroupInfo{}
	err := scanDoc(r.pool.QueryRow(ctx, `SELECT doc FROM group_info WHERE conversation_id = $1`, conversationID), g)
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("groupRepo.Get: %w", err)
	}
	g.ConversationID = conversationID
	if g.MemberCount == 0 {
		g.MemberCount = len(g.Members)
	}
	return g, nil
}

// Group реализует command.GroupSource: нет записи, значит nil без ошибки.
func (r *GroupRepository) Group(ctx context.Context, conversationID string) (*model.GroupInfo, error) {
	g, err := r.Get(ctx, conversationID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return g, err
}

func (r *GroupRepository) Upsert(ctx context.Context, g *model.GroupInfo) error {
	defer logger.DeferLogDuration("group.Upsert", time.Now())()
	doc, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("groupRepo.Upsert marshal: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO group_info (conversation_id, doc, updated_at) VALUES ($1, $2::jsonb, NOW())
		 ON CONFLICT (conversation_id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()`,
		g.ConversationID, doc,
	)
	if err != nil {
		return fmt.Errorf("groupRepo.Upsert: %w", err)
	}
	return nil
}
