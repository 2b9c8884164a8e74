package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatsync/internal/logger"
	"github.com/chatsync/internal/model"
)

type ConversationRepository struct {
	pool *pgxpool.Pool
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

func (r *ConversationRepository) Upsert(ctx context.Context, c *model.Conversation) error {
	defer logger.DeferLogDuration("conversation.Upsert", time.Now())()
	if err := upsertConversation(ctx, r.pool, c); err != nil {
		return fmt.Errorf("conversationRepo.Upsert: %w", err)
	}
	return nil
}

func upsertConversation(ctx context.Context, db DBTX, c *model.Conversation) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx,
		`INSERT INTO conversations (id, participants, doc, updated_at)
		 VALUES ($1, $2, $3::jsonb, NOW())
		 ON CONFLICT (id) DO UPDATE SET participants = EXCLUDED.participants, doc = EXCLUDED.doc, updated_at = NOW()`,
		c.ID, c.Participants.Slice(), doc,
	)
	return err
}

func (r *ConversationRepository) Get(ctx context.Context, id string) (*model.Conversation, error) {
	defer logger.DeferLogDuration("conversation.Get", time.Now())()
	c := &model.Conversation{}
	if err := scanDoc(r.pool.QueryRow(ctx, `SELECT doc FROM conversations WHERE id = $1`, id), c); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("conversationRepo.Get: %w", err)
	}
	return c, nil
}

// ListForUser: все чаты, где userID среди участников.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID string) ([]*model.Conversation, error) {
	defer logger.DeferLogDuration("conversation.ListForUser", time.Now())()
	rows, err := r.pool.Query(ctx, `SELECT doc FROM conversations WHERE $1 = ANY(participants)`, userID)
	if err != nil {
		return nil, fmt.Errorf("conversationRepo.ListForUser query: %w", err)
	}
	defer rows.Close()
	var out []*model.Conversation
	for rows.Next() {
		c := &model.Conversation{}
		if err := scanDoc(rows, c); err != nil {
			return nil, fmt.Errorf("conversationRepo.ListForUser scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversationRepo.ListForUser rows: %w", err)
	}
	return out, nil
}

func (r *ConversationRepository) Delete(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("conversation.Delete", time.Now())()
	tag, err := r.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("conversationRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Mutate читает документ под FOR UPDATE, меняет его fn и пишет обратно одной транзакцией.
func (r *ConversationRepository) Mutate(ctx context.Context, id string, fn func(c *model.Conversation) error) error {
	defer logger.DeferLogDuration("conversation.Mutate", time.Now())()
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return mutateConversation(ctx, tx, id, fn)
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("conversationRepo.Mutate %s: %w", id, err)
	}
	return err
}

func mutateConversation(ctx context.Context, tx DBTX, id string, fn func(c *model.Conversation) error) error {
	c := &model.Conversation{}
	if err := scanDoc(tx.QueryRow(ctx, `SELECT doc FROM conversations WHERE id = $1 FOR UPDATE`, id), c); err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}
	return upsertConversation(ctx, tx, c)
}
