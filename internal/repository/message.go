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

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) Upsert(ctx context.Context, m *model.Message) error {
	defer logger.DeferLogDuration("msg.Upsert", time.Now())()
	if err := upsertMessage(ctx, r.pool, m); err != nil {
		return fmt.Errorf("msgRepo.Upsert: %w", err)
	}
	return nil
}

func upsertMessage(ctx context.Context, db DBTX, m *model.Message) error {
	doc, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, ts, doc, updated_at)
		 VALUES ($1, $2, $3, $4::jsonb, NOW())
		 ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, ts = EXCLUDED.ts, updated_at = NOW()`,
		m.ID, m.ConversationID, m.Timestamp, doc,
	)
	return err
}

func (r *MessageRepository) Get(ctx context.Context, conversationID, id string) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.Get", time.Now())()
	m := &model.Message{}
	err := scanDoc(r.pool.QueryRow(ctx,
		`SELECT doc FROM messages WHERE id = $1 AND conversation_id = $2`, id, conversationID), m)
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("msgRepo.Get: %w", err)
	}
	return m, nil
}

// ListByConversation возвращает лог чата по времени; limit <= 0: без ограничения.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string, limit int) ([]*model.Message, error) {
	defer logger.DeferLogDuration("msg.ListByConversation", time.Now())()
	query := `SELECT doc FROM (
		SELECT doc, ts, id FROM messages WHERE conversation_id = $1 ORDER BY ts DESC, id DESC LIMIT $2
	) t ORDER BY ts, id`
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := r.pool.Query(ctx, query, conversationID, lim)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.ListByConversation query: %w", err)
	}
	defer rows.Close()
	var out []*model.Message
	for rows.Next() {
		m := &model.Message{}
		if err := scanDoc(rows, m); err != nil {
			return nil, fmt.Errorf("msgRepo.ListByConversation scan: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("msgRepo.ListByConversation rows: %w", err)
	}
	return out, nil
}

// Mutate: чтение-изменение-запись документа сообщения под FOR UPDATE.
func (r *MessageRepository) Mutate(ctx context.Context, conversationID, id string, fn func(m *model.Message) error) error {
	defer logger.DeferLogDuration("msg.Mutate", time.Now())()
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		m := &model.Message{}
		err := scanDoc(tx.QueryRow(ctx,
			`SELECT doc FROM messages WHERE id = $1 AND conversation_id = $2 FOR UPDATE`, id, conversationID), m)
		if err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return err
		}
		return upsertMessage(ctx, tx, m)
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("msgRepo.Mutate %s: %w", id, err)
	}
	return err
}

// HideAllForUser добавляет userID в delete_for всех сообщений чата одним UPDATE.
func (r *MessageRepository) HideAllForUser(ctx context.Context, conversationID, userID string) error {
	defer logger.DeferLogDuration("msg.HideAllForUser", time.Now())()
	if err := hideAllForUser(ctx, r.pool, conversationID, userID); err != nil {
		return fmt.Errorf("msgRepo.HideAllForUser: %w", err)
	}
	return nil
}

func hideAllForUser(ctx context.Context, db DBTX, conversationID, userID string) error {
	_, err := db.Exec(ctx,
		`UPDATE messages
		 SET doc = jsonb_set(doc, '{delete_for}',
		         COALESCE(doc->'delete_for', '[]'::jsonb) || to_jsonb($2::text)),
		     updated_at = NOW()
		 WHERE conversation_id = $1
		   AND NOT COALESCE(doc->'delete_for', '[]'::jsonb) ? $2`,
		conversationID, userID,
	)
	return err
}
