package repos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type OutboxStatus int

const (
	OutboxPending OutboxStatus = 1
	OutboxSent    OutboxStatus = 2
)

// OutboxMessage is an event waiting to be relayed to the message broker.
type OutboxMessage struct {
	ID        int64        `db:"id"`
	Topic     string       `db:"topic"`
	Key       string       `db:"msg_key"`
	Content   []byte       `db:"content"`
	Status    OutboxStatus `db:"status"`
	CreatedAt string       `db:"created_at"`
	SentAt    string       `db:"sent_at"`
}

type OutboxRepo struct{ s *Store }

func NewOutboxRepo(s *Store) *OutboxRepo { return &OutboxRepo{s: s} }

func (r *OutboxRepo) Add(ctx context.Context, topic, key string, content []byte) error {
	q := r.s.conn(ctx)
	_, err := q.ExecContext(ctx, q.Rebind(`
		INSERT INTO outbox(topic, msg_key, content, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), topic, key, content, OutboxPending, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// Pending returns up to limit unsent messages, oldest first.
func (r *OutboxRepo) Pending(ctx context.Context, limit int) ([]OutboxMessage, error) {
	q := r.s.conn(ctx)
	out := []OutboxMessage{}
	err := sqlx.SelectContext(ctx, q, &out, q.Rebind(`
		SELECT id, topic, msg_key, content, status, created_at, sent_at
		FROM outbox
		WHERE status = ?
		ORDER BY id
		LIMIT ?
	`), OutboxPending, limit)
	return out, err
}

func (r *OutboxRepo) MarkSent(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE outbox SET status = ?, sent_at = ? WHERE id IN (?)`,
		OutboxSent, time.Now().UTC().Format(time.RFC3339Nano), ids)
	if err != nil {
		return err
	}
	q := r.s.conn(ctx)
	_, err = q.ExecContext(ctx, q.Rebind(query), args...)
	return err
}
