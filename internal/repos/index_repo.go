package repos

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// IndexArtifact is a persisted recommendation index, opaque to the store.
type IndexArtifact struct {
	Version       int64  `db:"version"`
	SchemaVersion int    `db:"schema_version"`
	CreatedAt     string `db:"created_at"`
	Payload       []byte `db:"payload"`
}

// IndexRepo keeps trained recommendation indexes. Only the newest few
// versions are retained.
type IndexRepo struct {
	s    *Store
	Keep int
}

func NewIndexRepo(s *Store) *IndexRepo { return &IndexRepo{s: s, Keep: 3} }

func (r *IndexRepo) Save(ctx context.Context, a IndexArtifact) error {
	if a.CreatedAt == "" {
		a.CreatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	return r.s.Atomically(ctx, func(ctx context.Context) error {
		q := r.s.conn(ctx)
		if _, err := q.ExecContext(ctx, q.Rebind(`
			INSERT INTO recommendation_indexes(version, schema_version, created_at, payload)
			VALUES (?, ?, ?, ?)
		`), a.Version, a.SchemaVersion, a.CreatedAt, a.Payload); err != nil {
			return err
		}
		_, err := q.ExecContext(ctx, q.Rebind(`
			DELETE FROM recommendation_indexes
			WHERE version NOT IN (
			  SELECT version FROM recommendation_indexes ORDER BY version DESC LIMIT ?
			)
		`), r.Keep)
		return err
	})
}

// Latest returns the newest artifact, or ok=false when none was saved yet.
func (r *IndexRepo) Latest(ctx context.Context) (a IndexArtifact, ok bool, err error) {
	q := r.s.conn(ctx)
	err = sqlx.GetContext(ctx, q, &a, `
		SELECT version, schema_version, created_at, payload
		FROM recommendation_indexes
		ORDER BY version DESC
		LIMIT 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return a, false, nil
	}
	if err != nil {
		return a, false, err
	}
	return a, true, nil
}
