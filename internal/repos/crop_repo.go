package repos

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"krishighor/internal/domain"
)

type CropRepo struct{ s *Store }

func NewCropRepo(s *Store) *CropRepo { return &CropRepo{s: s} }

const cropColumns = `id, name, type, region, price, quantity`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func cropWhere(f domain.CropFilter) (string, []any) {
	where := `1 = 1`
	var args []any
	if f.Search != "" {
		where += ` AND LOWER(name) LIKE ? ESCAPE '\'`
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(f.Search))+"%")
	}
	if f.Type != "" {
		where += ` AND type = ?`
		args = append(args, f.Type)
	}
	if f.Region != "" {
		where += ` AND region = ?`
		args = append(args, f.Region)
	}
	return where, args
}

// Search returns one page of crops matching f, ordered by id.
func (r *CropRepo) Search(ctx context.Context, f domain.CropFilter, limit, offset int) ([]domain.Crop, error) {
	q := r.s.conn(ctx)
	where, args := cropWhere(f)
	args = append(args, limit, offset)

	out := []domain.Crop{}
	err := sqlx.SelectContext(ctx, q, &out, q.Rebind(`
	  SELECT `+cropColumns+`
	  FROM crops
	  WHERE `+where+`
	  ORDER BY id
	  LIMIT ? OFFSET ?`), args...)
	return out, err
}

func (r *CropRepo) Count(ctx context.Context, f domain.CropFilter) (int, error) {
	q := r.s.conn(ctx)
	where, args := cropWhere(f)
	var n int
	err := sqlx.GetContext(ctx, q, &n, q.Rebind(`SELECT COUNT(*) FROM crops WHERE `+where), args...)
	return n, err
}

// All returns the whole catalog; it feeds index training.
func (r *CropRepo) All(ctx context.Context) ([]domain.Crop, error) {
	q := r.s.conn(ctx)
	out := []domain.Crop{}
	err := sqlx.SelectContext(ctx, q, &out, `SELECT `+cropColumns+` FROM crops ORDER BY id`)
	return out, err
}

func (r *CropRepo) Get(ctx context.Context, id int64) (domain.Crop, error) {
	q := r.s.conn(ctx)
	var c domain.Crop
	err := sqlx.GetContext(ctx, q, &c, q.Rebind(`SELECT `+cropColumns+` FROM crops WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrCropNotFound
	}
	return c, err
}

// Create inserts a crop and returns it with its store-assigned id.
func (r *CropRepo) Create(ctx context.Context, c domain.Crop) (domain.Crop, error) {
	q := r.s.conn(ctx)
	err := sqlx.GetContext(ctx, q, &c.ID, q.Rebind(`
	  INSERT INTO crops(name, type, region, price, quantity)
	  VALUES (?, ?, ?, ?, ?)
	  RETURNING id`), c.Name, c.Type, c.Region, c.Price, c.Quantity)
	return c, err
}

// Decrement atomically subtracts n units if enough stock exists. It returns
// ErrCropNotFound or ErrInsufficientStock when nothing was updated.
func (r *CropRepo) Decrement(ctx context.Context, id int64, n int) error {
	q := r.s.conn(ctx)
	res, err := q.ExecContext(ctx, q.Rebind(`
	  UPDATE crops
	  SET quantity = quantity - ?
	  WHERE id = ? AND quantity >= ?`), n, id, n)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 1 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return ErrInsufficientStock
}

// CheckPrice compares a submitted unit price with the catalog price.
func (r *CropRepo) CheckPrice(ctx context.Context, id int64, price decimal.Decimal) error {
	c, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if !c.Price.Equal(price) {
		return ErrPriceChanged
	}
	return nil
}

// SetQuantity overwrites stock for a crop. Used by seeding and restock tooling.
func (r *CropRepo) SetQuantity(ctx context.Context, id int64, qty int) error {
	q := r.s.conn(ctx)
	res, err := q.ExecContext(ctx, q.Rebind(`UPDATE crops SET quantity = ? WHERE id = ?`), qty, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCropNotFound
	}
	return nil
}
