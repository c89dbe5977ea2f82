package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"krishighor/internal/domain"
)

type OrderRepo struct{ s *Store }

func NewOrderRepo(s *Store) *OrderRepo { return &OrderRepo{s: s} }

const orderColumns = `id, user_id, order_date, total_amount, status, payment_method, payment_status,
	payment_reference, shipping_address, shipping_region, shipping_phone, shipping_email`

// Create inserts a new order header.
func (r *OrderRepo) Create(ctx context.Context, o domain.Order) error {
	q := r.s.conn(ctx)
	_, err := q.ExecContext(ctx, q.Rebind(`
	  INSERT INTO orders
	    (id, user_id, order_date, total_amount, status, payment_method, payment_status,
	     payment_reference, shipping_address, shipping_region, shipping_phone, shipping_email)
	  VALUES
	    (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), o.ID, o.UserID, o.OrderDate, o.TotalAmount, o.Status, o.PaymentMethod, o.PaymentStatus,
		o.PaymentReference, o.ShippingAddress, o.ShippingRegion, o.ShippingPhone, o.ShippingEmail)
	return err
}

// InsertItem inserts a single line item.
func (r *OrderRepo) InsertItem(ctx context.Context, it domain.OrderItem) error {
	q := r.s.conn(ctx)
	_, err := q.ExecContext(ctx, q.Rebind(`
	  INSERT INTO order_items(order_id, line_no, crop_id, quantity, unit_price, total_price)
	  VALUES(?, ?, ?, ?, ?, ?)
	`), it.OrderID, it.LineNo, it.CropID, it.Quantity, it.UnitPrice, it.TotalPrice)
	return err
}

func (r *OrderRepo) Get(ctx context.Context, orderID string) (domain.Order, error) {
	q := r.s.conn(ctx)
	var o domain.Order
	err := sqlx.GetContext(ctx, q, &o, q.Rebind(`SELECT `+orderColumns+` FROM orders WHERE id = ?`), orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return o, ErrOrderNotFound
	}
	return o, err
}

// Items returns the lines of an order with crop details joined in.
func (r *OrderRepo) Items(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	q := r.s.conn(ctx)
	items := []domain.OrderItem{}
	err := sqlx.SelectContext(ctx, q, &items, q.Rebind(`
		SELECT oi.order_id, oi.line_no, oi.crop_id, oi.quantity, oi.unit_price, oi.total_price,
		       COALESCE(c.name, '') AS crop_name, COALESCE(c.type, '') AS crop_type,
		       COALESCE(c.region, '') AS crop_region
		FROM order_items oi
		LEFT JOIN crops c ON c.id = oi.crop_id
		WHERE oi.order_id = ?
		ORDER BY oi.line_no
	`), orderID)
	return items, err
}

// ListByUser returns a page of a user's orders, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Order, error) {
	q := r.s.conn(ctx)
	out := []domain.Order{}
	err := sqlx.SelectContext(ctx, q, &out, q.Rebind(`
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = ?
		ORDER BY order_date DESC, id DESC
		LIMIT ? OFFSET ?
	`), userID, limit, offset)
	return out, err
}

func (r *OrderRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	q := r.s.conn(ctx)
	var n int
	err := sqlx.GetContext(ctx, q, &n, q.Rebind(`SELECT COUNT(*) FROM orders WHERE user_id = ?`), userID)
	return n, err
}

// SetPaymentStatus records the outcome of the payment stage.
func (r *OrderRepo) SetPaymentStatus(ctx context.Context, id, status, reference string) error {
	q := r.s.conn(ctx)
	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE orders SET payment_status = ?, payment_reference = ? WHERE id = ?
	`), status, reference, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}
	return nil
}
