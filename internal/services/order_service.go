package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"krishighor/internal/domain"
	"krishighor/internal/invoice"
	applog "krishighor/internal/log"
	"krishighor/internal/notify"
	"krishighor/internal/payment"
	"krishighor/internal/repos"
	"krishighor/internal/validate"
)

const (
	PriceVerify = "verify"
	PriceTrust  = "trust"
)

// Confirmer hands a committed order to the notification pipeline.
type Confirmer interface {
	Dispatch(c notify.Confirmation) bool
}

// OrderService turns an order request into a committed order: validate,
// price, persist order/items/stock in one unit of work, charge, confirm.
type OrderService struct {
	Store    *repos.Store
	Crops    *repos.CropRepo
	Orders   *repos.OrderRepo
	Payments payment.Gateway
	Confirm  Confirmer
	Invoices invoice.Renderer

	PricePolicy string
	now         func() time.Time
}

func NewOrderService(store *repos.Store, crops *repos.CropRepo, orders *repos.OrderRepo,
	payments payment.Gateway, confirm Confirmer, invoices invoice.Renderer, pricePolicy string) *OrderService {
	if pricePolicy != PriceTrust {
		pricePolicy = PriceVerify
	}
	return &OrderService{
		Store:       store,
		Crops:       crops,
		Orders:      orders,
		Payments:    payments,
		Confirm:     confirm,
		Invoices:    invoices,
		PricePolicy: pricePolicy,
		now:         time.Now,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}

// validate checks the request and returns the order header and its lines
// with per-line totals filled in.
func (s *OrderService) validate(req domain.OrderRequest) (domain.Order, []domain.OrderItem, error) {
	var o domain.Order
	user, ok := validate.UserID(req.UserID)
	if !ok {
		return o, nil, invalid("user_id is required")
	}
	if len(req.Items) == 0 {
		return o, nil, invalid("items must not be empty")
	}
	addr, ok := validate.Text(req.ShippingInfo.Address, 500)
	if !ok {
		return o, nil, invalid("shipping_info.address is required")
	}
	if strings.TrimSpace(req.ShippingInfo.Phone) == "" {
		return o, nil, invalid("shipping_info.phone is required")
	}
	phone, ok := validate.Phone(req.ShippingInfo.Phone)
	if !ok {
		return o, nil, invalid("shipping_info.phone is not a valid phone number")
	}
	email, ok := validate.Email(req.ShippingInfo.Email)
	if !ok {
		return o, nil, invalid("shipping_info.email is not a valid address")
	}
	region := strings.TrimSpace(req.ShippingInfo.Region)
	if len([]rune(region)) > 100 {
		return o, nil, invalid("shipping_info.region is too long")
	}

	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		method = domain.MethodCashOnDelivery
	}
	if method != domain.MethodCashOnDelivery && !payment.Supported(method) {
		return o, nil, fmt.Errorf("%w: %w %q", domain.ErrPayment, payment.ErrUnsupportedMethod, method)
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for i, l := range req.Items {
		n := i + 1
		switch {
		case l.ID == nil:
			return o, nil, invalid("item %d: id is required", n)
		case strings.TrimSpace(l.Name) == "":
			return o, nil, invalid("item %d: name is required", n)
		case l.Price == nil:
			return o, nil, invalid("item %d: price is required", n)
		case l.Price.IsNegative():
			return o, nil, invalid("item %d: price must not be negative", n)
		case l.Quantity == nil:
			return o, nil, invalid("item %d: quantity is required", n)
		case *l.Quantity <= 0:
			return o, nil, invalid("item %d: quantity must be positive", n)
		}
		items = append(items, domain.OrderItem{
			LineNo:     n,
			CropID:     *l.ID,
			Quantity:   *l.Quantity,
			UnitPrice:  *l.Price,
			TotalPrice: l.Price.Mul(decimal.NewFromInt(int64(*l.Quantity))),
			CropName:   strings.TrimSpace(l.Name),
		})
	}

	o = domain.Order{
		UserID:          user,
		Status:          domain.StatusPending,
		PaymentMethod:   method,
		PaymentStatus:   domain.PaymentPending,
		ShippingAddress: addr,
		ShippingRegion:  region,
		ShippingPhone:   phone,
		ShippingEmail:   email,
	}
	return o, items, nil
}

// Total sums the line totals and rounds to the cent.
func Total(items []domain.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.TotalPrice)
	}
	return total.Round(2)
}

// Create places an order. Once the unit of work commits the order exists,
// even if the payment that follows fails; in that case the error wraps
// domain.ErrPayment and the order is left with payment_status "failed".
func (s *OrderService) Create(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	o, items, err := s.validate(req)
	if err != nil {
		applog.Warn(nil, "order.reject", map[string]any{"user_id": req.UserID, "reason": err.Error()})
		return domain.OrderResult{}, err
	}
	o.TotalAmount = Total(items)

	err = s.Store.Atomically(ctx, func(ctx context.Context) error {
		// Fresh identity per attempt so a retried unit never collides with itself.
		o.ID = uuid.NewString()
		o.OrderDate = s.now().UTC().Format(domain.OrderDateLayout)
		if err := s.Orders.Create(ctx, o); err != nil {
			return err
		}
		for i := range items {
			it := &items[i]
			it.OrderID = o.ID
			if s.PricePolicy == PriceVerify {
				if err := s.Crops.CheckPrice(ctx, it.CropID, it.UnitPrice); err != nil {
					return fmt.Errorf("item %d (crop %d): %w", it.LineNo, it.CropID, err)
				}
			}
			if err := s.Crops.Decrement(ctx, it.CropID, it.Quantity); err != nil {
				return fmt.Errorf("item %d (crop %d): %w", it.LineNo, it.CropID, err)
			}
			if err := s.Orders.InsertItem(ctx, *it); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, repos.ErrInsufficientStock), errors.Is(err, repos.ErrCropNotFound), errors.Is(err, repos.ErrPriceChanged):
			applog.Warn(nil, "order.reject", map[string]any{"user_id": o.UserID, "reason": err.Error()})
			return domain.OrderResult{}, fmt.Errorf("%w: %w", domain.ErrValidation, err)
		default:
			applog.Error(nil, "order.persist", err, map[string]any{"user_id": o.UserID})
			return domain.OrderResult{}, fmt.Errorf("%w: create order: %w", domain.ErrStore, err)
		}
	}
	applog.Audit(nil, "order.create", map[string]any{
		"order_id": o.ID, "user_id": o.UserID, "total": o.TotalAmount.StringFixed(2),
		"items": len(items), "payment_method": o.PaymentMethod,
	})

	res := domain.OrderResult{OrderID: o.ID, TotalAmount: o.TotalAmount, PaymentStatus: o.PaymentStatus}
	if o.PaymentMethod != domain.MethodCashOnDelivery {
		if err := s.pay(ctx, &o); err != nil {
			res.PaymentStatus = o.PaymentStatus
			return res, err
		}
		res.PaymentStatus = o.PaymentStatus
	}

	if s.Confirm != nil && !s.Confirm.Dispatch(notify.Confirmation{Order: o, Items: items}) {
		applog.Warn(nil, "order.confirm.dropped", map[string]any{"order_id": o.ID})
	}
	return res, nil
}

func (s *OrderService) pay(ctx context.Context, o *domain.Order) error {
	receipt, payErr := s.Payments.Charge(ctx, o.ID, o.TotalAmount, o.PaymentMethod)
	status, ref := domain.PaymentCompleted, receipt.TransactionID
	if payErr != nil {
		status, ref = domain.PaymentFailed, ""
	}
	o.PaymentStatus, o.PaymentReference = status, ref

	// The charge outcome is recorded even if the caller has gone away.
	if err := s.Orders.SetPaymentStatus(context.WithoutCancel(ctx), o.ID, status, ref); err != nil {
		applog.Error(nil, "order.payment.record", err, map[string]any{"order_id": o.ID, "payment_status": status})
		if payErr == nil {
			return fmt.Errorf("%w: record payment: %w", domain.ErrStore, err)
		}
	}
	if payErr != nil {
		applog.Warn(nil, "order.payment.failed", map[string]any{"order_id": o.ID, "method": o.PaymentMethod, "reason": payErr.Error()})
		return fmt.Errorf("%w: %w", domain.ErrPayment, payErr)
	}
	applog.Audit(nil, "order.payment.completed", map[string]any{"order_id": o.ID, "method": o.PaymentMethod, "reference": ref})
	return nil
}

// History returns one page of a user's orders, newest first, with items.
func (s *OrderService) History(ctx context.Context, userID string, page, perPage int) (domain.OrderPage, error) {
	user, ok := validate.UserID(userID)
	if !ok {
		return domain.OrderPage{}, invalid("user_id is required")
	}
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 10
	}

	total, err := s.Orders.CountByUser(ctx, user)
	if err != nil {
		return domain.OrderPage{}, fmt.Errorf("%w: count orders: %w", domain.ErrStore, err)
	}
	orders, err := s.Orders.ListByUser(ctx, user, perPage, (page-1)*perPage)
	if err != nil {
		return domain.OrderPage{}, fmt.Errorf("%w: list orders: %w", domain.ErrStore, err)
	}
	for i := range orders {
		items, err := s.Orders.Items(ctx, orders[i].ID)
		if err != nil {
			return domain.OrderPage{}, fmt.Errorf("%w: order items: %w", domain.ErrStore, err)
		}
		orders[i].Items = items
	}
	return domain.OrderPage{Orders: orders, Page: page, PerPage: perPage, Total: total}, nil
}

// Invoice writes the PDF invoice for orderID to w.
func (s *OrderService) Invoice(ctx context.Context, orderID string, w io.Writer) error {
	id, ok := validate.OrderID(orderID)
	if !ok {
		return fmt.Errorf("%w: order %q", domain.ErrNotFound, orderID)
	}
	o, err := s.Orders.Get(ctx, id)
	if errors.Is(err, repos.ErrOrderNotFound) {
		return fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("%w: load order: %w", domain.ErrStore, err)
	}
	items, err := s.Orders.Items(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: order items: %w", domain.ErrStore, err)
	}
	if err := s.Invoices.Render(w, o, items); err != nil {
		return fmt.Errorf("render invoice: %w", err)
	}
	applog.Info(nil, "order.invoice", map[string]any{"order_id": id})
	return nil
}
