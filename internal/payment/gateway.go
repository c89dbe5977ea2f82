// Package payment defines the payment gateway contract used when an order
// is not paid on delivery, plus a simulated provider and a retrying wrapper.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrUnsupportedMethod = errors.New("unsupported payment method")
	ErrDeclined          = errors.New("payment declined")
	// ErrUnavailable marks a transient provider failure; only these are retried.
	ErrUnavailable = errors.New("payment provider unavailable")
)

const (
	MethodBkash = "bkash"
	MethodNagad = "nagad"
	MethodCard  = "card"
)

var supported = map[string]bool{MethodBkash: true, MethodNagad: true, MethodCard: true}

// Supported reports whether the gateway can charge with method.
func Supported(method string) bool { return supported[method] }

type Receipt struct {
	TransactionID string
	Method        string
	Amount        decimal.Decimal
}

type Gateway interface {
	Charge(ctx context.Context, orderID string, amount decimal.Decimal, method string) (Receipt, error)
}

// Simulated accepts every supported method and issues a
// "<METHOD>_<uuid>" transaction id. Decline lets tests and demos refuse
// selected charges.
type Simulated struct {
	Decline func(orderID, method string) bool
}

func (s *Simulated) Charge(ctx context.Context, orderID string, amount decimal.Decimal, method string) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if !Supported(method) {
		return Receipt{}, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
	if amount.IsNegative() {
		return Receipt{}, fmt.Errorf("%w: negative amount", ErrDeclined)
	}
	if s.Decline != nil && s.Decline(orderID, method) {
		return Receipt{}, fmt.Errorf("%w: %s refused order %s", ErrDeclined, method, orderID)
	}
	return Receipt{
		TransactionID: strings.ToUpper(method) + "_" + uuid.NewString(),
		Method:        method,
		Amount:        amount,
	}, nil
}
