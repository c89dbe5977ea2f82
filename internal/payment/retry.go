package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	applog "krishighor/internal/log"
)

// Retrying bounds every charge attempt with Timeout and retries up to
// Retries more times when the provider reports a transient failure or the
// attempt times out. Declines and unsupported methods fail at once.
type Retrying struct {
	Next    Gateway
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

func NewRetrying(next Gateway, timeout time.Duration, retries int) *Retrying {
	return &Retrying{Next: next, Timeout: timeout, Retries: retries, Backoff: 100 * time.Millisecond}
}

func (r *Retrying) Charge(ctx context.Context, orderID string, amount decimal.Decimal, method string) (Receipt, error) {
	backoff := r.Backoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	var lastErr error
	for attempt := 0; attempt <= r.Retries; attempt++ {
		rec, err := r.attempt(ctx, orderID, amount, method)
		if err == nil {
			return rec, nil
		}
		if !transient(err) || ctx.Err() != nil {
			return Receipt{}, err
		}
		lastErr = err
		applog.Warn(nil, "payment.retry", map[string]any{
			"order_id": orderID, "method": method, "attempt": attempt + 1, "err": err.Error(),
		})
		if attempt == r.Retries {
			break
		}

		jitter := time.Duration(rand.Int63n(int64(backoff/4) + 1))
		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		}
		backoff *= 2
	}
	return Receipt{}, fmt.Errorf("%w after %d attempts: %v", ErrUnavailable, r.Retries+1, lastErr)
}

func (r *Retrying) attempt(ctx context.Context, orderID string, amount decimal.Decimal, method string) (Receipt, error) {
	if r.Timeout <= 0 {
		return r.Next.Charge(ctx, orderID, amount, method)
	}
	actx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()
	return r.Next.Charge(actx, orderID, amount, method)
}

func transient(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded)
}
