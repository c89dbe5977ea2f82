package payment

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedAcceptsKnownMethods(t *testing.T) {
	gw := &Simulated{}
	for _, m := range []string{MethodBkash, MethodNagad, MethodCard} {
		rec, err := gw.Charge(context.Background(), "o-1", decimal.NewFromInt(120), m)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(rec.TransactionID, strings.ToUpper(m)+"_"), rec.TransactionID)
		assert.True(t, rec.Amount.Equal(decimal.NewFromInt(120)))
	}
}

func TestSimulatedRejectsUnknownMethod(t *testing.T) {
	_, err := (&Simulated{}).Charge(context.Background(), "o-1", decimal.NewFromInt(1), "paypal")
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
	assert.False(t, Supported("cash_on_delivery"))
}

type flaky struct {
	calls    atomic.Int32
	failures int32
	err      error
	delay    time.Duration
}

func (f *flaky) Charge(ctx context.Context, orderID string, amount decimal.Decimal, method string) (Receipt, error) {
	n := f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		}
	}
	if n <= f.failures {
		return Receipt{}, f.err
	}
	return Receipt{TransactionID: "CARD_ok", Method: method, Amount: amount}, nil
}

func TestRetryingRecoversFromTransientFailures(t *testing.T) {
	next := &flaky{failures: 2, err: ErrUnavailable}
	gw := &Retrying{Next: next, Timeout: time.Second, Retries: 2, Backoff: time.Millisecond}

	rec, err := gw.Charge(context.Background(), "o-1", decimal.NewFromInt(10), MethodCard)
	require.NoError(t, err)
	assert.Equal(t, "CARD_ok", rec.TransactionID)
	assert.EqualValues(t, 3, next.calls.Load())
}

func TestRetryingGivesUp(t *testing.T) {
	next := &flaky{failures: 10, err: ErrUnavailable}
	gw := &Retrying{Next: next, Timeout: time.Second, Retries: 1, Backoff: time.Millisecond}

	_, err := gw.Charge(context.Background(), "o-1", decimal.NewFromInt(10), MethodCard)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.EqualValues(t, 2, next.calls.Load())
}

func TestRetryingDoesNotRetryDeclines(t *testing.T) {
	next := &flaky{failures: 10, err: ErrDeclined}
	gw := &Retrying{Next: next, Timeout: time.Second, Retries: 3, Backoff: time.Millisecond}

	_, err := gw.Charge(context.Background(), "o-1", decimal.NewFromInt(10), MethodBkash)
	assert.ErrorIs(t, err, ErrDeclined)
	assert.EqualValues(t, 1, next.calls.Load())
}

func TestRetryingTimesOutSlowAttempts(t *testing.T) {
	next := &flaky{delay: 200 * time.Millisecond}
	gw := &Retrying{Next: next, Timeout: 10 * time.Millisecond, Retries: 1, Backoff: time.Millisecond}

	start := time.Now()
	_, err := gw.Charge(context.Background(), "o-1", decimal.NewFromInt(10), MethodNagad)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.EqualValues(t, 2, next.calls.Load())
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}
