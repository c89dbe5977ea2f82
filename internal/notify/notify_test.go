package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"krishighor/internal/domain"
	"krishighor/internal/repos"
)

func sampleConfirmation(id string) Confirmation {
	return Confirmation{
		Order: domain.Order{
			ID: id, UserID: "u-1", TotalAmount: decimal.NewFromInt(120), Status: domain.StatusPending,
			PaymentMethod: domain.MethodCashOnDelivery, PaymentStatus: domain.PaymentPending,
			ShippingAddress: "House 12, Road 5, Dhanmondi", ShippingRegion: "Dhaka",
			ShippingPhone: "01711111111", ShippingEmail: "buyer@krishighor.test",
		},
		Items: []domain.OrderItem{{
			OrderID: id, LineNo: 1, CropID: 2, Quantity: 3, CropName: "Wheat",
			UnitPrice: decimal.NewFromInt(40), TotalPrice: decimal.NewFromInt(120),
		}},
	}
}

type recorder struct {
	name string
	err  error
	mu   sync.Mutex
	got  []string
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Notify(ctx context.Context, c Confirmation) error {
	r.mu.Lock()
	r.got = append(r.got, c.Order.ID)
	r.mu.Unlock()
	return r.err
}

type panicky struct{}

func (panicky) Name() string { return "panicky" }

func (panicky) Notify(ctx context.Context, c Confirmation) error { panic("boom") }

func TestDispatcherDeliversToEveryNotifier(t *testing.T) {
	failing := &recorder{name: "failing", err: errors.New("smtp down")}
	ok := &recorder{name: "ok"}
	d := NewDispatcher(2, 8, time.Second, failing, panicky{}, ok)

	for _, id := range []string{"a", "b", "c"} {
		require.True(t, d.Dispatch(sampleConfirmation(id)))
	}
	d.Close()

	assert.ElementsMatch(t, []string{"a", "b", "c"}, ok.got, "a failing or panicking notifier must not stop the others")
	assert.Len(t, failing.got, 3)
	assert.False(t, d.Dispatch(sampleConfirmation("late")), "closed dispatcher rejects work")
}

type blocking struct{ release chan struct{} }

func (b blocking) Name() string { return "blocking" }

func (b blocking) Notify(ctx context.Context, c Confirmation) error {
	<-b.release
	return nil
}

func TestDispatchNeverBlocks(t *testing.T) {
	b := blocking{release: make(chan struct{})}
	d := NewDispatcher(1, 1, time.Second, b)

	accepted := 0
	for i := 0; i < 5; i++ {
		if d.Dispatch(sampleConfirmation("x")) {
			accepted++
		}
	}
	assert.Less(t, accepted, 5)
	close(b.release)
	d.Close()
}

func TestOutboxNotifierAndRelay(t *testing.T) {
	ctx := context.Background()
	s, err := repos.OpenDB(repos.DriverSQLite, ":memory:", 0)
	require.NoError(t, err)
	defer s.Close()
	outbox := repos.NewOutboxRepo(s)

	n := &OutboxNotifier{Outbox: outbox, Topic: "order-confirmations"}
	require.NoError(t, n.Notify(ctx, sampleConfirmation("o-1")))
	require.NoError(t, n.Notify(ctx, sampleConfirmation("o-2")))

	prod := &fakeProducer{}
	relay := &Relay{Outbox: outbox, Producer: prod}
	sent, err := relay.RelayOnce(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	require.Len(t, prod.pushed, 2)
	assert.Equal(t, "o-1", prod.pushed[0].Key)

	var ev struct {
		Event string       `json:"event"`
		Order domain.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(prod.pushed[0].Value, &ev))
	assert.Equal(t, "order.confirmed", ev.Event)
	assert.True(t, ev.Order.TotalAmount.Equal(decimal.NewFromInt(120)))

	again, err := relay.RelayOnce(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestRelayKeepsRowsWhenBrokerFails(t *testing.T) {
	ctx := context.Background()
	s, err := repos.OpenDB(repos.DriverSQLite, ":memory:", 0)
	require.NoError(t, err)
	defer s.Close()
	outbox := repos.NewOutboxRepo(s)
	require.NoError(t, outbox.Add(ctx, "t", "k", []byte(`{}`)))

	relay := &Relay{Outbox: outbox, Producer: &fakeProducer{err: errors.New("broker down")}}
	_, err = relay.RelayOnce(ctx, 10)
	require.Error(t, err)

	pending, err := outbox.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

type fakeProducer struct {
	err    error
	pushed []Message
}

func (f *fakeProducer) Push(messages []Message) error {
	if f.err != nil {
		return f.err
	}
	f.pushed = append(f.pushed, messages...)
	return nil
}
func (f *fakeProducer) Close() error { return nil }

func TestMailNotifier(t *testing.T) {
	m, err := NewMailNotifier("smtp.krishighor.test", 587, "mailer", "secret", "")
	require.NoError(t, err)

	var gotTo []string
	var gotMsg string
	m.Send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		assert.Equal(t, "smtp.krishighor.test:587", addr)
		assert.Equal(t, "mailer", from)
		gotTo, gotMsg = to, string(msg)
		return nil
	}

	require.NoError(t, m.Notify(context.Background(), sampleConfirmation("o-9")))
	assert.Equal(t, []string{"buyer@krishighor.test"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: KrishiGhor Order Confirmation - #o-9")
	assert.Contains(t, gotMsg, "Wheat")
	assert.Contains(t, gotMsg, "BDT 120.00")
	assert.Contains(t, gotMsg, "Cash On Delivery")

	noEmail := sampleConfirmation("o-10")
	noEmail.Order.ShippingEmail = ""
	gotMsg = ""
	require.NoError(t, m.Notify(context.Background(), noEmail))
	assert.True(t, strings.TrimSpace(gotMsg) == "", "no shipping email means no mail")
}
