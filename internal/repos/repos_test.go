package repos_test

import (
	"context"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"krishighor/internal/domain"
	"krishighor/internal/repos"
)

func memStore(t *testing.T) *repos.Store {
	t.Helper()
	s, err := repos.OpenDB(repos.DriverSQLite, ":memory:", 0)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func addCrop(t *testing.T, r *repos.CropRepo, name, typ, region string, price int64, qty int) domain.Crop {
	t.Helper()
	c, err := r.Create(context.Background(), domain.Crop{
		Name: name, Type: typ, Region: region, Price: decimal.NewFromInt(price), Quantity: qty,
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCropSearchFiltersAndPaging(t *testing.T) {
	ctx := context.Background()
	crops := repos.NewCropRepo(memStore(t))
	addCrop(t, crops, "Miniket Rice", "rice", "Dinajpur", 68, 10)
	addCrop(t, crops, "BR-28 Rice", "rice", "Mymensingh", 58, 10)
	addCrop(t, crops, "Rice_Bran", "feed", "Dinajpur", 20, 10)
	addCrop(t, crops, "Potato", "vegetable", "Munshiganj", 30, 10)

	got, err := crops.Search(ctx, domain.CropFilter{Search: "RICE"}, 12, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("case-insensitive search: want 3, got %d", len(got))
	}

	got, _ = crops.Search(ctx, domain.CropFilter{Search: "rice", Type: "rice", Region: "Dinajpur"}, 12, 0)
	if len(got) != 1 || got[0].Name != "Miniket Rice" {
		t.Fatalf("conjunctive filters: %+v", got)
	}

	// underscore is literal, not a wildcard
	got, _ = crops.Search(ctx, domain.CropFilter{Search: "e_b"}, 12, 0)
	if len(got) != 1 || got[0].Name != "Rice_Bran" {
		t.Fatalf("escaped search: %+v", got)
	}

	page2, _ := crops.Search(ctx, domain.CropFilter{}, 3, 3)
	if len(page2) != 1 || page2[0].Name != "Potato" {
		t.Fatalf("offset paging: %+v", page2)
	}
	n, err := crops.Count(ctx, domain.CropFilter{Type: "rice"})
	if err != nil || n != 2 {
		t.Fatalf("count = %d, %v", n, err)
	}
}

func TestDecrementIsConditional(t *testing.T) {
	ctx := context.Background()
	crops := repos.NewCropRepo(memStore(t))
	c := addCrop(t, crops, "Wheat", "grain", "Thakurgaon", 40, 3)

	if err := crops.Decrement(ctx, c.ID, 2); err != nil {
		t.Fatal(err)
	}
	if err := crops.Decrement(ctx, c.ID, 2); !errors.Is(err, repos.ErrInsufficientStock) {
		t.Fatalf("want ErrInsufficientStock, got %v", err)
	}
	if err := crops.Decrement(ctx, 999, 1); !errors.Is(err, repos.ErrCropNotFound) {
		t.Fatalf("want ErrCropNotFound, got %v", err)
	}
	got, _ := crops.Get(ctx, c.ID)
	if got.Quantity != 1 {
		t.Fatalf("quantity = %d, want 1", got.Quantity)
	}
}

func TestCheckPrice(t *testing.T) {
	ctx := context.Background()
	crops := repos.NewCropRepo(memStore(t))
	c := addCrop(t, crops, "Litchi", "fruit", "Dinajpur", 400, 3)

	if err := crops.CheckPrice(ctx, c.ID, decimal.RequireFromString("400.00")); err != nil {
		t.Fatalf("equal price rejected: %v", err)
	}
	if err := crops.CheckPrice(ctx, c.ID, decimal.NewFromInt(1)); !errors.Is(err, repos.ErrPriceChanged) {
		t.Fatalf("want ErrPriceChanged, got %v", err)
	}
}

func TestAtomicallyRollsBack(t *testing.T) {
	ctx := context.Background()
	s := memStore(t)
	crops := repos.NewCropRepo(s)
	orders := repos.NewOrderRepo(s)
	c := addCrop(t, crops, "Potato", "vegetable", "Munshiganj", 30, 5)

	boom := errors.New("boom")
	err := s.Atomically(ctx, func(ctx context.Context) error {
		o := domain.Order{ID: "o-1", UserID: "u-1", OrderDate: "2026-01-01T00:00:00.000000Z",
			TotalAmount: decimal.NewFromInt(30), Status: domain.StatusPending,
			PaymentMethod: domain.MethodCashOnDelivery, PaymentStatus: domain.PaymentPending,
			ShippingAddress: "Dhaka", ShippingPhone: "01700000000"}
		if err := orders.Create(ctx, o); err != nil {
			return err
		}
		if err := crops.Decrement(ctx, c.ID, 1); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if _, err := orders.Get(ctx, "o-1"); !errors.Is(err, repos.ErrOrderNotFound) {
		t.Fatalf("order should be rolled back, got %v", err)
	}
	got, _ := crops.Get(ctx, c.ID)
	if got.Quantity != 5 {
		t.Fatalf("stock should be restored, got %d", got.Quantity)
	}
}

func TestOrderItemsAndHistory(t *testing.T) {
	ctx := context.Background()
	s := memStore(t)
	crops := repos.NewCropRepo(s)
	orders := repos.NewOrderRepo(s)
	c := addCrop(t, crops, "Brinjal", "vegetable", "Jessore", 45, 5)

	for i, date := range []string{"2026-01-01T10:00:00.000000Z", "2026-01-02T10:00:00.000000Z"} {
		o := domain.Order{ID: []string{"a", "b"}[i], UserID: "u-9", OrderDate: date,
			TotalAmount: decimal.NewFromInt(45), Status: domain.StatusPending,
			PaymentMethod: "card", PaymentStatus: domain.PaymentPending,
			ShippingAddress: "Khulna", ShippingPhone: "01700000000"}
		if err := orders.Create(ctx, o); err != nil {
			t.Fatal(err)
		}
		it := domain.OrderItem{OrderID: o.ID, LineNo: 1, CropID: c.ID, Quantity: 1,
			UnitPrice: decimal.NewFromInt(45), TotalPrice: decimal.NewFromInt(45)}
		if err := orders.InsertItem(ctx, it); err != nil {
			t.Fatal(err)
		}
	}

	list, err := orders.ListByUser(ctx, "u-9", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "b" {
		t.Fatalf("want newest first, got %+v", list)
	}
	items, err := orders.Items(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].CropName != "Brinjal" || items[0].CropRegion != "Jessore" {
		t.Fatalf("joined items: %+v", items)
	}
	if err := orders.SetPaymentStatus(ctx, "a", domain.PaymentCompleted, "CARD_x"); err != nil {
		t.Fatal(err)
	}
	o, _ := orders.Get(ctx, "a")
	if o.PaymentStatus != domain.PaymentCompleted || o.PaymentReference != "CARD_x" {
		t.Fatalf("payment status not stored: %+v", o)
	}
	if n, _ := orders.CountByUser(ctx, "u-9"); n != 2 {
		t.Fatalf("count = %d", n)
	}
}

func TestOutboxLifecycle(t *testing.T) {
	ctx := context.Background()
	outbox := repos.NewOutboxRepo(memStore(t))
	for _, k := range []string{"o-1", "o-2", "o-3"} {
		if err := outbox.Add(ctx, "order-confirmations", k, []byte(`{"order":"`+k+`"}`)); err != nil {
			t.Fatal(err)
		}
	}
	pending, err := outbox.Pending(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 || pending[0].Key != "o-1" {
		t.Fatalf("pending: %+v", pending)
	}
	if err := outbox.MarkSent(ctx, []int64{pending[0].ID, pending[1].ID}); err != nil {
		t.Fatal(err)
	}
	rest, _ := outbox.Pending(ctx, 10)
	if len(rest) != 1 || rest[0].Key != "o-3" {
		t.Fatalf("remaining: %+v", rest)
	}
}

func TestIndexRepoKeepsNewest(t *testing.T) {
	ctx := context.Background()
	idx := repos.NewIndexRepo(memStore(t))
	idx.Keep = 2

	if _, ok, err := idx.Latest(ctx); err != nil || ok {
		t.Fatalf("empty repo: ok=%v err=%v", ok, err)
	}
	for v := int64(1); v <= 3; v++ {
		if err := idx.Save(ctx, repos.IndexArtifact{Version: v, SchemaVersion: 1, Payload: []byte{byte(v)}}); err != nil {
			t.Fatal(err)
		}
	}
	a, ok, err := idx.Latest(ctx)
	if err != nil || !ok || a.Version != 3 || a.Payload[0] != 3 {
		t.Fatalf("latest = %+v ok=%v err=%v", a, ok, err)
	}
}

func TestSeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	s := memStore(t)
	n, err := repos.SeedIfEmpty(ctx, s)
	if err != nil || n == 0 {
		t.Fatalf("seed: n=%d err=%v", n, err)
	}
	again, err := repos.SeedIfEmpty(ctx, s)
	if err != nil || again != 0 {
		t.Fatalf("second seed should be a no-op: n=%d err=%v", again, err)
	}
}

func TestClassifyError(t *testing.T) {
	if repos.ClassifyError(&pq.Error{Code: "40001"}) != repos.ErrorClassSerialization {
		t.Fatal("40001 should be a serialization failure")
	}
	if repos.ClassifyError(&pq.Error{Code: "23505"}) != repos.ErrorClassPermanent {
		t.Fatal("unique violation is permanent")
	}
	if !repos.IsRetryable(errors.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Fatal("locked sqlite should be retryable")
	}
	if repos.IsRetryable(repos.ErrInsufficientStock) {
		t.Fatal("stock errors must not be retried")
	}
}
