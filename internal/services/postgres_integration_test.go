//go:build integration

package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"krishighor/internal/domain"
	"krishighor/internal/invoice"
	"krishighor/internal/payment"
	"krishighor/internal/repos"
	"krishighor/internal/services"
)

func setupPostgres(t *testing.T) *repos.Store {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:14-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "krishighor",
			"POSTGRES_PASSWORD": "krishighor",
			"POSTGRES_DB":       "krishighor",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pg.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := pg.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := pg.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatal(err)
	}
	dsn := fmt.Sprintf("postgres://krishighor:krishighor@%s:%s/krishighor?sslmode=disable", host, port.Port())

	s, err := repos.OpenDB(repos.DriverPostgres, dsn, 10)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresOrderFlow(t *testing.T) {
	ctx := context.Background()
	s := setupPostgres(t)
	if _, err := repos.SeedIfEmpty(ctx, s); err != nil {
		t.Fatal(err)
	}

	crops := repos.NewCropRepo(s)
	orders := repos.NewOrderRepo(s)
	svc := services.NewOrderService(s, crops, orders, &payment.Simulated{}, nil, invoice.NewPDF(), services.PriceVerify)

	page, err := services.NewCatalogService(crops).List(ctx, domain.CropFilter{Search: "wheat"}, 1, 0)
	if err != nil || page.Total != 1 {
		t.Fatalf("catalog: %v %+v", err, page)
	}
	wheat := page.Crops[0]

	res, err := svc.Create(ctx, request(domain.MethodCashOnDelivery, line(wheat, 3)))
	if err != nil {
		t.Fatal(err)
	}
	if !res.TotalAmount.Equal(wheat.Price.Mul(decimal.NewFromInt(3))) {
		t.Fatalf("total = %s", res.TotalAmount)
	}

	history, err := svc.History(ctx, "farmer-1", 1, 10)
	if err != nil || history.Total != 1 || history.Orders[0].Items[0].CropName != "Wheat" {
		t.Fatalf("history: %v %+v", err, history)
	}
}

func TestPostgresConcurrentLastUnit(t *testing.T) {
	ctx := context.Background()
	s := setupPostgres(t)
	crops := repos.NewCropRepo(s)
	mango, err := crops.Create(ctx, domain.Crop{Name: "Mango", Type: "fruit", Region: "Rajshahi", Price: decimal.NewFromInt(140), Quantity: 1})
	if err != nil {
		t.Fatal(err)
	}
	svc := services.NewOrderService(s, crops, repos.NewOrderRepo(s), &payment.Simulated{}, nil, invoice.NewPDF(), services.PriceVerify)

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, request(domain.MethodCashOnDelivery, line(mango, 1)))
			if err == nil {
				ok.Add(1)
			} else if !errors.Is(err, repos.ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 1 {
		t.Fatalf("want exactly one successful order, got %d", ok.Load())
	}
	got, _ := crops.Get(ctx, mango.ID)
	if got.Quantity != 0 {
		t.Fatalf("stock = %d", got.Quantity)
	}
}
