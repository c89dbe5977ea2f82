package invoice

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"

	"krishighor/internal/domain"
)

func TestRenderProducesPDF(t *testing.T) {
	o := domain.Order{
		ID: "3f1c2a4e-8b7d-4c1e-9a55-0d3b6e2f7a10", OrderDate: "2025-03-04T10:15:00.000000Z",
		TotalAmount: decimal.RequireFromString("210.50"), Status: domain.StatusPending,
		PaymentMethod: "bkash", PaymentStatus: domain.PaymentCompleted,
		ShippingAddress: "Village Road, Bogura", ShippingRegion: "Rajshahi", ShippingPhone: "01711111111",
	}
	items := []domain.OrderItem{
		{CropID: 1, CropName: "Rice", Quantity: 2, UnitPrice: decimal.NewFromInt(50), TotalPrice: decimal.NewFromInt(100)},
		{CropID: 9, Quantity: 1, UnitPrice: decimal.RequireFromString("110.50"), TotalPrice: decimal.RequireFromString("110.50")},
	}

	var buf bytes.Buffer
	if err := NewPDF().Render(&buf, o, items); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatalf("output is not a PDF: %q", buf.Bytes()[:min(16, buf.Len())])
	}
	if buf.Len() < 500 {
		t.Fatalf("suspiciously small invoice: %d bytes", buf.Len())
	}
}

func TestRenderWithoutItems(t *testing.T) {
	var buf bytes.Buffer
	if err := NewPDF().Render(&buf, domain.Order{ID: "x", OrderDate: "not-a-date"}, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatal("expected PDF output")
	}
}
