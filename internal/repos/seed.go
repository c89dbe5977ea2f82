package repos

import (
	"context"

	"github.com/shopspring/decimal"

	"krishighor/internal/domain"
)

var defaultCrops = []domain.Crop{
	{Name: "Miniket Rice", Type: "rice", Region: "Dinajpur", Price: decimal.NewFromInt(68), Quantity: 500},
	{Name: "Aromatic Chinigura Rice", Type: "rice", Region: "Naogaon", Price: decimal.NewFromInt(120), Quantity: 200},
	{Name: "BR-28 Rice", Type: "rice", Region: "Mymensingh", Price: decimal.NewFromInt(58), Quantity: 800},
	{Name: "Potato", Type: "vegetable", Region: "Munshiganj", Price: decimal.NewFromInt(30), Quantity: 1000},
	{Name: "Brinjal", Type: "vegetable", Region: "Jessore", Price: decimal.NewFromInt(45), Quantity: 300},
	{Name: "Green Chili", Type: "vegetable", Region: "Bogura", Price: decimal.RequireFromString("80.50"), Quantity: 150},
	{Name: "Red Lentil", Type: "pulse", Region: "Faridpur", Price: decimal.NewFromInt(110), Quantity: 400},
	{Name: "Himsagar Mango", Type: "fruit", Region: "Rajshahi", Price: decimal.NewFromInt(140), Quantity: 250},
	{Name: "Litchi", Type: "fruit", Region: "Dinajpur", Price: decimal.NewFromInt(400), Quantity: 120},
	{Name: "Jackfruit", Type: "fruit", Region: "Gazipur", Price: decimal.NewFromInt(90), Quantity: 60},
	{Name: "Wheat", Type: "grain", Region: "Thakurgaon", Price: decimal.NewFromInt(40), Quantity: 700},
	{Name: "Mustard Seed", Type: "oilseed", Region: "Sirajganj", Price: decimal.NewFromInt(95), Quantity: 180},
}

// SeedIfEmpty loads the default catalog into an empty crops table and
// reports how many rows were inserted.
func SeedIfEmpty(ctx context.Context, s *Store) (int, error) {
	crops := NewCropRepo(s)
	n, err := crops.Count(ctx, domain.CropFilter{})
	if err != nil || n > 0 {
		return 0, err
	}
	err = s.Atomically(ctx, func(ctx context.Context) error {
		for _, c := range defaultCrops {
			if _, err := crops.Create(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(defaultCrops), nil
}
