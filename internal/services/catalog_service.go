package services

import (
	"context"
	"fmt"

	"krishighor/internal/domain"
	"krishighor/internal/repos"
)

const (
	DefaultCropsPerPage = 12
	MaxCropsPerPage     = 100
)

type CatalogService struct {
	Crops *repos.CropRepo
}

func NewCatalogService(crops *repos.CropRepo) *CatalogService {
	return &CatalogService{Crops: crops}
}

// List returns one page of crops matching f. Total counts every match, not
// just the page.
func (s *CatalogService) List(ctx context.Context, f domain.CropFilter, page, perPage int) (domain.CropPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultCropsPerPage
	}
	if perPage > MaxCropsPerPage {
		perPage = MaxCropsPerPage
	}

	total, err := s.Crops.Count(ctx, f)
	if err != nil {
		return domain.CropPage{}, fmt.Errorf("%w: count crops: %w", domain.ErrStore, err)
	}
	crops, err := s.Crops.Search(ctx, f, perPage, (page-1)*perPage)
	if err != nil {
		return domain.CropPage{}, fmt.Errorf("%w: search crops: %w", domain.ErrStore, err)
	}
	return domain.CropPage{Crops: crops, Page: page, PerPage: perPage, Total: total}, nil
}

// All returns the whole catalog; it backs recommendation training.
func (s *CatalogService) All(ctx context.Context) ([]domain.Crop, error) {
	crops, err := s.Crops.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load catalog: %w", domain.ErrStore, err)
	}
	return crops, nil
}
