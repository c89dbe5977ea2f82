package handlers

import (
	"krishighor/internal/config"
	"krishighor/internal/invoice"
	"krishighor/internal/payment"
	"krishighor/internal/recommend"
	"krishighor/internal/repos"
	"krishighor/internal/services"
)

type Deps struct {
	Catalog *services.CatalogService
	Orders  *services.OrderService
	Engine  *recommend.Engine

	CropHandler           *CropHandler
	RecommendationHandler *RecommendationHandler
	OrderHandler          *OrderHandler
}

// IndexStore picks where trained recommendation indexes are persisted.
func IndexStore(s *repos.Store, cfg config.Config) recommend.ArtifactStore {
	if cfg.IndexStore == "db" {
		return &recommend.DBStore{Repo: repos.NewIndexRepo(s)}
	}
	return &recommend.FileStore{Path: cfg.IndexPath}
}

func NewDeps(s *repos.Store, cfg config.Config, payments payment.Gateway, confirm services.Confirmer) *Deps {
	cropRepo := repos.NewCropRepo(s)
	orderRepo := repos.NewOrderRepo(s)

	catalogSvc := services.NewCatalogService(cropRepo)
	orderSvc := services.NewOrderService(s, cropRepo, orderRepo, payments, confirm, invoice.NewPDF(), cfg.PricePolicy)
	engine := recommend.NewEngine(catalogSvc, IndexStore(s, cfg), recommend.Options{
		Neighbors: cfg.RecommendNeighbors,
		Limit:     cfg.RecommendLimit,
		MaxAge:    cfg.RecommendMaxAge,
	})

	return &Deps{
		Catalog: catalogSvc,
		Orders:  orderSvc,
		Engine:  engine,

		CropHandler:           &CropHandler{Catalog: catalogSvc},
		RecommendationHandler: &RecommendationHandler{Engine: engine},
		OrderHandler:          &OrderHandler{Orders: orderSvc},
	}
}
