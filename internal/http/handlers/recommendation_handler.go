package handlers

import (
	"github.com/gofiber/fiber/v2"

	"krishighor/internal/domain"
	applog "krishighor/internal/log"
	"krishighor/internal/recommend"
)

type RecommendationHandler struct {
	Engine *recommend.Engine
}

type recommendationRequest struct {
	Cart []domain.CartItem `json:"cart"`
}

// Recommend never fails on model problems; a missing or broken index yields
// an empty list.
func (h *RecommendationHandler) Recommend(c *fiber.Ctx) error {
	var req recommendationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	recs := h.Engine.Recommend(c.UserContext(), req.Cart)
	if recs == nil {
		recs = []domain.Recommendation{}
	}
	applog.Info(c, "recommend", map[string]any{"cart": len(req.Cart), "results": len(recs)})
	return c.JSON(fiber.Map{
		"success":         true,
		"recommendations": recs,
		"message":         "AI recommendations generated based on your cart items",
	})
}
