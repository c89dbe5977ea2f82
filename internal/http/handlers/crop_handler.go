package handlers

import (
	"github.com/gofiber/fiber/v2"

	"krishighor/internal/domain"
	"krishighor/internal/services"
	"krishighor/internal/validate"
)

type CropHandler struct {
	Catalog *services.CatalogService
}

func (h *CropHandler) List(c *fiber.Ctx) error {
	var f domain.CropFilter
	if raw := c.Query("search"); raw != "" {
		q, ok := validate.Q(raw)
		if !ok {
			return badRequest(c, "invalid search query")
		}
		f.Search = q
	}
	if raw := c.Query("type"); raw != "" {
		t, ok := validate.Token(raw)
		if !ok {
			return badRequest(c, "invalid type filter")
		}
		f.Type = t
	}
	if raw := c.Query("region"); raw != "" {
		r, ok := validate.Token(raw)
		if !ok {
			return badRequest(c, "invalid region filter")
		}
		f.Region = r
	}

	page := validate.Page(c.Query("page"))
	perPage := validate.PerPage(c.Query("per_page"), services.DefaultCropsPerPage, services.MaxCropsPerPage)

	res, err := h.Catalog.List(c.UserContext(), f, page, perPage)
	if err != nil {
		return fail(c, "crops.list", err, nil)
	}
	crops := res.Crops
	if crops == nil {
		crops = []domain.Crop{}
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"data":     crops,
		"page":     res.Page,
		"per_page": res.PerPage,
		"total":    res.Total,
	})
}
