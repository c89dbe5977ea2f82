package handlers

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"krishighor/internal/domain"
	applog "krishighor/internal/log"
	"krishighor/internal/services"
	"krishighor/internal/validate"
)

type OrderHandler struct {
	Orders *services.OrderService
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var req domain.OrderRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	res, err := h.Orders.Create(c.UserContext(), req)
	if err != nil {
		// A failed charge still leaves a committed order behind.
		var extra fiber.Map
		if errors.Is(err, domain.ErrPayment) && res.OrderID != "" {
			extra = fiber.Map{"order_id": res.OrderID, "payment_status": res.PaymentStatus}
		}
		return fail(c, "order.create", err, extra)
	}
	applog.Audit(c, "order.place", map[string]any{"order_id": res.OrderID, "payment_status": res.PaymentStatus})
	return c.JSON(fiber.Map{
		"success":        true,
		"order_id":       res.OrderID,
		"total_amount":   res.TotalAmount,
		"payment_status": res.PaymentStatus,
		"message":        "Order created successfully",
	})
}

func (h *OrderHandler) History(c *fiber.Ctx) error {
	user, ok := validate.UserID(c.Params("user_id"))
	if !ok {
		return badRequest(c, "invalid user id")
	}
	page := validate.Page(c.Query("page"))
	perPage := validate.PerPage(c.Query("per_page"), 10, 100)

	res, err := h.Orders.History(c.UserContext(), user, page, perPage)
	if err != nil {
		return fail(c, "order.history", err, nil)
	}
	orders := res.Orders
	if orders == nil {
		orders = []domain.Order{}
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"data":     orders,
		"page":     res.Page,
		"per_page": res.PerPage,
		"total":    res.Total,
	})
}

func (h *OrderHandler) Invoice(c *fiber.Ctx) error {
	id := c.Params("order_id")
	var buf bytes.Buffer
	if err := h.Orders.Invoice(c.UserContext(), id, &buf); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			applog.Warn(c, "order.invoice.missing", map[string]any{"order_id": id})
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "Order not found"})
		}
		return fail(c, "order.invoice", err, nil)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="invoice_%s.pdf"`, id))
	return c.Send(buf.Bytes())
}
