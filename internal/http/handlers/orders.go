package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"jerseyprint/internal/domain"
	"jerseyprint/internal/orders"
)

// IdempotencyHeader carries the client's submission key.
const IdempotencyHeader = "Idempotency-Key"

const maxQRSize = 1024

// Orders serves checkout.
type Orders struct {
	Service *orders.Service
}

func (h *Orders) ready(c *fiber.Ctx) error {
	if h.Service == nil {
		return toFiberError(c, fmt.Errorf("orders: %w", domain.ErrNotConfigured))
	}
	return nil
}

// Create places an order. A repeated idempotency key returns the first order with 200.
func (h *Orders) Create(c *fiber.Ctx) error {
	if err := h.ready(c); err != nil {
		return err
	}
	var req orders.Request
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Invalid request body")
	}
	req.IdempotencyKey = c.Get(IdempotencyHeader)

	res, err := h.Service.Submit(c.UserContext(), req)
	if err != nil {
		return toFiberError(c, err)
	}
	c.Location("/v1/orders/" + res.Order.ID)
	if res.Duplicate {
		return c.JSON(res.Order)
	}
	return c.Status(fiber.StatusCreated).JSON(res.Order)
}

// Get returns a stored order.
func (h *Orders) Get(c *fiber.Ctx) error {
	if err := h.ready(c); err != nil {
		return err
	}
	order, err := h.Service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return toFiberError(c, err)
	}
	return c.JSON(order)
}

// QR returns the PNG label linking to the order.
func (h *Orders) QR(c *fiber.Ctx) error {
	if err := h.ready(c); err != nil {
		return err
	}
	size := c.QueryInt("size", 256)
	if size <= 0 || size > maxQRSize {
		return badRequest(fmt.Sprintf("Invalid size: must be between 1 and %d", maxQRSize))
	}
	png, err := h.Service.QR(c.UserContext(), c.Params("id"), size)
	if err != nil {
		return toFiberError(c, err)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}
