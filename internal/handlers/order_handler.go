package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/middleware"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/services"
)

type OrderHandler struct {
	Orders *services.OrderService
}

func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{Orders: orders}
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	var req services.OrderInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	o, err := h.Orders.Create(c.UserContext(), caller, req)
	if err != nil {
		return err
	}
	return created(c, "order placed", o)
}

func (h *OrderHandler) ListMine(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	orders, err := h.Orders.ListMine(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return ok(c, orders)
}

func (h *OrderHandler) ListSales(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	orders, err := h.Orders.ListSales(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return ok(c, orders)
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	o, err := h.Orders.Get(c.UserContext(), caller, id)
	if err != nil {
		return err
	}
	return ok(c, o)
}

func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	var req services.OrderStatusInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	o, err := h.Orders.UpdateStatus(c.UserContext(), caller, id, req)
	if err != nil {
		return err
	}
	return okMessage(c, "order status updated", o)
}
