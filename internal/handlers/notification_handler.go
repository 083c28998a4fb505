package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/middleware"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/services"
)

type NotificationHandler struct {
	Notifications *services.NotificationService
}

func NewNotificationHandler(svc *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Notifications: svc}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	list, err := h.Notifications.List(c.UserContext(), caller, c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return ok(c, list)
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	n, err := h.Notifications.UnreadCount(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"count": n})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Notifications.MarkRead(c.UserContext(), caller, id); err != nil {
		return err
	}
	return okMessage(c, "notification marked as read", nil)
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	n, err := h.Notifications.MarkAllRead(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return okMessage(c, "notifications marked as read", fiber.Map{"updated": n})
}

func (h *NotificationHandler) Delete(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Notifications.Delete(c.UserContext(), caller, id); err != nil {
		return err
	}
	return okMessage(c, "notification deleted", nil)
}
