package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/middleware"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/services"
)

type ProfileHandler struct {
	Profiles *services.ProfileService
}

func NewProfileHandler(svc *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{Profiles: svc}
}

func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	u, err := h.Profiles.Get(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return ok(c, u)
}

func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	var req services.ProfileInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	u, err := h.Profiles.Update(c.UserContext(), caller, req)
	if err != nil {
		return err
	}
	return okMessage(c, "profile updated", u)
}
