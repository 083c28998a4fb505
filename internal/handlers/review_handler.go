package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/middleware"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/services"
)

type ReviewHandler struct {
	Reviews *services.ReviewService
}

func NewReviewHandler(reviews *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{Reviews: reviews}
}

func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	var req services.ReviewInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	r, err := h.Reviews.Create(c.UserContext(), caller, req)
	if err != nil {
		return err
	}
	return created(c, "review submitted for moderation", r)
}

func (h *ReviewHandler) ForProduct(c *fiber.Ctx) error {
	id, err := uintParam(c, "productId")
	if err != nil {
		return err
	}
	rows, err := h.Reviews.ListForProduct(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, rows)
}

func (h *ReviewHandler) Mine(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	rows, err := h.Reviews.ListMine(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return ok(c, rows)
}

// Moderation lists reviews by ?status=, pending by default.
func (h *ReviewHandler) Moderation(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	rows, err := h.Reviews.ListByStatus(c.UserContext(), caller, c.Query("status"))
	if err != nil {
		return err
	}
	return ok(c, rows)
}

func (h *ReviewHandler) SetStatus(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	var req statusReq
	if err := parseBody(c, &req); err != nil {
		return err
	}
	r, err := h.Reviews.SetStatus(c.UserContext(), caller, id, req.Status)
	if err != nil {
		return err
	}
	return okMessage(c, "review status updated", r)
}

func (h *ReviewHandler) Criteria(c *fiber.Ctx) error {
	rows, err := h.Reviews.Criteria(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, rows)
}

func (h *ReviewHandler) Rate(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	var req services.RatingInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	r, err := h.Reviews.Rate(c.UserContext(), caller, req)
	if err != nil {
		return err
	}
	return okMessage(c, "rating saved", r)
}

func (h *ReviewHandler) ProductRatings(c *fiber.Ctx) error {
	id, err := uintParam(c, "productId")
	if err != nil {
		return err
	}
	sum, err := h.Reviews.ProductRatings(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, sum)
}

func (h *ReviewHandler) MyRatings(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "productId")
	if err != nil {
		return err
	}
	rows, err := h.Reviews.MyRatings(c.UserContext(), caller, id)
	if err != nil {
		return err
	}
	return ok(c, rows)
}
