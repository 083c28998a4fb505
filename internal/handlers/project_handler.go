package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/middleware"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/services"
)

type ProjectHandler struct {
	Projects *services.ProjectService
}

func NewProjectHandler(projects *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{Projects: projects}
}

func projectQuery(c *fiber.Ctx) services.ProjectQuery {
	return services.ProjectQuery{
		Scope:    c.Query("scope"),
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Sort:     c.Query("sort"),
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", 0),
	}
}

// List is public; scope=mine needs a token.
func (h *ProjectHandler) List(c *fiber.Ctx) error {
	page, err := h.Projects.List(c.UserContext(), middleware.OptionalCaller(c), projectQuery(c))
	if err != nil {
		return err
	}
	return ok(c, page)
}

func (h *ProjectHandler) ListByUser(c *fiber.Ctx) error {
	userID, err := uuidParam(c, "userId")
	if err != nil {
		return err
	}
	page, err := h.Projects.ListByUser(c.UserContext(), middleware.OptionalCaller(c), userID, projectQuery(c))
	if err != nil {
		return err
	}
	return ok(c, page)
}

func (h *ProjectHandler) Get(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	row, err := h.Projects.Get(c.UserContext(), middleware.OptionalCaller(c), id)
	if err != nil {
		return err
	}
	return ok(c, row)
}

func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	var req services.ProjectInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	p, err := h.Projects.Create(c.UserContext(), caller, req)
	if err != nil {
		return err
	}
	return created(c, "project created", p)
}

func (h *ProjectHandler) Update(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req services.ProjectInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	p, err := h.Projects.Update(c.UserContext(), caller, id, req)
	if err != nil {
		return err
	}
	return okMessage(c, "project updated", p)
}

func (h *ProjectHandler) Delete(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Projects.Delete(c.UserContext(), caller, id); err != nil {
		return err
	}
	return okMessage(c, "project deleted", nil)
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *ProjectHandler) UpdateStatus(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req statusReq
	if err := parseBody(c, &req); err != nil {
		return err
	}
	p, err := h.Projects.UpdateStatus(c.UserContext(), caller, id, req.Status)
	if err != nil {
		return err
	}
	return okMessage(c, "project status updated", p)
}

type approveReq struct {
	CounterpartyID *uuid.UUID `json:"counterparty_id"`
}

func (h *ProjectHandler) Approve(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req approveReq
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	p, err := h.Projects.Approve(c.UserContext(), caller, id, req.CounterpartyID)
	if err != nil {
		return err
	}
	return okMessage(c, "project approved", p)
}
