package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/middleware"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/services"
)

type CategoryHandler struct {
	Catalog *services.CatalogService
}

func NewCategoryHandler(catalog *services.CatalogService) *CategoryHandler {
	return &CategoryHandler{Catalog: catalog}
}

// GetCategories lists active categories. Admins may pass ?all=true.
func (h *CategoryHandler) GetCategories(c *fiber.Ctx) error {
	all := false
	if caller := middleware.OptionalCaller(c); caller != nil && caller.IsAdmin() {
		all = c.QueryBool("all", false)
	}
	rows, err := h.Catalog.ListCategories(c.UserContext(), all)
	if err != nil {
		return err
	}
	return ok(c, rows)
}

func (h *CategoryHandler) GetCategory(c *fiber.Ctx) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	cat, err := h.Catalog.GetCategory(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, cat)
}

func (h *CategoryHandler) Create(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	var req services.CategoryInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	cat, err := h.Catalog.CreateCategory(c.UserContext(), caller, req)
	if err != nil {
		return err
	}
	return created(c, "category created", cat)
}

func (h *CategoryHandler) Update(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	var req services.CategoryInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	cat, err := h.Catalog.UpdateCategory(c.UserContext(), caller, id, req)
	if err != nil {
		return err
	}
	return okMessage(c, "category updated", cat)
}
