package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/middleware"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/services"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

func NewProductHandler(catalog *services.CatalogService) *ProductHandler {
	return &ProductHandler{Catalog: catalog}
}

func productQuery(c *fiber.Ctx) (services.ProductQuery, error) {
	q := services.ProductQuery{
		Search: c.Query("search"),
		Sort:   c.Query("sort"),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 0),
	}
	var err error
	if q.CategoryID, err = optionalUint(c, "category_id"); err != nil {
		return q, err
	}
	if q.MinPrice, err = optionalFloat(c, "min_price"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = optionalFloat(c, "max_price"); err != nil {
		return q, err
	}
	return q, nil
}

func (h *ProductHandler) ListPublic(c *fiber.Ctx) error {
	q, err := productQuery(c)
	if err != nil {
		return err
	}
	page, err := h.Catalog.ListProducts(c.UserContext(), q)
	if err != nil {
		return err
	}
	return ok(c, page)
}

// ListMine includes the seller's inactive listings.
func (h *ProductHandler) ListMine(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	q, err := productQuery(c)
	if err != nil {
		return err
	}
	q.SellerID = &caller.UserID
	page, err := h.Catalog.ListProducts(c.UserContext(), q)
	if err != nil {
		return err
	}
	return ok(c, page)
}

func (h *ProductHandler) GetDetail(c *fiber.Ctx) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	row, err := h.Catalog.GetProduct(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, row)
}

func (h *ProductHandler) Create(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	var req services.ProductInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	p, err := h.Catalog.CreateProduct(c.UserContext(), caller, req)
	if err != nil {
		return err
	}
	return created(c, "product created", p)
}

func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	var req services.ProductInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	p, err := h.Catalog.UpdateProduct(c.UserContext(), caller, id, req)
	if err != nil {
		return err
	}
	return okMessage(c, "product updated", p)
}

func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Catalog.DeleteProduct(c.UserContext(), caller, id); err != nil {
		return err
	}
	return okMessage(c, "product deleted", nil)
}
