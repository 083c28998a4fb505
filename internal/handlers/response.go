package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/log"
)

const msgInternal = "internal server error"

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}

func okMessage(c *fiber.Ctx, msg string, data interface{}) error {
	body := fiber.Map{"success": true, "message": msg}
	if data != nil {
		body["data"] = data
	}
	return c.JSON(body)
}

func created(c *fiber.Ctx, msg string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": msg,
		"data":    data,
	})
}

func parseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Validation("invalid body")
	}
	return nil
}

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid " + name)
	}
	return id, nil
}

func uintParam(c *fiber.Ctx, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || n == 0 {
		return 0, apperr.Validation("invalid " + name)
	}
	return uint(n), nil
}

// optionalUint parses an optional numeric query parameter.
func optionalUint(c *fiber.Ctx, name string) (*uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, apperr.Validation("invalid " + name)
	}
	v := uint(n)
	return &v, nil
}

func optionalFloat(c *fiber.Ctx, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperr.Validation("invalid " + name)
	}
	return &f, nil
}

// ErrorHandler renders every error as the JSON failure envelope. In
// production the details of internal errors are hidden.
func ErrorHandler(production bool) fiber.ErrorHandler {
	logger := log.WithComponent("http")
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		body := fiber.Map{"success": false}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
			body["message"] = fe.Message
		} else if ae, isApp := apperr.As(err); isApp {
			status = ae.Kind.Status()
			body["message"] = ae.Message
			if len(ae.Fields) > 0 {
				body["errors"] = ae.Fields
			}
			if ae.Kind == apperr.KindInternal {
				logger.Error().Err(err).Str("path", c.Path()).Msg("internal error")
				if production {
					body["message"] = msgInternal
				} else {
					body["message"] = ae.Error()
				}
			}
		} else {
			logger.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
			body["message"] = msgInternal
			if !production {
				body["message"] = err.Error()
			}
		}
		return c.Status(status).JSON(body)
	}
}
