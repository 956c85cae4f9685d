package httpapi

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"chanfeed/internal/errs"
)

var kindStatus = map[string]int{
	errs.KindValidation:       fiber.StatusBadRequest,
	errs.KindNotFound:         fiber.StatusNotFound,
	errs.KindDuplicate:        fiber.StatusConflict,
	errs.KindBusy:             fiber.StatusConflict,
	errs.KindQuotaExceeded:    fiber.StatusTooManyRequests,
	errs.KindTransientNetwork: fiber.StatusBadGateway,
	errs.KindVersionControl:   fiber.StatusInternalServerError,
	errs.KindInternal:         fiber.StatusInternalServerError,
}

// writeError renders err as {"error":{"code","message","details"?}}. Extra
// top-level fields are merged into the body.
func writeError(c fiber.Ctx, err error, development bool, extra ...fiber.Map) error {
	kind := errs.Kind(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = fiber.StatusInternalServerError
	}

	message := errs.Message(err)
	if kind == errs.KindValidation {
		// Validation errors name the offending input.
		message = err.Error()
	}

	detail := fiber.Map{
		"code":    strings.ToUpper(kind),
		"message": message,
	}
	if development {
		detail["details"] = err.Error()
	}

	body := fiber.Map{"error": detail}
	for _, m := range extra {
		for k, v := range m {
			body[k] = v
		}
	}
	return c.Status(status).JSON(body)
}

// errorHandler renders errors returned by handlers and Fiber itself.
func errorHandler(development bool) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code := "INTERNAL"
			switch fe.Code {
			case fiber.StatusNotFound:
				code = "NOT_FOUND"
			case fiber.StatusMethodNotAllowed:
				code = "METHOD_NOT_ALLOWED"
			case fiber.StatusBadRequest:
				code = "VALIDATION"
			}
			return c.Status(fe.Code).JSON(fiber.Map{
				"error": fiber.Map{"code": code, "message": fe.Message},
			})
		}
		return writeError(c, err, development)
	}
}
