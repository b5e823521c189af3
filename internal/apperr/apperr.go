package apperr

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

// Error is the application error taxonomy. Handlers return these and the
// fiber ErrorHandler turns them into the JSON envelope, so no handler
// builds auth/permission responses by hand.
type Error struct {
	Status  int
	Message string
	Fields  map[string][]string
	Headers map[string]string
}

func (e *Error) Error() string { return e.Message }

func InvalidCredentials() *Error {
	return &Error{Status: fiber.StatusBadRequest, Message: "Incorrect email or password"}
}

func InactiveAccount() *Error {
	return &Error{Status: fiber.StatusBadRequest, Message: "Inactive account"}
}

func Unauthenticated() *Error {
	return &Error{
		Status:  fiber.StatusUnauthorized,
		Message: "Could not validate credentials",
		Headers: map[string]string{"WWW-Authenticate": "Bearer"},
	}
}

func Forbidden(msg string) *Error {
	if msg == "" {
		msg = "Not enough permissions"
	}
	return &Error{Status: fiber.StatusForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	if msg == "" {
		msg = "Resource not found"
	}
	return &Error{Status: fiber.StatusNotFound, Message: msg}
}

func Duplicate(msg string) *Error {
	if msg == "" {
		msg = "Resource already exists"
	}
	return &Error{Status: fiber.StatusConflict, Message: msg}
}

func Validation(fields map[string][]string) *Error {
	return &Error{
		Status:  fiber.StatusUnprocessableEntity,
		Message: "Validation error",
		Fields:  fields,
	}
}

func External(msg string) *Error {
	if msg == "" {
		msg = "Error in external service"
	}
	return &Error{Status: fiber.StatusServiceUnavailable, Message: msg}
}

// Handler is the fiber ErrorHandler for the whole app.
func Handler(c *fiber.Ctx, err error) error {
	var ae *Error
	if errors.As(err, &ae) {
		for k, v := range ae.Headers {
			c.Set(k, v)
		}
		body := fiber.Map{
			"success": false,
			"message": ae.Message,
		}
		if len(ae.Fields) > 0 {
			body["errors"] = ae.Fields
		}
		return c.Status(ae.Status).JSON(body)
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"success": false,
			"message": fe.Message,
		})
	}

	log.Printf("unhandled error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": "Internal server error",
	})
}
