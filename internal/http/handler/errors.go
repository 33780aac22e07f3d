package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sifan077/curto/internal/app/service"
	"github.com/sifan077/curto/internal/http/middleware"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string `json:"message" example:"Something went wrong"`
}

// requestError is a client mistake caught before the service is called.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string { return e.message }

func invalidRequest(detail string) error {
	return &requestError{status: fiber.StatusBadRequest, message: "Invalid request: " + detail}
}

var errRouteNotFound = &requestError{status: fiber.StatusNotFound, message: "Route not found"}

// RouteNotFound is the fallback handler for unmatched paths.
func RouteNotFound(*fiber.Ctx) error {
	return errRouteNotFound
}

// StatusOf maps a service error kind to its HTTP status.
func StatusOf(kind service.Kind) int {
	switch kind {
	case service.KindLinkNotFound:
		return fiber.StatusNotFound
	case service.KindLinkIDNotUnique,
		service.KindLinkIDNotValid,
		service.KindMalformedURL,
		service.KindURLWithoutHost,
		service.KindURLWithMatchingHosts:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders every error as {"message": ...}. Internal causes are
// logged and replaced by a fixed message.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		status, message := fiber.StatusInternalServerError, service.InternalMessage

		var (
			svcErr   *service.Error
			reqErr   *requestError
			fiberErr *fiber.Error
		)
		switch {
		case errors.As(err, &svcErr):
			status = StatusOf(svcErr.Kind)
			if !svcErr.Internal() {
				message = svcErr.Error()
			}
		case errors.As(err, &reqErr):
			status, message = reqErr.status, reqErr.message
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			switch {
			case status == fiber.StatusNotFound:
				message = errRouteNotFound.message
			case status < fiber.StatusInternalServerError:
				message = fiberErr.Message
			}
		}

		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("request_id", middleware.RequestIDFrom(c)),
				zap.Error(err),
			)
		}

		return c.Status(status).JSON(ErrorResponse{Message: message})
	}
}
