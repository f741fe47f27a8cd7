package controllers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/edupay/internal/pkg/bog"
	"github.com/ManuelReschke/edupay/internal/pkg/payments"
)

var validate = validator.New()

// GetClientIP returns the originating client address, honouring the usual
// proxy headers before falling back to the socket address.
func GetClientIP(c *fiber.Ctx) string {
	if ip := strings.TrimSpace(c.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(c.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return strings.TrimPrefix(c.IP(), "::ffff:")
}

// validationMessage flattens validator errors into "field: tag" pairs.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, strings.ToLower(fe.Field())+": "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}

// writePaymentError maps the payment error taxonomy onto HTTP responses.
func writePaymentError(c *fiber.Ctx, err error) error {
	var (
		verr    *payments.ValidationError
		nf      *payments.NotFoundError
		authErr *bog.AuthError
		gwErr   *bog.GatewayError
	)
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": verr.Error()})
	case errors.As(err, &nf):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": nf.Error()})
	case errors.As(err, &authErr):
		log.Errorf("[Payments] Gateway authentication failed: %v", authErr)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "gateway_auth_failed", "message": "Payment provider authentication failed"})
	case errors.As(err, &gwErr):
		log.Errorf("[Payments] Gateway error: operation=%s status=%d body=%s", gwErr.Operation, gwErr.StatusCode, gwErr.Body)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "gateway_error", "message": "Payment provider rejected the request", "status": gwErr.StatusCode})
	default:
		log.Errorf("[Payments] Unexpected error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
}
