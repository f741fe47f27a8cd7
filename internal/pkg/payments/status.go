package payments

import (
	"strings"

	"github.com/ManuelReschke/edupay/app/models"
)

// MapProviderStatus translates a provider order_status.key into the internal
// order status. Keys the mapping does not know are passed through uppercased.
func MapProviderStatus(statusKey string) models.OrderStatus {
	key := strings.ToUpper(strings.TrimSpace(statusKey))
	switch key {
	case "COMPLETED", "REFUNDED", "REFUNDED_PARTIALLY":
		return models.OrderStatusSuccess
	case "REJECTED", "ERROR":
		return models.OrderStatusFailed
	default:
		return models.OrderStatus(key)
	}
}
