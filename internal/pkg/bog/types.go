package bog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Gateway is the subset of the provider API the payment flows depend on.
// Client and MockClient both implement it.
type Gateway interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error)
	RecurrentCharge(ctx context.Context, req RecurrentChargeRequest) (*ChargeResponse, error)
}

// CreateOrderRequest is the JSON body of POST /ecommerce/orders.
type CreateOrderRequest struct {
	CallbackURL     string        `json:"callback_url"`
	ExternalOrderID string        `json:"external_order_id"`
	TTL             int           `json:"ttl"`
	ApplicationType string        `json:"application_type"`
	PaymentMethod   []string      `json:"payment_method"`
	SaveCard        string        `json:"save_card,omitempty"`
	PurchaseUnits   PurchaseUnits `json:"purchase_units"`
	RedirectURLs    RedirectURLs  `json:"redirect_urls"`
}

type PurchaseUnits struct {
	Currency    string       `json:"currency"`
	TotalAmount float64      `json:"total_amount"`
	Basket      []BasketItem `json:"basket"`
}

type BasketItem struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type RedirectURLs struct {
	Success string `json:"success"`
	Fail    string `json:"fail"`
}

type CreateOrderResponse struct {
	ProviderID  string
	RedirectURL string
}

// RecurrentChargeRequest charges the card saved on a previous order.
type RecurrentChargeRequest struct {
	ParentOrderID   string
	Amount          decimal.Decimal
	Currency        string
	CallbackURL     string
	ExternalOrderID string
}

type ChargeResponse struct {
	ProviderID string
	DetailsURL string
}

type recurrentChargeBody struct {
	CallbackURL     string             `json:"callback_url"`
	ExternalOrderID string             `json:"external_order_id,omitempty"`
	PurchaseUnits   *purchaseUnitsBody `json:"purchase_units,omitempty"`
}

type purchaseUnitsBody struct {
	Currency    string  `json:"currency,omitempty"`
	TotalAmount float64 `json:"total_amount"`
}

type orderResponse struct {
	ID    string `json:"id"`
	Links struct {
		Redirect struct {
			Href string `json:"href"`
		} `json:"redirect"`
		Details struct {
			Href string `json:"href"`
		} `json:"details"`
	} `json:"_links"`
}
