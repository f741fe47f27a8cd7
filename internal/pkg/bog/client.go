package bog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuelReschke/edupay/internal/pkg/config"
	"github.com/ManuelReschke/edupay/internal/pkg/metrics"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// tokenRefreshMargin is how long before expiry a cached token is replaced.
	tokenRefreshMargin = 60 * time.Second

	maxErrorBody = 4096
)

// Client talks to the Bank of Georgia e-commerce API.
type Client struct {
	apiBase    string
	httpClient *http.Client
	tokens     *tokenCache
	newKey     func() string
}

// NewClient builds a live client. Tokens are fetched with the OAuth2
// client-credentials grant (basic auth header) and cached in process until
// shortly before they expire.
func NewClient(cfg config.PaymentsConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	return &Client{
		apiBase:    strings.TrimRight(cfg.APIBase, "/"),
		httpClient: httpClient,
		tokens:     newTokenCache(cc, httpClient, tokenRefreshMargin),
		newKey:     uuid.NewString,
	}
}

// GetAccessToken returns the cached bearer token or performs a new
// client-credentials exchange bounded by ctx. A token without expires_in is
// never reused.
func (c *Client) GetAccessToken(ctx context.Context) (string, error) {
	start := time.Now()
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		metrics.ObserveGatewayRequest("token", start, err)
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return "", &AuthError{StatusCode: re.Response.StatusCode, Body: truncate(string(re.Body)), Err: err}
		}
		return "", &AuthError{Err: err}
	}
	metrics.ObserveGatewayRequest("token", start, nil)
	return tok.AccessToken, nil
}

// CreateOrder registers a new payment order and returns the provider id and
// the hosted payment page the buyer must be sent to.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	var out orderResponse
	if err := c.post(ctx, "create_order", c.apiBase+"/ecommerce/orders", req, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return nil, &GatewayError{Operation: "create_order", StatusCode: http.StatusOK, Err: errors.New("response has no order id")}
	}
	return &CreateOrderResponse{
		ProviderID:  out.ID,
		RedirectURL: out.Links.Redirect.Href,
	}, nil
}

// RecurrentCharge charges the card saved on parentOrderID again.
func (c *Client) RecurrentCharge(ctx context.Context, req RecurrentChargeRequest) (*ChargeResponse, error) {
	parentOrderID := strings.TrimSpace(req.ParentOrderID)
	if parentOrderID == "" {
		return nil, &GatewayError{Operation: "recurrent_charge", Err: errors.New("parent order id is required")}
	}

	body := recurrentChargeBody{
		CallbackURL:     req.CallbackURL,
		ExternalOrderID: req.ExternalOrderID,
		PurchaseUnits: &purchaseUnitsBody{
			Currency:    req.Currency,
			TotalAmount: req.Amount.InexactFloat64(),
		},
	}
	var out orderResponse
	endpoint := c.apiBase + "/ecommerce/orders/" + url.PathEscape(parentOrderID)
	if err := c.post(ctx, "recurrent_charge", endpoint, body, &out); err != nil {
		return nil, err
	}
	return &ChargeResponse{ProviderID: out.ID, DetailsURL: out.Links.Details.Href}, nil
}

func (c *Client) post(ctx context.Context, operation, endpoint string, payload, out interface{}) error {
	token, err := c.GetAccessToken(ctx)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("bog %s: encode request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("bog %s: build request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Idempotency-Key", c.newKey())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		gerr := &GatewayError{Operation: operation, Err: err}
		metrics.ObserveGatewayRequest(operation, start, gerr)
		return gerr
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		gerr := &GatewayError{Operation: operation, StatusCode: resp.StatusCode, Body: truncate(string(body))}
		metrics.ObserveGatewayRequest(operation, start, gerr)
		return gerr
	}
	metrics.ObserveGatewayRequest(operation, start, nil)

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &GatewayError{Operation: operation, StatusCode: resp.StatusCode, Body: truncate(string(body)), Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
