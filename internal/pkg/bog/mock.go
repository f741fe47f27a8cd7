package bog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MockClient stands in for the provider when USE_BOG_MOCK is on. Orders are
// redirected straight to SuccessURL and recurrent charges succeed unless the
// parent order id was registered with FailCharges.
type MockClient struct {
	SuccessURL string

	mu      sync.Mutex
	failing map[string]error
	charges []RecurrentChargeRequest
}

func NewMockClient(successURL string) *MockClient {
	return &MockClient{SuccessURL: successURL, failing: map[string]error{}}
}

func (m *MockClient) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &CreateOrderResponse{
		ProviderID:  "TEST_ORDER_" + uuid.New().String(),
		RedirectURL: m.SuccessURL,
	}, nil
}

func (m *MockClient) RecurrentCharge(ctx context.Context, req RecurrentChargeRequest) (*ChargeResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.charges = append(m.charges, req)
	if err, ok := m.failing[strings.TrimSpace(req.ParentOrderID)]; ok {
		return nil, err
	}
	return &ChargeResponse{ProviderID: fmt.Sprintf("TEST_CHARGE_%s", uuid.New().String())}, nil
}

// FailCharges makes every later charge against parentOrderID fail.
func (m *MockClient) FailCharges(parentOrderID string, statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[parentOrderID] = &GatewayError{Operation: "recurrent_charge", StatusCode: statusCode, Body: "mock declined"}
}

// Charges returns the recurrent charges received so far.
func (m *MockClient) Charges() []RecurrentChargeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecurrentChargeRequest, len(m.charges))
	copy(out, m.charges)
	return out
}
