package payments

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ManuelReschke/edupay/app/models"
	"github.com/ManuelReschke/edupay/internal/pkg/bog"
	"github.com/ManuelReschke/edupay/internal/pkg/config"
	"github.com/ManuelReschke/edupay/internal/pkg/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const period = 30 * 24 * time.Hour

func setupRepo(t *testing.T) (*gorm.DB, Repository) {
	t.Helper()
	db, err := database.OpenMemory(t.Name())
	require.NoError(t, err)
	return db, NewRepository(db)
}

func testConfig(useMock bool) config.PaymentsConfig {
	return config.PaymentsConfig{
		UseMock:            useMock,
		SiteURL:            "https://edu.example",
		SuccessURL:         "https://edu.example/success",
		FailURL:            "https://edu.example/fail",
		CallbackURL:        "https://edu.example/api/payments/callback/",
		Currency:           "GEL",
		SubscriptionPeriod: period,
		DefaultTTL:         15,
		MinTTL:             2,
	}
}

func seedParent(t *testing.T, db *gorm.DB, phone string) *models.Parent {
	t.Helper()
	p := &models.Parent{Name: "Parent " + phone, MobilePhone: phone, Password: "hash"}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedSubject(t *testing.T, db *gorm.DB, id uint, price string) *models.Subject {
	t.Helper()
	s := &models.Subject{ID: id, Name: "Subject", Price: decimal.RequireFromString(price), IsActive: true}
	require.NoError(t, db.Create(s).Error)
	return s
}

func seedOrder(t *testing.T, db *gorm.DB, parent *models.Parent, subject *models.Subject, providerID string, status models.OrderStatus) *models.Order {
	t.Helper()
	o := &models.Order{
		ParentID:      &parent.ID,
		SubjectID:     &subject.ID,
		ExternalID:    "ext-" + providerID,
		ProviderID:    providerID,
		ParentOrderID: providerID,
		TotalAmount:   subject.Price,
		Status:        status,
	}
	require.NoError(t, db.Create(o).Error)
	return o
}

func seedSubscription(t *testing.T, db *gorm.DB, order *models.Order, end time.Time, active bool) *models.Subscription {
	t.Helper()
	s := &models.Subscription{
		ParentID:  order.ParentID,
		SubjectID: order.SubjectID,
		OrderID:   order.ID,
		StartDate: end.Add(-period),
		EndDate:   end,
		Active:    true,
	}
	require.NoError(t, db.Create(s).Error)
	if !active {
		require.NoError(t, db.Model(s).UpdateColumn("active", false).Error)
		s.Active = false
	}
	return s
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type stubGateway struct {
	createRes  *bog.CreateOrderResponse
	createErr  error
	chargeErrs map[string]error

	createReqs []bog.CreateOrderRequest
	chargeReqs []bog.RecurrentChargeRequest
}

func (g *stubGateway) CreateOrder(ctx context.Context, req bog.CreateOrderRequest) (*bog.CreateOrderResponse, error) {
	g.createReqs = append(g.createReqs, req)
	if g.createErr != nil {
		return nil, g.createErr
	}
	return g.createRes, nil
}

func (g *stubGateway) RecurrentCharge(ctx context.Context, req bog.RecurrentChargeRequest) (*bog.ChargeResponse, error) {
	g.chargeReqs = append(g.chargeReqs, req)
	if err, ok := g.chargeErrs[req.ParentOrderID]; ok {
		return nil, err
	}
	return &bog.ChargeResponse{ProviderID: "charge-" + req.ParentOrderID}, nil
}
