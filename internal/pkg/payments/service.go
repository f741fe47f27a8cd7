package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ManuelReschke/edupay/app/models"
	"github.com/ManuelReschke/edupay/internal/pkg/bog"
	"github.com/ManuelReschke/edupay/internal/pkg/config"
	"github.com/ManuelReschke/edupay/internal/pkg/metrics"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultApplicationType = "web"
	defaultPaymentMethod   = "card"
)

// CreateOrderInput is what an authenticated parent submits to buy a subject.
type CreateOrderInput struct {
	SubjectID       uint   `json:"subject_id" validate:"required"`
	ExternalOrderID string `json:"external_order_id" validate:"required,max=100"`
	TTL             int    `json:"ttl"`
	ApplicationType string `json:"application_type" validate:"omitempty,max=20"`
	PaymentMethod   string `json:"payment_method" validate:"omitempty,max=30"`
}

type OrderResult struct {
	ProviderID  string `json:"order_id"`
	RedirectURL string `json:"redirect_url"`
	Status      string `json:"status"`
}

// Service creates payment orders, either against the live gateway or, in mock
// mode, locally without any network call.
type Service struct {
	repo    Repository
	gateway bog.Gateway
	cfg     config.PaymentsConfig
	newID   func() string
}

// NewService wires the order service. gateway may be nil when cfg.UseMock is set.
func NewService(repo Repository, gateway bog.Gateway, cfg config.PaymentsConfig) *Service {
	return &Service{
		repo:    repo,
		gateway: gateway,
		cfg:     cfg,
		newID: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}
}

// CreateOrder starts a purchase of in.SubjectID for parentID. The order is
// persisted only after the gateway accepted it. Replaying an external order
// id the same parent already used returns the stored order unchanged.
func (s *Service) CreateOrder(ctx context.Context, parentID uint, in CreateOrderInput) (*OrderResult, error) {
	externalID := strings.TrimSpace(in.ExternalOrderID)
	if parentID == 0 {
		return nil, &ValidationError{Field: "parent", Message: "acting parent is required"}
	}
	if externalID == "" {
		return nil, &ValidationError{Field: "external_order_id", Message: "is required"}
	}

	if existing, err := s.repo.FindOrderByExternalID(ctx, externalID); err == nil {
		return replayOrder(existing, parentID)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	subject, err := s.repo.FindSubject(ctx, in.SubjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "subject", Key: strconv.FormatUint(uint64(in.SubjectID), 10)}
		}
		return nil, err
	}
	if !subject.IsPurchasable() {
		return nil, &ValidationError{Field: "subject_id", Message: "subject has no positive price"}
	}
	price := subject.Price.Round(2)

	var providerID, redirectURL, mode string
	if s.cfg.UseMock {
		mode = "mock"
		providerID = fmt.Sprintf("TEST_ORDER_%d_%s", subject.ID, s.newID())
		redirectURL = s.cfg.SuccessURL
	} else {
		mode = "live"
		if s.gateway == nil {
			return nil, errors.New("payment gateway is not configured")
		}
		res, err := s.gateway.CreateOrder(ctx, s.buildGatewayOrder(subject, externalID, in))
		if err != nil {
			log.Errorf("[Payments] Gateway rejected order external_id=%s subject=%d: %v", externalID, subject.ID, err)
			return nil, err
		}
		providerID = res.ProviderID
		redirectURL = res.RedirectURL
	}

	parent := parentID
	subjectID := subject.ID
	order := &models.Order{
		ParentID:      &parent,
		SubjectID:     &subjectID,
		ExternalID:    externalID,
		ProviderID:    providerID,
		ParentOrderID: providerID,
		TotalAmount:   price,
		Status:        models.OrderStatusPending,
		RedirectURL:   redirectURL,
	}
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		// a concurrent request with the same key may have won the insert
		if existing, findErr := s.repo.FindOrderByExternalID(ctx, externalID); findErr == nil {
			return replayOrder(existing, parentID)
		}
		return nil, fmt.Errorf("persist order: %w", err)
	}

	metrics.IncOrdersCreated(mode)
	log.Infof("[Payments] Created %s order provider_id=%s parent=%d subject=%d amount=%s", mode, providerID, parentID, subject.ID, price.StringFixed(2))

	return &OrderResult{
		ProviderID:  order.ProviderID,
		RedirectURL: order.RedirectURL,
		Status:      string(models.OrderStatusPending),
	}, nil
}

func (s *Service) buildGatewayOrder(subject *models.Subject, externalID string, in CreateOrderInput) bog.CreateOrderRequest {
	price := subject.Price.Round(2).InexactFloat64()
	return bog.CreateOrderRequest{
		CallbackURL:     s.cfg.CallbackURL,
		ExternalOrderID: externalID,
		TTL:             s.clampTTL(in.TTL),
		ApplicationType: normalizeLower(in.ApplicationType, defaultApplicationType),
		PaymentMethod:   []string{normalizeLower(in.PaymentMethod, defaultPaymentMethod)},
		SaveCard:        "recurrent",
		PurchaseUnits: bog.PurchaseUnits{
			Currency:    s.currency(),
			TotalAmount: price,
			Basket: []bog.BasketItem{{
				ProductID: strconv.FormatUint(uint64(subject.ID), 10),
				Quantity:  1,
				UnitPrice: price,
			}},
		},
		RedirectURLs: bog.RedirectURLs{
			Success: s.cfg.SuccessURL,
			Fail:    s.cfg.FailURL,
		},
	}
}

// clampTTL returns the payment page lifetime in minutes. Values below the
// minimum fall back to the default rather than being raised to the minimum.
func (s *Service) clampTTL(ttl int) int {
	minTTL := s.cfg.MinTTL
	if minTTL <= 0 {
		minTTL = 2
	}
	def := s.cfg.DefaultTTL
	if def < minTTL {
		def = 15
	}
	if ttl < minTTL {
		return def
	}
	return ttl
}

func (s *Service) currency() string {
	if c := strings.TrimSpace(s.cfg.Currency); c != "" {
		return strings.ToUpper(c)
	}
	return "GEL"
}

func replayOrder(existing *models.Order, parentID uint) (*OrderResult, error) {
	if existing.ParentID == nil || *existing.ParentID != parentID {
		return nil, &ValidationError{Field: "external_order_id", Message: "already used by another order"}
	}
	return &OrderResult{
		ProviderID:  existing.ProviderID,
		RedirectURL: existing.RedirectURL,
		Status:      string(existing.Status),
	}, nil
}

func normalizeLower(v, def string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return def
	}
	return v
}
