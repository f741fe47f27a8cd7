package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/edupay/app/models"
	"github.com/ManuelReschke/edupay/app/repository"
	"github.com/ManuelReschke/edupay/internal/pkg/bog"
	"github.com/ManuelReschke/edupay/internal/pkg/config"
	"github.com/ManuelReschke/edupay/internal/pkg/database"
	"github.com/ManuelReschke/edupay/internal/pkg/payments"
	"github.com/ManuelReschke/edupay/internal/pkg/scheduler"
	"github.com/ManuelReschke/edupay/internal/pkg/usercontext"
)

const (
	testParentHeader = "X-Test-Parent"
	testChildHeader  = "X-Test-Child"
	testJWTSecret    = "jwt-secret"
)

type testEnv struct {
	db    *gorm.DB
	repos *repository.Repositories
	mock  *bog.MockClient
	app   *fiber.App
}

type envOptions struct {
	webhookSecret string
	// gateway switches the order service to live mode against this gateway
	gateway bog.Gateway
	redis   *redis.Client
}

// recordingGateway accepts every order and remembers the requests.
type recordingGateway struct {
	mu         sync.Mutex
	createReqs []bog.CreateOrderRequest
}

func (g *recordingGateway) CreateOrder(ctx context.Context, req bog.CreateOrderRequest) (*bog.CreateOrderResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createReqs = append(g.createReqs, req)
	return &bog.CreateOrderResponse{
		ProviderID:  "bog-" + req.ExternalOrderID,
		RedirectURL: "https://pay.example/" + req.ExternalOrderID,
	}, nil
}

func (g *recordingGateway) RecurrentCharge(ctx context.Context, req bog.RecurrentChargeRequest) (*bog.ChargeResponse, error) {
	return &bog.ChargeResponse{ProviderID: "charge-" + req.ParentOrderID}, nil
}

func (g *recordingGateway) requests() []bog.CreateOrderRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]bog.CreateOrderRequest(nil), g.createReqs...)
}

func paymentsConfig() config.PaymentsConfig {
	return config.PaymentsConfig{
		UseMock:            true,
		SiteURL:            "https://edu.example",
		SuccessURL:         "https://edu.example/success",
		FailURL:            "https://edu.example/fail",
		CallbackURL:        "https://edu.example/api/payments/callback/",
		Currency:           "GEL",
		SubscriptionPeriod: 30 * 24 * time.Hour,
		DefaultTTL:         15,
		MinTTL:             2,
	}
}

// newTestEnv wires the controllers against an in-memory database in mock
// payment mode.
func newTestEnv(t *testing.T, webhookSecret string) *testEnv {
	return newTestEnvWith(t, envOptions{webhookSecret: webhookSecret})
}

// newTestEnvWith is newTestEnv with a live gateway or a Redis client.
// Authentication is replaced by headers carrying the parent or child id.
func newTestEnvWith(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	db, err := database.OpenMemory(t.Name())
	require.NoError(t, err)

	cfg := paymentsConfig()
	mock := bog.NewMockClient(cfg.SuccessURL)
	var gateway bog.Gateway = mock
	if opts.gateway != nil {
		cfg.UseMock = false
		gateway = opts.gateway
	}
	repo := payments.NewRepository(db)
	renewer := payments.NewRenewer(repo, gateway, nil, cfg)
	manager := scheduler.NewManager(renewer, scheduler.NewLocalLocker(), "@every 1h", time.Minute)

	pc := NewPaymentController(
		payments.NewService(repo, gateway, cfg),
		payments.NewReconciler(repo, nil, cfg.SubscriptionPeriod),
		manager,
		opts.webhookSecret,
	)
	repos := repository.NewRepositories(db)
	auth := NewAuthController(repos.Parent, repos.Child, testJWTSecret, 10*time.Minute)
	catalog := NewCatalogController(repos.Subject, repos.Grade, repos.Topic)

	app := fiber.New()
	fakeAuth := func(c *fiber.Ctx) error {
		if id, err := strconv.ParseUint(c.Get(testParentHeader), 10, 64); err == nil {
			usercontext.SetParentContext(c, usercontext.ParentContext{ParentID: uint(id), Role: "parent", IsAuthenticated: true})
		} else if id, err := strconv.ParseUint(c.Get(testChildHeader), 10, 64); err == nil {
			usercontext.SetParentContext(c, usercontext.ParentContext{ChildID: uint(id), Role: "child", IsAuthenticated: true})
		}
		return c.Next()
	}
	app.Post("/payments/create-order/", fakeAuth, pc.HandleCreateOrder)
	app.Post("/payments/callback/", pc.HandleCallback)
	app.Post("/payments/simulate-renew/", pc.HandleSimulateRenew)
	app.Post("/user/parent/register/", auth.HandleRegister)
	app.Post("/user/login", auth.HandleLogin)
	app.Post("/user/child/register/", fakeAuth, auth.HandleChildRegister)
	app.Post("/user/child/login/", auth.HandleChildLogin)
	app.Get("/core/subjects", catalog.HandleListSubjects)
	app.Get("/core/subjects/:id/", catalog.HandleGetSubject)
	app.Get("/core/subjects/:id/topics/", catalog.HandleListTopics)
	app.Get("/core/grades/", catalog.HandleListGrades)
	app.Get("/health", NewHealthController(db, opts.redis).HandleHealth)

	return &testEnv{db: db, repos: repos, mock: mock, app: app}
}

func (e *testEnv) seedParent(t *testing.T, phone, password string) *models.Parent {
	t.Helper()
	parent, err := models.NewParent("Parent", phone, password)
	require.NoError(t, err)
	require.NoError(t, e.repos.Parent.Create(parent))
	return parent
}

func (e *testEnv) seedSubject(t *testing.T, id uint, name, price string) *models.Subject {
	t.Helper()
	subject := &models.Subject{ID: id, Name: name, Price: decimal.RequireFromString(price), IsActive: true}
	require.NoError(t, e.repos.Subject.Create(subject))
	return subject
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

