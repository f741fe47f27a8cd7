package router

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/edupay/app/repository"
	"github.com/ManuelReschke/edupay/internal/pkg/bog"
	"github.com/ManuelReschke/edupay/internal/pkg/config"
	"github.com/ManuelReschke/edupay/internal/pkg/database"
	"github.com/ManuelReschke/edupay/internal/pkg/payments"
	"github.com/ManuelReschke/edupay/internal/pkg/scheduler"
)

func newTestApp(t *testing.T, env string) *fiber.App {
	t.Helper()
	db, err := database.OpenMemory(t.Name())
	require.NoError(t, err)

	cfg := config.Config{
		App:  config.AppConfig{Env: env},
		Auth: config.AuthConfig{JWTSecret: "jwt-secret", AccessTokenTTL: time.Minute},
		Payments: config.PaymentsConfig{
			UseMock:            true,
			SuccessURL:         "https://edu.example/success",
			CallbackURL:        "https://edu.example/api/payments/callback/",
			SubscriptionPeriod: time.Hour,
		},
	}
	repo := payments.NewRepository(db)
	mock := bog.NewMockClient(cfg.Payments.SuccessURL)

	app := fiber.New()
	InstallRouter(app, Dependencies{
		Config:     cfg,
		DB:         db,
		Repos:      repository.NewFactory(db),
		Orders:     payments.NewService(repo, mock, cfg.Payments),
		Reconciler: payments.NewReconciler(repo, nil, cfg.Payments.SubscriptionPeriod),
		Renewals:   scheduler.NewManager(payments.NewRenewer(repo, mock, nil, cfg.Payments), nil, "@every 1h", time.Minute),
	})
	return app
}

func status(t *testing.T, app *fiber.App, method, path, body string) int {
	t.Helper()
	code, _ := call(t, app, method, path, body, "")
	return code
}

func call(t *testing.T, app *fiber.App, method, path, body, token string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestInstallRouter(t *testing.T) {
	app := newTestApp(t, "dev")

	assert.Equal(t, fiber.StatusOK, status(t, app, "GET", "/health", ""))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "GET", "/api/core/subjects", ""))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "GET", "/api/core/grades/", ""))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "POST", "/api/user/child/register/", `{"name":"Luka","grade":3}`))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "POST", "/api/payments/create-order/", `{"subject_id":1}`))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "POST", "/api/user/login", `{"mobile_phone":"+995555000111","password":"x"}`))
	assert.Equal(t, fiber.StatusOK, status(t, app, "POST", "/api/payments/callback/", `{"order_id":"x","order_status":{"key":"completed"}}`))
	assert.Equal(t, fiber.StatusOK, status(t, app, "POST", "/api/payments/simulate-renew/", ""))
}

func TestAccountFlow(t *testing.T) {
	app := newTestApp(t, "prod")

	code, _ := call(t, app, "POST", "/api/user/parent/register/",
		`{"name":"Nino","mobile_phone":"+995555000111","password1":"secret-pass","password2":"secret-pass"}`, "")
	require.Equal(t, fiber.StatusCreated, code)

	code, body := call(t, app, "POST", "/api/user/parent/login/", `{"mobile_phone":"+995555000111","password":"secret-pass"}`, "")
	require.Equal(t, fiber.StatusOK, code)
	parentToken := body["access_token"].(string)

	code, _ = call(t, app, "GET", "/api/core/subjects/", "", parentToken)
	assert.Equal(t, fiber.StatusOK, code)

	code, body = call(t, app, "POST", "/api/user/child/register/", `{"name":"Luka","grade":3}`, parentToken)
	require.Equal(t, fiber.StatusCreated, code)
	otp := body["otp_code"].(string)

	code, body = call(t, app, "POST", "/api/user/child/login/", `{"otp_code":"`+otp+`"}`, "")
	require.Equal(t, fiber.StatusOK, code)
	childToken := body["access_token"].(string)

	code, _ = call(t, app, "GET", "/api/core/grades/", "", childToken)
	assert.Equal(t, fiber.StatusOK, code)
	code, _ = call(t, app, "GET", "/api/core/subjects/1/", "", childToken)
	assert.Equal(t, fiber.StatusNotFound, code)

	code, _ = call(t, app, "POST", "/api/payments/create-order/", `{"subject_id":1,"external_order_id":"ext-1"}`, childToken)
	assert.Equal(t, fiber.StatusForbidden, code)
	code, _ = call(t, app, "POST", "/api/user/child/register/", `{"name":"Mia","grade":2}`, childToken)
	assert.Equal(t, fiber.StatusForbidden, code)
}

func TestSimulateRenewOnlyInDev(t *testing.T) {
	app := newTestApp(t, "prod")
	assert.Equal(t, fiber.StatusNotFound, status(t, app, "POST", "/api/payments/simulate-renew/", ""))
}

func TestMetricsRouteNeedsPassword(t *testing.T) {
	app := newTestApp(t, "prod")
	assert.Equal(t, fiber.StatusNotFound, status(t, app, "GET", "/metrics", ""))
}

func TestLimiterSkipsCallbacks(t *testing.T) {
	app := newTestApp(t, "prod")
	for i := 0; i < 70; i++ {
		require.Equal(t, fiber.StatusOK, status(t, app, "POST", "/api/payments/callback/", `{"order_id":"x","order_status":{"key":"completed"}}`))
	}

	last := 0
	for i := 0; i < 61; i++ {
		last = status(t, app, "GET", "/api/core/subjects", "")
	}
	assert.Equal(t, fiber.StatusTooManyRequests, last)
}
