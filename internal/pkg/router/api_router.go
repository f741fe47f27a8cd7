package router

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/edupay/app/controllers"
	"github.com/ManuelReschke/edupay/internal/pkg/config"
	"github.com/ManuelReschke/edupay/internal/pkg/middleware"
)

const callbackPath = "/api/payments/callback/"

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	cfg := h.deps.Config
	api := app.Group("/api", newLimiter(cfg.Cache))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	repos := h.deps.Repos
	parentAuth := middleware.RequireParentAuth(cfg.Auth.JWTSecret, repos.GetParentRepository())
	accountAuth := middleware.RequireAccountAuth(cfg.Auth.JWTSecret, repos.GetParentRepository(), repos.GetChildRepository())

	auth := controllers.NewAuthController(repos.GetParentRepository(), repos.GetChildRepository(), cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	user := api.Group("/user")
	user.Post("/parent/register/", auth.HandleRegister)
	user.Post("/parent/login/", auth.HandleLogin)
	user.Post("/login", auth.HandleLogin)
	user.Post("/child/register/", parentAuth, auth.HandleChildRegister)
	user.Post("/child/login/", auth.HandleChildLogin)

	catalog := controllers.NewCatalogController(repos.GetSubjectRepository(), repos.GetGradeRepository(), repos.GetTopicRepository())
	core := api.Group("/core", accountAuth)
	core.Get("/subjects", catalog.HandleListSubjects)
	core.Get("/subjects/:id", catalog.HandleGetSubject)
	core.Get("/subjects/:id/topics", catalog.HandleListTopics)
	core.Get("/grades", catalog.HandleListGrades)

	pay := controllers.NewPaymentController(h.deps.Orders, h.deps.Reconciler, h.deps.Renewals, cfg.Payments.WebhookSecret)
	payments := api.Group("/payments")
	payments.Post("/create-order/", parentAuth, pay.HandleCreateOrder)
	payments.Post("/callback/", pay.HandleCallback)
	if cfg.App.IsDev() && h.deps.Renewals != nil {
		payments.Post("/simulate-renew/", pay.HandleSimulateRenew)
	}
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}

// newLimiter limits API requests per client IP. Counters live in Redis when
// it is configured so every instance shares them. Provider callbacks are
// never limited.
func newLimiter(cacheCfg config.CacheConfig) fiber.Handler {
	cfg := limiter.Config{
		Max:        60,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), strings.TrimSuffix(callbackPath, "/"))
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited"})
		},
	}
	if cacheCfg.Enabled() {
		port, err := strconv.Atoi(cacheCfg.Port)
		if err != nil {
			port = 6379
		}
		cfg.Storage = redis.New(redis.Config{
			Host:     cacheCfg.Host,
			Port:     port,
			Password: cacheCfg.Password,
			Database: cacheCfg.DB,
			Reset:    false,
		})
	}
	return limiter.New(cfg)
}
