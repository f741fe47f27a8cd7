package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ManuelReschke/edupay/app/repository"
	"github.com/ManuelReschke/edupay/internal/pkg/config"
	"github.com/ManuelReschke/edupay/internal/pkg/payments"
	"github.com/ManuelReschke/edupay/internal/pkg/scheduler"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies is everything the HTTP routes need, built once in main.
type Dependencies struct {
	Config     config.Config
	DB         *gorm.DB
	Redis      *redis.Client
	Repos      *repository.Factory
	Orders     *payments.Service
	Reconciler *payments.Reconciler
	Renewals   *scheduler.Manager
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	setup(app, NewHttpRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
