package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/edupay/internal/pkg/bootstrap"
	"github.com/ManuelReschke/edupay/internal/pkg/config"
	"github.com/ManuelReschke/edupay/internal/pkg/env"
	"github.com/ManuelReschke/edupay/internal/pkg/router"
)

func main() {
	env.SetupEnvFile()
	cfg := config.Load()

	services, err := bootstrap.New(cfg)
	if err != nil {
		log.Fatalf("Startup failed: %v", err)
	}
	defer services.Close()

	app := NewApplication(services)

	if err := services.Renewals.Start(); err != nil {
		log.Fatalf("Could not start renewal scheduler: %v", err)
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down...")
		services.Renewals.Stop()
		if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
			log.Printf("Error during server shutdown: %v", err)
		}
	}()

	if err := app.Listen(fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}

func NewApplication(services *bootstrap.Services) *fiber.App {
	// Define possible base paths
	basePaths := []string{
		"./",     // Current directory
		"../../", // From cmd/edupay to project root
	}

	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public/docs/v1/openapi.yml"); err == nil {
			basePath = path
			break
		}
	}

	app := fiber.New(fiber.Config{
		AppName:   "edupay",
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	if basePath != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: basePath + "public/docs/v1/openapi.yml",
			Path:     "v1",
		}))
	} else {
		log.Print("openapi.yml not found, API docs disabled")
	}

	// ROUTER
	router.InstallRouter(app, services.RouterDependencies())

	return app
}
