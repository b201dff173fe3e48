package controllers

import (
	"log"

	"github.com/labstack/echo/v4"
)

// MainController manages all application routes and controllers
type MainController struct {
	healthController   *HealthController
	bigQueryController *BigQueryController
}

// NewMainController creates a new main controller instance
func NewMainController(healthController *HealthController, bigQueryController *BigQueryController) *MainController {
	return &MainController{
		healthController:   healthController,
		bigQueryController: bigQueryController,
	}
}

// RegisterRoutes registers all application routes
func (mc *MainController) RegisterRoutes(e *echo.Echo) {
	mc.healthController.RegisterRoutes(e)

	log.Printf("[ROUTES] Registering BigQuery endpoints...")
	mc.bigQueryController.RegisterRoutes(e)
	log.Printf("[ROUTES] BigQuery endpoints registered")
}
