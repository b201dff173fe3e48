package app

import (
	"log"

	"github.com/labstack/echo/v4"

	"github.com/takutakahashi/bqgate/internal/interfaces/controllers"
)

// Router handles route registration and management
type Router struct {
	echo     *echo.Echo
	handlers *HandlerRegistry
}

// HandlerRegistry contains all handlers
type HandlerRegistry struct {
	mainController *controllers.MainController
	customHandlers []CustomHandler
}

// CustomHandler interface for adding custom routes
type CustomHandler interface {
	RegisterRoutes(e *echo.Echo) error
	GetName() string
}

// NewRouter creates a new Router instance
func NewRouter(e *echo.Echo, mainController *controllers.MainController) *Router {
	return &Router{
		echo: e,
		handlers: &HandlerRegistry{
			mainController: mainController,
			customHandlers: make([]CustomHandler, 0),
		},
	}
}

// AddCustomHandler adds a custom handler to the registry
func (r *Router) AddCustomHandler(handler CustomHandler) {
	r.handlers.customHandlers = append(r.handlers.customHandlers, handler)
	log.Printf("Added custom handler: %s", handler.GetName())
}

// RegisterRoutes registers all routes
func (r *Router) RegisterRoutes() error {
	r.handlers.mainController.RegisterRoutes(r.echo)

	return r.registerCustomHandlers()
}

// registerCustomHandlers registers all custom handlers
func (r *Router) registerCustomHandlers() error {
	for _, handler := range r.handlers.customHandlers {
		log.Printf("[ROUTES] Registering custom handler: %s", handler.GetName())
		if err := handler.RegisterRoutes(r.echo); err != nil {
			log.Printf("[ROUTES] Failed to register custom handler %s: %v", handler.GetName(), err)
			return err
		}
		log.Printf("[ROUTES] Successfully registered custom handler: %s", handler.GetName())
	}

	return nil
}
