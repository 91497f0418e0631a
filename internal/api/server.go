package api

import (
	"errors"
	"fmt"

	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/api/middleware"
	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
)

// APIServer is the thin serving layer over the contract engine. All domain
// rules live in the services package; handlers only translate HTTP.
type APIServer struct {
	app             *fiber.App
	contractService services.ContractService
	templateService services.TemplateService
	engine          *services.TemplateEngine
	log             *logrus.Logger
}

// NewAPIServer creates an API server over the given services
func NewAPIServer(contractService services.ContractService, templateService services.TemplateService, engine *services.TemplateEngine, log *logrus.Logger) *APIServer {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	if log == nil {
		log = logrus.New()
	}

	return &APIServer{
		app:             app,
		contractService: contractService,
		templateService: templateService,
		engine:          engine,
		log:             log,
	}
}

// SetupRoutes registers all routes. When jwtSecret is non-empty the /api
// group requires a Bearer token.
func (s *APIServer) SetupRoutes(jwtSecret string) {
	api := s.app.Group("/api")
	if jwtSecret != "" {
		api.Use(middleware.AuthMiddleware(jwtSecret))
	}

	api.Post("/templates", s.handleSaveTemplate)
	api.Get("/templates", s.handleListTemplates)
	api.Get("/templates/:id", s.handleGetTemplate)
	api.Delete("/templates/:id", s.handleDeleteTemplate)
	api.Get("/templates/:id/placeholders", s.handleTemplatePlaceholders)
	api.Post("/templates/:id/validate", s.handleValidateTemplate)

	api.Get("/contracts/statistics", s.handleStatistics)
	api.Post("/contracts", s.handleCreateContract)
	api.Get("/contracts", s.handleListContracts)
	api.Get("/contracts/:id", s.handleGetContract)
	api.Post("/contracts/:id/sign", s.handleSignContract)
	api.Post("/contracts/:id/request-signature", s.handleRequestSignature)
	api.Patch("/contracts/:id/status", s.handleUpdateStatus)
	api.Delete("/contracts/:id", s.handleDeleteContract)
	api.Get("/contracts/:id/pdf", s.handleContractPDF)
}

// Listen blocks serving HTTP on the given address
func (s *APIServer) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server
func (s *APIServer) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests
func (s *APIServer) App() *fiber.App {
	return s.app
}

// respondError maps the service error taxonomy onto HTTP statuses
func (s *APIServer) respondError(c *fiber.Ctx, err error) error {
	var (
		notFound     *services.NotFoundError
		validation   *services.ValidationError
		illegalState *services.IllegalStateError
		external     *services.ExternalServiceError
	)

	status := fiber.StatusInternalServerError
	switch {
	case errors.As(err, &notFound):
		status = fiber.StatusNotFound
	case errors.As(err, &validation):
		status = fiber.StatusBadRequest
	case errors.As(err, &illegalState):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrVersionConflict):
		status = fiber.StatusConflict
	case errors.As(err, &external):
		status = fiber.StatusBadGateway
	}

	if status == fiber.StatusInternalServerError || status == fiber.StatusBadGateway {
		s.log.WithError(err).Error(fmt.Sprintf("%s %s failed", c.Method(), c.Path()))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
