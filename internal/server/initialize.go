package server

import (
	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/app/config"
	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/hooks"
	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/models"
	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/renderer"
	"github.com/IntuitiveSystems-irl/Construction-App-sub001/internal/services"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// rendererAdapter bridges the concrete renderer to the service-layer
// PDFRenderer interface
type rendererAdapter struct {
	renderer *renderer.DocumentRenderer
}

func (a rendererAdapter) Render(contract models.Contract) (services.RenderedDocument, error) {
	return a.renderer.Render(contract)
}

// Components is the fully wired service graph
type Components struct {
	Engine          *services.TemplateEngine
	TemplateService services.TemplateService
	ContractService services.ContractService
	Dispatcher      *services.NotificationDispatcher
	HookService     services.HookService
}

// InitializeServices wires the engine, storage, hooks, notification worker
// and renderer into a ContractService. The caller owns Dispatcher.Start and
// Dispatcher.Stop.
func InitializeServices(db *gorm.DB, cfg *config.Config, log *logrus.Logger) (*Components, error) {
	engine := services.NewTemplateEngine()
	templateService := services.NewTemplateService(db)

	loaded, err := templateService.LoadIntoEngine(engine)
	if err != nil {
		return nil, err
	}
	log.WithField("templates", loaded).Info("template registry loaded")

	storage := services.NewContractStorage(db)

	hookService := services.NewHookService()
	if err := hookService.AddHook(hooks.NewAuditLogHook(db)); err != nil {
		return nil, err
	}

	notifier := services.NewMailNotifier(cfg.BaseURL, log)
	dispatcher := services.NewNotificationDispatcher(notifier, db, log, services.DispatcherConfig{
		QueueSize:   cfg.Notification.QueueSize,
		MaxAttempts: cfg.Notification.MaxAttempts,
		BaseBackoff: cfg.Notification.BaseBackoff,
	})

	rendererConfig := renderer.DefaultConfig()
	rendererConfig.Watermark = cfg.Renderer.Watermark
	documentRenderer := renderer.NewDocumentRenderer(rendererConfig, log)

	contractService := services.NewContractService(
		engine,
		storage,
		hookService,
		dispatcher,
		rendererAdapter{renderer: documentRenderer},
		log,
	)

	return &Components{
		Engine:          engine,
		TemplateService: templateService,
		ContractService: contractService,
		Dispatcher:      dispatcher,
		HookService:     hookService,
	}, nil
}
