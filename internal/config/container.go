package config

import (
	"pdf-viewer/internal/domain"
	"pdf-viewer/internal/handler"
	"pdf-viewer/internal/infra/supabase"
	"pdf-viewer/internal/render"
	"pdf-viewer/internal/service"
	"pdf-viewer/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config          domain.Config
	Logger          domain.Logger
	SupabaseClient  domain.SupabaseClient
	Storage         domain.DocumentStorage
	Opener          domain.EngineOpener
	DocumentService domain.DocumentService
	DocumentHandler *handler.DocumentHandler
	PageLimiter     *handler.RateLimiter
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return NewContainerWithConfig(NewConfig())
}

// NewContainerWithConfig wires the application around the given configuration.
// Supabase Storage is used when credentials are configured; otherwise documents
// are served from the local documents directory.
func NewContainerWithConfig(config domain.Config) *Container {
	appLogger := logger.NewLogger(config.GetLogLevel())

	c := &Container{
		Config: config,
		Logger: appLogger,
		Opener: render.NewFitzOpener(appLogger.With("component", "render")),
	}

	if config.GetSupabaseURL() != "" && config.GetSupabaseKey() != "" {
		client := supabase.NewSupabaseClient(config, appLogger)
		if err := client.Initialize(); err != nil {
			appLogger.Error("Supabase initialization failed; using local documents", err)
		} else {
			c.SupabaseClient = client
			c.Storage = service.NewSupabaseStorage(client, config.GetSupabaseBucket(), appLogger)
		}
	}
	if c.Storage == nil {
		c.Storage = service.NewLocalStorage(config.GetDocumentsPath(), appLogger)
		appLogger.Info("Serving documents from local directory", "path", config.GetDocumentsPath())
	}

	c.DocumentService = service.NewDocumentService(
		c.Storage,
		c.Opener,
		config.GetRenderDPI(),
		config.GetMaxFileSize(),
		appLogger.With("component", "documents"),
	)
	c.DocumentHandler = handler.NewDocumentHandler(c.DocumentService, appLogger)
	c.PageLimiter = handler.NewRateLimiter(config.GetRenderRateLimit(), appLogger)
	return c
}
