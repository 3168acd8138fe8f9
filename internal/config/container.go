package config

import (
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	"pdf-annotator/internal/compositor"
	"pdf-annotator/internal/domain"
	"pdf-annotator/internal/infra/supabase"
	"pdf-annotator/internal/pdfdoc"
	"pdf-annotator/internal/preview"
	"pdf-annotator/internal/render"
	"pdf-annotator/internal/repository"
	"pdf-annotator/internal/service"
	"pdf-annotator/internal/store"
	"pdf-annotator/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config            domain.Config
	Logger            domain.Logger
	Codec             *pdfdoc.Codec
	Compositor        *compositor.Compositor
	Pipeline          *render.Pipeline
	Rasterizer        *preview.Rasterizer
	SessionRepository *repository.SessionRepository
	ExportStorage     domain.ExportStorage
	SessionService    *service.SessionService
}

// NewContainer creates a new dependency injection container
func NewContainer() (*Container, error) {
	return NewContainerWithConfig(NewConfig())
}

// NewContainerWithConfig wires every component from config
func NewContainerWithConfig(config domain.Config) (*Container, error) {
	appLogger := logger.NewLogger(config.GetLogLevel())
	clock := clockwork.NewRealClock()

	style, err := compositor.LoadStyleFile(config.GetStyleFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load style: %w", err)
	}

	codec := pdfdoc.NewCodec(pdfdoc.Options{Compress: config.GetCompressPDF()}, appLogger.With("component", "pdfdoc"))
	comp := compositor.New(style, appLogger.With("component", "compositor"))
	pipeline := render.NewPipeline(codec, comp, appLogger.With("component", "render"))
	rasterizer := preview.NewRasterizer(config.GetPreviewDPI())
	sessionRepo := repository.NewSessionRepository(clock, appLogger)

	// Export storage is optional
	var exports domain.ExportStorage
	storage, err := supabase.NewExportStorage(config, appLogger)
	switch {
	case err == nil:
		exports = storage
	case errors.Is(err, domain.ErrStorageDisabled):
		appLogger.Info("Export storage disabled; exports are served only")
	default:
		return nil, err
	}

	sessionService := service.NewSessionService(
		sessionRepo,
		codec,
		pipeline,
		rasterizer,
		style,
		store.NewIDSource(clock),
		exports,
		clock,
		config,
		appLogger.With("component", "session"),
	)

	return &Container{
		Config:            config,
		Logger:            appLogger,
		Codec:             codec,
		Compositor:        comp,
		Pipeline:          pipeline,
		Rasterizer:        rasterizer,
		SessionRepository: sessionRepo,
		ExportStorage:     exports,
		SessionService:    sessionService,
	}, nil
}

// GetConfig returns the configuration instance
func (c *Container) GetConfig() domain.Config {
	return c.Config
}

// GetLogger returns the logger instance
func (c *Container) GetLogger() domain.Logger {
	return c.Logger
}
