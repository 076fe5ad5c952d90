package bootstrap

import (
	"context"

	"go_branch_chat/config"
	"go_branch_chat/pkg/logging"
)

type App struct {
	Cfg            *config.Config
	Infrastructure *Infrastructure
	Repositories   *Repositories
	Services       *Services
	Handlers       *Handlers
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Cfg: cfg}
	infra, err := NewInfrastructure(cfg)
	if err != nil {
		logging.Logger.Error().Err(err).Msg("fail NewInfrastructure")
		return nil, err
	}
	app.Infrastructure = infra

	// repos
	repos := NewRepositories(infra)
	app.Repositories = repos

	// services
	services := NewServices(ctx, cfg, repos, infra)
	app.Services = services

	handlers := NewHandlers(services, infra)
	app.Handlers = handlers

	return app, nil
}

// Shutdown infra
func (a *App) Shutdown() error {
	if a == nil {
		return nil
	}
	if a.Infrastructure != nil {
		if err := a.Infrastructure.Shutdown(); err != nil {
			return err
		}
	}
	return nil
}
