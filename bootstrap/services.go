package bootstrap

import (
	"context"

	"go_branch_chat/config"
	"go_branch_chat/pkg/logging"
	"go_branch_chat/services"
)

type Services struct {
	SettingsService     *services.SettingsService
	ConversationService *services.ConversationService
	ChatService         *services.ChatService
	ExportService       *services.ExportService
}

func NewServices(ctx context.Context, cfg *config.Config, repos *Repositories, infra *Infrastructure) *Services {
	res := &Services{}

	settingsService := services.NewSettingsService(repos.SettingsRepository, infra.Cache, cfg)
	res.SettingsService = settingsService

	conversationService := services.NewConversationService(repos.ConversationRepository, settingsService, services.NewOpenAIGenerator())
	res.ConversationService = conversationService

	chatService := services.NewChatService(conversationService, infra.EventPublisher, cfg.StopGracePeriod)
	res.ChatService = chatService

	if infra.Storage != nil {
		res.ExportService = services.NewExportService(infra.Storage, cfg.ExportURLTTL)
	}

	// a failed start leaves the page uninitialised; the notice says why
	if err := conversationService.Initialize(ctx); err != nil {
		logging.Logger.Error().Err(err).Msg("fail to initialise conversations")
		return res
	}
	if err := chatService.Init(); err != nil {
		logging.Logger.Error().Err(err).Msg("fail to load the current path")
	}
	return res
}
