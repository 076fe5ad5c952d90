package bootstrap

import "go_branch_chat/handlers"

type Handlers struct {
	WSHandler   *handlers.WSHandler
	ChatHandler *handlers.ChatHandler
}

func NewHandlers(services *Services, infra *Infrastructure) *Handlers {
	res := &Handlers{}
	w := handlers.NewWSHandler(infra.EventPublisher)
	res.WSHandler = w
	c := handlers.NewChatHandler(services.ChatService, services.ConversationService, services.SettingsService, services.ExportService)
	res.ChatHandler = c
	return res
}
