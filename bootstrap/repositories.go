package bootstrap

import (
	"go_branch_chat/repository"
)

type Repositories struct {
	ConversationRepository repository.ConversationRepository
	SettingsRepository     repository.SettingsRepository
}

func NewRepositories(infra *Infrastructure) *Repositories {
	if infra.DB == nil {
		store := repository.NewMemoryStore()
		return &Repositories{
			ConversationRepository: store,
			SettingsRepository:     store,
		}
	}
	sqlDB := infra.DB.GetDatabase()
	return &Repositories{
		ConversationRepository: repository.NewConversationRepository(sqlDB),
		SettingsRepository:     repository.NewSettingsRepository(sqlDB),
	}
}
