package services

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"go_branch_chat/config"
	"go_branch_chat/models"
	"go_branch_chat/pkg/apperr"
	"go_branch_chat/pkg/logging"
	"go_branch_chat/platform/cache"
	"go_branch_chat/repository"
)

const settingsCacheKey = "llm_settings:default"

// SettingsService manages the saved LLM settings. Reads go through the cache
// and fall back to the configured defaults when nothing was saved yet.
type SettingsService struct {
	repo       repository.SettingsRepository
	typedCache *cache.TypedCache[models.LLMSettings]
	cacheTTL   time.Duration
	defaults   models.LLMSettings
}

func NewSettingsService(repo repository.SettingsRepository, cacheService cache.CacheService, cfg *config.Config) *SettingsService {
	return &SettingsService{
		repo:       repo,
		typedCache: cache.NewTypedCache[models.LLMSettings](cacheService),
		cacheTTL:   30 * time.Minute,
		defaults:   DefaultSettings(cfg),
	}
}

func DefaultSettings(cfg *config.Config) models.LLMSettings {
	return models.LLMSettings{
		APIKey:       cfg.LLMAPIKey,
		BaseURL:      cfg.LLMBaseURL,
		Model:        cfg.LLMModel,
		MaxTokens:    cfg.LLMMaxTokens,
		Temperature:  cfg.LLMTemperature,
		TopP:         cfg.LLMTopP,
		SystemPrompt: cfg.LLMSystemPrompt,
	}
}

func (s *SettingsService) Get(ctx context.Context) (models.LLMSettings, error) {
	return s.typedCache.GetOrLoad(settingsCacheKey, s.cacheTTL, func() (models.LLMSettings, error) {
		rec, err := s.repo.GetSettings(ctx)
		if errors.Is(err, repository.ErrNotFound) {
			return s.defaults, nil
		}
		if err != nil {
			return models.LLMSettings{}, apperr.Unavailable(err, "load settings")
		}
		return fromSettingsRecord(rec, s.defaults), nil
	})
}

// Save validates and persists settings. An empty key, or the masked form of
// the stored key, keeps the stored key.
func (s *SettingsService) Save(ctx context.Context, settings models.LLMSettings) (models.LLMSettings, error) {
	settings.APIKey = strings.TrimSpace(settings.APIKey)
	current, err := s.Get(ctx)
	if err != nil {
		return models.LLMSettings{}, err
	}
	if settings.APIKey == "" || settings.APIKey == MaskAPIKey(current.APIKey) {
		settings.APIKey = current.APIKey
	}
	settings.BaseURL = strings.TrimSpace(settings.BaseURL)
	settings.Model = strings.TrimSpace(settings.Model)
	if err := validateSettings(settings); err != nil {
		return models.LLMSettings{}, err
	}
	rec := &models.SettingsRecord{
		APIKey:       settings.APIKey,
		BaseURL:      settings.BaseURL,
		Model:        settings.Model,
		MaxTokens:    settings.MaxTokens,
		Temperature:  settings.Temperature,
		TopP:         settings.TopP,
		SystemPrompt: settings.SystemPrompt,
		UpdatedAt:    time.Now(),
	}
	if err := s.repo.SaveSettings(ctx, rec); err != nil {
		return models.LLMSettings{}, apperr.Unavailable(err, "save settings")
	}
	if err := s.typedCache.Delete(settingsCacheKey); err != nil {
		logging.Logger.Warn().Err(err).Msg("fail to drop cached settings")
	}
	logging.Logger.Info().
		Str("model", settings.Model).
		Str("base_url", settings.BaseURL).
		Str("api_key", MaskAPIKey(settings.APIKey)).
		Msg("settings saved")
	return settings, nil
}

func validateSettings(s models.LLMSettings) error {
	switch {
	case s.Model == "":
		return apperr.Invalid("model is required")
	case s.MaxTokens <= 0:
		return apperr.Invalid("max_tokens must be positive")
	case s.Temperature < 0 || s.Temperature > 2:
		return apperr.Invalid("temperature must be within [0, 2]")
	case s.TopP < 0 || s.TopP > 1:
		return apperr.Invalid("top_p must be within [0, 1]")
	}
	return nil
}

func fromSettingsRecord(rec *models.SettingsRecord, defaults models.LLMSettings) models.LLMSettings {
	res := models.LLMSettings{
		APIKey:       rec.APIKey,
		BaseURL:      rec.BaseURL,
		Model:        rec.Model,
		MaxTokens:    rec.MaxTokens,
		Temperature:  rec.Temperature,
		TopP:         rec.TopP,
		SystemPrompt: rec.SystemPrompt,
	}
	if res.BaseURL == "" {
		res.BaseURL = defaults.BaseURL
	}
	if res.APIKey == "" {
		res.APIKey = defaults.APIKey
	}
	return res
}
