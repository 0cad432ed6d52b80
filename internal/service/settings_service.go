// FILE: internal/service/settings_service.go
package service

import (
	"context"
	"log"

	"rag-patient-be/internal/dto"
	"rag-patient-be/internal/pkg/logger"
	"rag-patient-be/internal/settings"
)

type ISettingsService interface {
	Show(ctx context.Context) (*dto.SettingsResponse, error)
	Update(ctx context.Context, req *dto.UpdateSettingsRequest) (*dto.SettingsResponse, error)
}

type settingsService struct {
	store         *settings.Store
	llmConfigured bool
	auditLogger   logger.ILogger
}

func NewSettingsService(store *settings.Store, llmConfigured bool, auditLogger logger.ILogger) ISettingsService {
	return &settingsService{
		store:         store,
		llmConfigured: llmConfigured,
		auditLogger:   auditLogger,
	}
}

func (s *settingsService) Show(ctx context.Context) (*dto.SettingsResponse, error) {
	return s.toResponse(s.store.Current()), nil
}

func (s *settingsService) Update(ctx context.Context, req *dto.UpdateSettingsRequest) (*dto.SettingsResponse, error) {
	next := s.store.Update(func(cur *settings.Settings) {
		if req.RagMode != nil {
			cur.RagMode = *req.RagMode
		}
		if req.UseReason != nil {
			cur.UseReason = *req.UseReason
		}
		if req.UseGen != nil {
			cur.UseGen = *req.UseGen
		}
		if req.RateLimitEnabled != nil {
			cur.RateLimitEnabled = *req.RateLimitEnabled
		}
		if req.RateLimitIPPerMin != nil {
			cur.RateLimitIPPerMin = *req.RateLimitIPPerMin
		}
		if req.RateLimitSessionPerMin != nil {
			cur.RateLimitSessionPerMin = *req.RateLimitSessionPerMin
		}
		if req.RateLimitFailOpen != nil {
			cur.RateLimitFailOpen = *req.RateLimitFailOpen
		}
	})

	log.Printf("[INFO] Runtime settings updated: rag_mode=%s use_reason=%v use_gen=%v rate_limit=%v",
		next.RagMode, next.UseReason, next.UseGen, next.RateLimitEnabled)
	if s.auditLogger != nil {
		s.auditLogger.Info("settings", "Runtime settings updated", map[string]interface{}{
			"rag_mode":            next.RagMode,
			"use_reason":          next.UseReason,
			"use_gen":             next.UseGen,
			"rate_limit_enabled":  next.RateLimitEnabled,
			"rate_limit_ip":       next.RateLimitIPPerMin,
			"rate_limit_session":  next.RateLimitSessionPerMin,
			"rate_limit_failopen": next.RateLimitFailOpen,
		})
	}
	return s.toResponse(next), nil
}

func (s *settingsService) toResponse(cur settings.Settings) *dto.SettingsResponse {
	return &dto.SettingsResponse{
		RagMode:                cur.RagMode,
		UseReason:              cur.UseReason,
		UseGen:                 cur.UseGen,
		LLMConfigured:          s.llmConfigured,
		RateLimitEnabled:       cur.RateLimitEnabled,
		RateLimitIPPerMin:      cur.RateLimitIPPerMin,
		RateLimitSessionPerMin: cur.RateLimitSessionPerMin,
		RateLimitFailOpen:      cur.RateLimitFailOpen,
	}
}
