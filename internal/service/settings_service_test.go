// FILE: internal/service/settings_service_test.go
package service

import (
	"context"
	"testing"

	"rag-patient-be/internal/config"
	"rag-patient-be/internal/constant"
	"rag-patient-be/internal/dto"
	"rag-patient-be/internal/settings"
)

func newSettingsFixture(llmConfigured bool) ISettingsService {
	cfg := &config.Config{
		Dialog: config.DialogConfig{RagMode: constant.RagModeMetadata},
		RateLimit: config.RateLimitConfig{
			Enabled:       true,
			IPPerMinute:   120,
			SessionPerMin: 20,
		},
	}
	return NewSettingsService(settings.NewStore(cfg), llmConfigured, nil)
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func intPtr(n int) *int       { return &n }

func TestSettingsShowDefaults(t *testing.T) {
	svc := newSettingsFixture(false)

	res, err := svc.Show(context.Background())
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if res.RagMode != constant.RagModeMetadata {
		t.Errorf("rag mode = %s", res.RagMode)
	}
	if res.UseReason || res.UseGen {
		t.Error("llm flags must default to off")
	}
	if res.LLMConfigured {
		t.Error("llm must not report configured")
	}
	if !res.RateLimitEnabled || res.RateLimitIPPerMin != 120 || res.RateLimitSessionPerMin != 20 {
		t.Errorf("rate limit defaults wrong: %+v", res)
	}
}

func TestSettingsUpdateAppliesOnlyGivenFields(t *testing.T) {
	svc := newSettingsFixture(true)
	ctx := context.Background()

	res, err := svc.Update(ctx, &dto.UpdateSettingsRequest{
		RagMode:   strPtr(constant.RagModeVector),
		UseReason: boolPtr(true),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.RagMode != constant.RagModeVector || !res.UseReason {
		t.Errorf("update not applied: %+v", res)
	}
	if res.UseGen {
		t.Error("untouched flag changed")
	}
	if res.RateLimitIPPerMin != 120 {
		t.Error("untouched rate limit changed")
	}
	if !res.LLMConfigured {
		t.Error("expected llm configured")
	}

	shown, err := svc.Show(ctx)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if shown.RagMode != constant.RagModeVector {
		t.Error("update must stick for later reads")
	}
}

func TestSettingsUpdateRateLimits(t *testing.T) {
	svc := newSettingsFixture(false)

	res, err := svc.Update(context.Background(), &dto.UpdateSettingsRequest{
		RateLimitEnabled:       boolPtr(false),
		RateLimitSessionPerMin: intPtr(5),
		RateLimitFailOpen:      boolPtr(true),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.RateLimitEnabled {
		t.Error("rate limit should be off")
	}
	if res.RateLimitSessionPerMin != 5 {
		t.Errorf("session limit = %d", res.RateLimitSessionPerMin)
	}
	if !res.RateLimitFailOpen {
		t.Error("fail open should be on")
	}
}
