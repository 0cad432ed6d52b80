package dto

// UpdateSettingsRequest mutates the runtime pipeline settings. Nil fields are
// left unchanged; changes apply to subsequent requests only.
type UpdateSettingsRequest struct {
	RagMode                *string `json:"rag_mode,omitempty" validate:"omitempty,oneof=metadata vector"`
	UseReason              *bool   `json:"use_reason,omitempty"`
	UseGen                 *bool   `json:"use_gen,omitempty"`
	RateLimitEnabled       *bool   `json:"rate_limit_enabled,omitempty"`
	RateLimitIPPerMin      *int    `json:"rate_limit_ip_per_min,omitempty" validate:"omitempty,min=1"`
	RateLimitSessionPerMin *int    `json:"rate_limit_session_per_min,omitempty" validate:"omitempty,min=1"`
	RateLimitFailOpen      *bool   `json:"rate_limit_fail_open,omitempty"`
}

type SettingsResponse struct {
	RagMode                string `json:"rag_mode"`
	UseReason              bool   `json:"use_reason"`
	UseGen                 bool   `json:"use_gen"`
	LLMConfigured          bool   `json:"llm_configured"`
	RateLimitEnabled       bool   `json:"rate_limit_enabled"`
	RateLimitIPPerMin      int    `json:"rate_limit_ip_per_min"`
	RateLimitSessionPerMin int    `json:"rate_limit_session_per_min"`
	RateLimitFailOpen      bool   `json:"rate_limit_fail_open"`
}
