package factory

import (
	"fmt"
	"log"
	"time"

	"rag-patient-be/pkg/llm"
	"rag-patient-be/pkg/llm/deepseek"
)

func NewLLMProvider(providerType, baseURL, apiKey, modelName string, timeout time.Duration, maxRetries int, logger *log.Logger) (llm.LLMProvider, error) {
	switch providerType {
	case "deepseek", "":
		if baseURL == "" {
			baseURL = "https://api.deepseek.com/v1" // Default
		}
		return deepseek.NewProvider(baseURL, apiKey, modelName, timeout, maxRetries, logger)
	case "openai":
		// Same wire protocol, stock endpoint.
		return deepseek.NewProvider("", apiKey, modelName, timeout, maxRetries, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
