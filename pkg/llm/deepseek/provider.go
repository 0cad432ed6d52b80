package deepseek

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"rag-patient-be/pkg/llm"

	"github.com/cenkalti/backoff/v5"
	openai "github.com/sashabaranov/go-openai"
)

// Provider implements llm.LLMProvider against the DeepSeek API, which speaks
// the OpenAI chat-completions protocol. Every attempt runs under its own
// timeout; only timeouts, 429 and 5xx responses are retried, everything else
// fails fast so the caller can fall back.
type Provider struct {
	client     *openai.Client
	model      string
	timeout    time.Duration
	maxRetries int
	logger     *log.Logger
}

func NewProvider(baseURL, apiKey, model string, timeout time.Duration, maxRetries int, logger *log.Logger) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepseek: api key is not configured")
	}
	if model == "" {
		model = "deepseek-chat"
	}
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &Provider{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		timeout:    timeout,
		maxRetries: maxRetries,
		logger:     logger,
	}, nil
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := &llm.Options{
		Model: p.model,
	}
	for _, o := range options {
		o(opts)
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	req := openai.ChatCompletionRequest{
		Model:    opts.Model,
		Messages: messages,
	}
	if opts.Temperature > 0 {
		req.Temperature = float32(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}

	operation := func() (string, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		resp, err := p.client.CreateChatCompletion(attemptCtx, req)
		if err != nil {
			if shouldRetry(err) {
				return "", err
			}
			return "", backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 {
			return "", backoff.Permanent(fmt.Errorf("deepseek: empty choices"))
		}
		return resp.Choices[0].Message.Content, nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 1 * time.Second
	expo.MaxInterval = 10 * time.Second

	notify := func(err error, wait time.Duration) {
		if p.logger != nil {
			p.logger.Printf("[WARN] deepseek retry in %s: %v", wait, err)
		}
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(p.maxRetries)),
		backoff.WithNotify(notify),
	)
}

func (p *Provider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

// shouldRetry reports whether the error is a timeout, a 429, or a 5xx.
func shouldRetry(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}

	return false
}
