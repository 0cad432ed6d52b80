// FILE: pkg/dialog/generate/generator.go
// PURPOSE: Patient reply rendering. Deterministic templated reply by
// default, natural-language rendering through the LLM when enabled. A
// failed model call degrades to the template, never to an error.
package generate

import (
	"context"
	"fmt"
	"log"
	"strings"

	"rag-patient-be/internal/constant"
	"rag-patient-be/internal/dto"
	"rag-patient-be/pkg/dialog/prompt"
	"rag-patient-be/pkg/llm"
	"rag-patient-be/pkg/policy"
)

const (
	generationTemperature = 0.7
	generationMaxTokens   = 200
)

// Generator handles the final reply of a turn
type Generator struct {
	llmProvider llm.LLMProvider // nil disables the model path
	logger      *log.Logger
}

func NewGenerator(llmProvider llm.LLMProvider, logger *log.Logger) *Generator {
	return &Generator{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Params encapsulates one generation request
type Params struct {
	Plan       dto.ReasonPlan
	Intent     string
	RiskStatus string
	CaseTitle  string
	UseGen     bool
}

// Result reports which path produced the reply
type Result struct {
	Reply        string
	GenUsed      bool // model reply accepted
	FallbackUsed bool // model path attempted but replaced by the template
}

// Generate renders the reply. UseGen without a wired provider silently
// degrades to the template.
func (g *Generator) Generate(ctx context.Context, p Params) Result {
	if !p.UseGen || g.llmProvider == nil {
		return Result{Reply: g.templateReply(p)}
	}

	reply, ok := g.llmReply(ctx, p)
	if !ok {
		return Result{Reply: g.templateReply(p), FallbackUsed: true}
	}
	return Result{Reply: reply, GenUsed: true}
}

// templateReply keeps trainee tooling parseable when no model is in play.
func (g *Generator) templateReply(p Params) string {
	return fmt.Sprintf(constant.FallbackReplyFormat, len(p.Plan.ChosenIds), p.Intent, p.RiskStatus)
}

func (g *Generator) llmReply(ctx context.Context, p Params) (string, bool) {
	userBody, err := prompt.NewGenerationBuilder(p.Plan.ContentPlan, p.Plan.StyleDirectives, p.CaseTitle).Build()
	if err != nil {
		g.logger.Printf("[ERROR] Generation payload build failed: %v", err)
		return "", false
	}

	history := []llm.Message{
		{Role: "system", Content: prompt.GenerationSystem()},
		{Role: "user", Content: userBody},
	}

	raw, err := g.llmProvider.Chat(ctx, history,
		llm.WithTemperature(generationTemperature),
		llm.WithMaxTokens(generationMaxTokens),
	)
	if err != nil {
		g.logger.Printf("[WARN] Generation call failed: %v", err)
		return "", false
	}

	reply := strings.TrimSpace(raw)
	if strings.HasPrefix(reply, `"`) && strings.HasSuffix(reply, `"`) && len(reply) > 1 {
		reply = reply[1 : len(reply)-1]
	}
	if reply == "" {
		g.logger.Printf("[WARN] Generation returned empty content")
		return "", false
	}

	reply = enforceLength(reply, p.Plan.StyleDirectives.Length)
	g.logger.Printf("[DEBUG] Generated reply: %d chars, length=%s", len(reply), p.Plan.StyleDirectives.Length)
	return reply, true
}

// enforceLength clips the reply to the styled sentence budget: short keeps
// one sentence, long up to three, anything else passes through.
func enforceLength(reply, length string) string {
	sentences := splitSentences(reply)

	switch length {
	case policy.LengthShort:
		if len(sentences) > 1 {
			return sentences[0] + "."
		}
	case policy.LengthLong:
		if len(sentences) > 3 {
			return strings.Join(sentences[:3], ". ") + "."
		}
	}
	return reply
}

func splitSentences(text string) []string {
	parts := strings.Split(text, ".")
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}
