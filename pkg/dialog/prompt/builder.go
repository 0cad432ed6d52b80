// FILE: pkg/dialog/prompt/builder.go
// PURPOSE: Prompt assembly for the reasoning and generation calls. The
// system prompts pin the output contract, the builders serialize the turn
// context the model plans against.
package prompt

import (
	"encoding/json"
	"strings"

	"rag-patient-be/internal/dto"
	"rag-patient-be/internal/entity"
	"rag-patient-be/pkg/policy"
)

const candidateTextLimit = 500

// ReasoningSystem returns the system prompt for the planning call. The model
// must answer with a single JSON object, nothing else.
func ReasoningSystem() string {
	var p strings.Builder

	p.WriteString("<role>\n")
	p.WriteString("Ты — внутренний планировщик цифрового пациента на тренажёре для психотерапевтов.\n")
	p.WriteString("Тебе дана правда о кейсе, текущее состояние пациента и найденные фрагменты его истории.\n")
	p.WriteString("Ты решаешь, что пациент готов раскрыть на этом ходе и как изменится его состояние.\n")
	p.WriteString("</role>\n\n")

	p.WriteString("<output_contract>\n")
	p.WriteString("Ответь строго одним JSON-объектом без пояснений и без markdown:\n")
	p.WriteString("{\n")
	p.WriteString("  \"content_plan\": [\"до двух коротких фактов, которые пациент озвучит\"],\n")
	p.WriteString("  \"distortions_plan\": [],\n")
	p.WriteString("  \"style_directives\": {\"tempo\": \"slow|medium|fast\", \"length\": \"short|medium|long\"},\n")
	p.WriteString("  \"state_updates\": {\"trust_delta\": 0.0, \"fatigue_delta\": 0.0},\n")
	p.WriteString("  \"chosen_ids\": [\"id фрагментов, на которые опирается план\"],\n")
	p.WriteString("  \"disclosure_level\": \"none|partial|full\"\n")
	p.WriteString("}\n")
	p.WriteString("</output_contract>\n\n")

	p.WriteString("<rules>\n")
	p.WriteString("- Раскрывай скрытые факты только при достаточном доверии.\n")
	p.WriteString("- trust_delta в диапазоне [-0.2, 0.2], fatigue_delta в [0, 0.2].\n")
	p.WriteString("- chosen_ids только из переданных кандидатов.\n")
	p.WriteString("- Никакого текста вне JSON.\n")
	p.WriteString("</rules>")

	return p.String()
}

// GenerationSystem returns the system prompt for the reply call.
func GenerationSystem() string {
	var p strings.Builder

	p.WriteString("<role>\n")
	p.WriteString("Ты — пациент на приёме у психотерапевта. Говори от первого лица, по-русски,\n")
	p.WriteString("естественно и в рамках переданного плана. Не выходи за пределы фактов плана\n")
	p.WriteString("и не добавляй того, чего пациент не готов рассказать.\n")
	p.WriteString("</role>\n\n")

	p.WriteString("<style>\n")
	p.WriteString("Соблюдай tempo и length из style_directives. При остром риске отвечай сдержанно\n")
	p.WriteString("и спокойно. Ответ — только реплика пациента, без кавычек и ремарок.\n")
	p.WriteString("</style>")

	return p.String()
}

type reasoningPayload struct {
	CaseTruth    policy.CaseTruth    `json:"case_truth"`
	SessionState entity.SessionState `json:"session_state"`
	Candidates   []dto.Candidate     `json:"candidates"`
	Policies     policy.Policies     `json:"policies"`
}

// ReasoningBuilder serializes the turn context for the planning call
type ReasoningBuilder struct {
	truth      policy.CaseTruth
	state      entity.SessionState
	candidates []dto.Candidate
	policies   policy.Policies
}

func NewReasoningBuilder(truth policy.CaseTruth, state entity.SessionState, candidates []dto.Candidate, policies policy.Policies) *ReasoningBuilder {
	return &ReasoningBuilder{
		truth:      truth,
		state:      state,
		candidates: candidates,
		policies:   policies,
	}
}

// Build returns the user message body. Candidate texts are clipped so a
// large knowledge base cannot blow the token budget.
func (b *ReasoningBuilder) Build() (string, error) {
	payload := reasoningPayload{
		CaseTruth:    b.truth,
		SessionState: b.state,
		Candidates:   truncateCandidates(b.candidates, candidateTextLimit),
		Policies:     b.policies,
	}
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

type generationPayload struct {
	ContentPlan     []string            `json:"content_plan"`
	StyleDirectives dto.StyleDirectives `json:"style_directives"`
	PatientContext  string              `json:"patient_context"`
}

// GenerationBuilder serializes the reply plan for the generation call
type GenerationBuilder struct {
	plan    []string
	style   dto.StyleDirectives
	context string
}

func NewGenerationBuilder(plan []string, style dto.StyleDirectives, patientContext string) *GenerationBuilder {
	return &GenerationBuilder{
		plan:    plan,
		style:   style,
		context: patientContext,
	}
}

func (b *GenerationBuilder) Build() (string, error) {
	context := b.context
	if context == "" {
		context = "Пациент на тренировочной сессии"
	}
	payload := generationPayload{
		ContentPlan:     b.plan,
		StyleDirectives: b.style,
		PatientContext:  context,
	}
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func truncateCandidates(candidates []dto.Candidate, limit int) []dto.Candidate {
	out := make([]dto.Candidate, len(candidates))
	for i, c := range candidates {
		out[i] = c
		if runes := []rune(c.Text); len(runes) > limit {
			out[i].Text = string(runes[:limit]) + "..."
		}
	}
	return out
}
