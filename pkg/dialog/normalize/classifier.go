// Package normalize classifies a therapist utterance into intent, topics and
// risk flags. Classification is deterministic: the same utterance with the
// same policy keywords always yields the same result.
package normalize

import (
	"strings"

	"rag-patient-be/internal/constant"
	"rag-patient-be/internal/dto"
)

// defaultRiskKeywords apply when the case policies carry no trigger list.
// Slightly wider than the policy defaults on purpose: an unconfigured case
// still catches the common phrasings.
var defaultRiskKeywords = []string{
	"суицид",
	"убить себя",
	"не хочу жить",
	"покончить с жизнью",
	"повеситься",
	"отравиться",
}

var clarifyKeywords = []string{"как", "что", "когда", "где", "почему", "какой"}

var rapportKeywords = []string{"понимаю", "сочувствую", "поддерживаю"}

// topicKeywords maps the fixed topic vocabulary to Russian keyword stems.
// Stems match inflected forms by substring ("засыпа" covers «засыпаю»,
// «засыпает», ...).
var topicKeywords = map[string][]string{
	"sleep":   {"спать", "спите", "сон", "бессонница", "засыпа"},
	"mood":    {"настроение", "депрессия", "грусть", "радость", "тревога"},
	"alcohol": {"алкоголь", "пить", "выпивка", "водка", "пиво"},
	"work":    {"работа", "работой", "карьера", "коллеги", "босс"},
	"family":  {"семья", "семьей", "родители", "дети", "жена", "муж"},
}

// Classify maps a raw therapist utterance to intent, topics, risk flags and a
// short summary for the next turn. triggerKeywords come from the case risk
// protocol; pass nil to use the defaults.
func Classify(utterance string, triggerKeywords []string) dto.NormalizedInput {
	lower := strings.ToLower(utterance)

	riskKeywords := triggerKeywords
	if len(riskKeywords) == 0 {
		riskKeywords = defaultRiskKeywords
	}

	return dto.NormalizedInput{
		Intent:    extractIntent(lower, riskKeywords),
		Topics:    extractTopics(lower),
		RiskFlags: extractRiskFlags(lower, riskKeywords),
		Summary:   Summarize(utterance),
	}
}

// extractIntent applies keyword rules with risk taking precedence over
// everything else.
func extractIntent(lower string, riskKeywords []string) string {
	if containsAny(lower, riskKeywords) {
		return constant.IntentRiskCheck
	}
	if containsAny(lower, clarifyKeywords) {
		return constant.IntentClarify
	}
	if containsAny(lower, rapportKeywords) {
		return constant.IntentRapport
	}
	return constant.IntentOpenQuestion
}

func extractTopics(lower string) []string {
	topics := make([]string, 0)
	// Stable order so identical utterances classify identically.
	for _, topic := range []string{"sleep", "mood", "alcohol", "work", "family"} {
		if containsAny(lower, topicKeywords[topic]) {
			topics = append(topics, topic)
		}
	}
	return topics
}

func extractRiskFlags(lower string, riskKeywords []string) []string {
	if containsAny(lower, riskKeywords) {
		return []string{constant.RiskFlagSuicideIdeation}
	}
	return nil
}

// Summarize clips an utterance to the summary budget, appending an ellipsis
// marker when trimmed. Clipping counts runes, not bytes; the inputs are
// mostly Cyrillic.
func Summarize(utterance string) string {
	runes := []rune(utterance)
	if len(runes) <= constant.SummaryMaxLen {
		return utterance
	}
	return string(runes[:constant.SummaryMaxLen]) + "..."
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if needle == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(needle)) {
			return true
		}
	}
	return false
}
