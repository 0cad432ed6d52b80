package jsonx

import (
	"testing"
)

type testPlan struct {
	ContentPlan []string `json:"content_plan"`
	Tempo       string   `json:"tempo"`
}

func TestUnmarshalJSONFence(t *testing.T) {
	text := "Here is the plan:\n```json\n{\"content_plan\": [\"a\"], \"tempo\": \"slow\"}\n```\nDone."

	var plan testPlan
	if err := Unmarshal(text, &plan); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(plan.ContentPlan) != 1 || plan.ContentPlan[0] != "a" {
		t.Errorf("content_plan = %v, want [a]", plan.ContentPlan)
	}
	if plan.Tempo != "slow" {
		t.Errorf("tempo = %q, want slow", plan.Tempo)
	}
}

func TestUnmarshalPlainFence(t *testing.T) {
	text := "```\n{\"tempo\": \"fast\"}\n```"

	var plan testPlan
	if err := Unmarshal(text, &plan); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if plan.Tempo != "fast" {
		t.Errorf("tempo = %q, want fast", plan.Tempo)
	}
}

func TestUnmarshalRawBraces(t *testing.T) {
	text := "The model thinks out loud. {\"tempo\": \"medium\", \"content_plan\": []} trailing prose."

	var plan testPlan
	if err := Unmarshal(text, &plan); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if plan.Tempo != "medium" {
		t.Errorf("tempo = %q, want medium", plan.Tempo)
	}
}

func TestUnmarshalNestedObject(t *testing.T) {
	text := `{"outer": {"inner": 1}, "tempo": "slow"}`

	var got map[string]any
	if err := Unmarshal(text, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if _, ok := got["outer"]; !ok {
		t.Error("nested object lost during extraction")
	}
}

func TestUnmarshalRepairsTrailingCommas(t *testing.T) {
	text := "{\"content_plan\": [\"a\", \"b\",], \"tempo\": \"slow\",}"

	var plan testPlan
	if err := Unmarshal(text, &plan); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(plan.ContentPlan) != 2 {
		t.Errorf("content_plan = %v, want 2 items", plan.ContentPlan)
	}
}

func TestUnmarshalRepairsComments(t *testing.T) {
	text := "{\n\"tempo\": \"fast\" // the patient is agitated\n}"

	var plan testPlan
	if err := Unmarshal(text, &plan); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if plan.Tempo != "fast" {
		t.Errorf("tempo = %q, want fast", plan.Tempo)
	}
}

func TestUnmarshalNoJSON(t *testing.T) {
	var plan testPlan
	if err := Unmarshal("I cannot answer that.", &plan); err == nil {
		t.Error("Unmarshal() = nil error, want failure for prose-only text")
	}
}

func TestUnmarshalPrefersJSONFenceOverProseBraces(t *testing.T) {
	text := "Ignore {\"tempo\": \"broken\" and use:\n```json\n{\"tempo\": \"slow\"}\n```"

	var plan testPlan
	if err := Unmarshal(text, &plan); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if plan.Tempo != "slow" {
		t.Errorf("tempo = %q, want slow (from the json fence)", plan.Tempo)
	}
}
