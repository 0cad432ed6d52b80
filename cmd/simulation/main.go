package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Smoke client: plays a short therapist script against a running server and
// prints what the simulated patient does. Needs at least one loaded case
// (cmd/caseload seeds one).

// Simplified DTOs for the script
type caseListResponse struct {
	Data []struct {
		Id    string `json:"id"`
		Title string `json:"title"`
	} `json:"data"`
}

type turnRequest struct {
	TherapistUtterance string `json:"therapist_utterance"`
	CaseId             string `json:"case_id"`
	SessionId          string `json:"session_id,omitempty"`
}

type turnResponse struct {
	Data struct {
		SessionId    string `json:"session_id"`
		TurnNumber   int    `json:"turn_number"`
		PatientReply string `json:"patient_reply"`
		RiskStatus   string `json:"risk_status"`
		EvalMarkers  struct {
			Intent        string   `json:"intent"`
			Topics        []string `json:"topics"`
			RetrievalMode string   `json:"retrieval_mode"`
			FallbackUsed  bool     `json:"fallback_used"`
		} `json:"eval_markers"`
	} `json:"data"`
}

var client = &http.Client{Timeout: 30 * time.Second}

func main() {
	baseURL := flag.String("base-url", "http://localhost:8000/api/v1", "API base URL")
	flag.Parse()

	fmt.Println("=== Patient Simulator Smoke Client ===")

	caseId, title, err := firstCase(*baseURL)
	if err != nil {
		log.Fatalf("Failed to pick a case: %v (load one with cmd/caseload)", err)
	}
	fmt.Printf("Case: %s (%s)\n\n", title, caseId)

	script := []string{
		"Здравствуйте! Расскажите, что вас беспокоит в последнее время?",
		"Как вы спите? Удаётся ли выспаться?",
		"Я понимаю, это действительно выматывает.",
		"Бывают ли у вас мысли о том, чтобы причинить себе вред?",
	}

	sessionId := ""
	for _, utterance := range script {
		res, err := playTurn(*baseURL, turnRequest{
			TherapistUtterance: utterance,
			CaseId:             caseId,
			SessionId:          sessionId,
		})
		if err != nil {
			log.Fatalf("Turn failed: %v", err)
		}
		sessionId = res.Data.SessionId

		fmt.Printf("--- Turn %d ---\n", res.Data.TurnNumber)
		fmt.Printf("Therapist: %s\n", utterance)
		fmt.Printf("Patient:   %s\n", res.Data.PatientReply)
		fmt.Printf("           intent=%s topics=%v risk=%s mode=%s fallback=%v\n\n",
			res.Data.EvalMarkers.Intent,
			res.Data.EvalMarkers.Topics,
			res.Data.RiskStatus,
			res.Data.EvalMarkers.RetrievalMode,
			res.Data.EvalMarkers.FallbackUsed,
		)
	}

	fmt.Printf("Done. Session: %s\n", sessionId)
	fmt.Printf("Report: GET %s/sessions/%s/report\n", *baseURL, sessionId)
}

func firstCase(baseURL string) (string, string, error) {
	resp, err := client.Get(baseURL + "/cases")
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", "", fmt.Errorf("GET /cases: %d %s", resp.StatusCode, string(body))
	}

	var cases caseListResponse
	if err := json.NewDecoder(resp.Body).Decode(&cases); err != nil {
		return "", "", err
	}
	if len(cases.Data) == 0 {
		return "", "", fmt.Errorf("no cases in database")
	}
	return cases.Data[0].Id, cases.Data[0].Title, nil
}

func playTurn(baseURL string, req turnRequest) (*turnResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	resp, err := client.Post(baseURL+"/dialog/turn", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("POST /dialog/turn: %d %s", resp.StatusCode, string(body))
	}

	var res turnResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
