package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"rag-patient-be/internal/dto"
	"rag-patient-be/internal/repository/memory"
	"rag-patient-be/internal/repository/unitofwork"
	"rag-patient-be/internal/service"
	"rag-patient-be/pkg/database"

	"github.com/joho/godotenv"
)

// Demo case used when no file is given. An insomnia presentation with one
// gated disclosure and a trajectory to walk, enough to exercise the whole
// pipeline against a fresh database.
const defaultCaseJSON = `{
  "title": "Мария, 34. Нарушения сна",
  "case_truth": {
    "dx_target": ["инсомния"],
    "ddx": {"инсомния": 0.7, "тревожное расстройство": 0.3},
    "hidden_facts": ["пьёт кофе по вечерам", "конфликт с руководителем"],
    "red_flags": ["суицидальные мысли"],
    "trajectories": [
      {
        "id": "tr_sleep",
        "name": "Сон и вечерние привычки",
        "steps": [
          {"id": "s1", "name": "Выяснить режим сна", "condition_tags": ["sleep"], "min_trust": 0.2},
          {"id": "s2", "name": "Выяснить вечерние привычки", "condition_tags": ["sleep", "alcohol"], "min_trust": 0.4}
        ]
      }
    ]
  },
  "policies": {
    "disclosure_rules": {"full_on_valid_question": true, "partial_if_low_trust": true, "min_trust_for_gated": 0.4},
    "distortion_rules": {"enabled": true, "by_defense": {"минимизация": 0.3}},
    "risk_protocol": {"trigger_keywords": ["суицид", "не хочу жить"], "response_style": "стабильный", "lock_topics": []},
    "style_profile": {"register": "разговорный", "tempo": "medium", "length": "short"}
  },
  "fragments": [
    {
      "text": "Засыпаю по два часа, потом просыпаюсь в четыре утра и лежу до будильника.",
      "topic": "sleep",
      "availability": "public",
      "tags": ["sleep", "hook"]
    },
    {
      "text": "По утрам настроение на нуле, к вечеру немного расходится.",
      "topic": "mood",
      "availability": "public",
      "tags": ["mood"]
    },
    {
      "text": "Иногда выпиваю бокал вина перед сном, кажется так проще уснуть.",
      "topic": "alcohol",
      "availability": "gated",
      "tags": ["alcohol", "key"],
      "disclosure_requirements": {"trust_ge": 0.5}
    },
    {
      "text": "На работе всё чаще думаю, что проще было бы исчезнуть.",
      "topic": "work",
      "availability": "hidden",
      "emotion_label": "distressed",
      "tags": ["work"]
    }
  ]
}`

func main() {
	filePath := flag.String("file", "", "path to a case JSON file (embedded demo case when empty)")
	flag.Parse()

	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	// 3. Read the case payload
	payload := []byte(defaultCaseJSON)
	source := "embedded demo case"
	if *filePath != "" {
		payload, err = os.ReadFile(*filePath)
		if err != nil {
			log.Fatalf("Error: Failed to read %s: %v", *filePath, err)
		}
		source = *filePath
	}

	var req dto.CreateCaseRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		log.Fatalf("Error: Invalid case JSON: %v", err)
	}

	// 4. Load through the same service the API uses
	uowFactory := unitofwork.NewRepositoryFactory(db)
	caseService := service.NewCaseService(uowFactory, memory.NewCaseCache(), nil, nil)

	res, err := caseService.Create(context.Background(), &req)
	if err != nil {
		log.Fatalf("Error: Case load failed: %v", err)
	}

	log.Printf("✓ Case loaded from %s", source)
	log.Printf("Case ID: %s (%d fragments, embeddings pending backfill)", res.CaseId, len(req.Fragments))
}
