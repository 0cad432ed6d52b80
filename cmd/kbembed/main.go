package main

import (
	"context"
	"flag"
	"log"

	"rag-patient-be/internal/config"
	"rag-patient-be/internal/repository/specification"
	"rag-patient-be/internal/repository/unitofwork"
	"rag-patient-be/pkg/database"
	"rag-patient-be/pkg/embedding"

	"github.com/google/uuid"
)

func main() {
	caseIdStr := flag.String("case-id", "", "limit backfill to one case (all cases when empty)")
	batchSize := flag.Int("batch", 128, "fragments fetched per round")
	flag.Parse()

	// 1. Load Configuration
	cfg := config.Load()

	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}
	if cfg.Embedding.OllamaBaseURL == "" {
		log.Fatal("Error: no embedding provider configured (set OLLAMA_BASE_URL)")
	}

	var caseId uuid.UUID
	if *caseIdStr != "" {
		parsed, err := uuid.Parse(*caseIdStr)
		if err != nil {
			log.Fatalf("Error: invalid case id %q: %v", *caseIdStr, err)
		}
		caseId = parsed
	}

	// 2. Connect to Database
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	provider := embedding.NewOllamaProvider(
		cfg.Embedding.OllamaBaseURL,
		cfg.Embedding.OllamaModel,
		cfg.Embedding.Dimension,
	)
	log.Printf("Backfilling embeddings with OLLAMA (%s), batch size %d", cfg.Embedding.OllamaModel, *batchSize)

	// 3. Process fragments with NULL embedding in rounds. Each round re-runs
	// the same query; embedded fragments drop out of it, so no offset.
	ctx := context.Background()
	uow := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(ctx)

	embedded, failed := 0, 0
	for {
		specs := []specification.Specification{
			specification.WithoutEmbedding{},
			specification.OrderBy{Field: "id"},
			specification.Pagination{Limit: *batchSize},
		}
		if caseId != uuid.Nil {
			specs = append(specs, specification.ByCaseId{CaseId: caseId})
		}

		fragments, err := uow.FragmentRepository().FindAll(ctx, specs...)
		if err != nil {
			log.Fatalf("Error: Failed to fetch fragments: %v", err)
		}
		if len(fragments) == 0 {
			break
		}

		roundFailures := 0
		for _, fragment := range fragments {
			text := embedding.FragmentText(fragment.Text, fragment.Metadata, fragment.Availability)
			res, err := provider.Generate(text, embedding.TaskDocument)
			if err != nil {
				log.Printf("Warn: Failed to embed fragment %s: %v", fragment.Id, err)
				failed++
				roundFailures++
				continue
			}

			fragment.Embedding = res.Embedding.Values
			if err := uow.FragmentRepository().Update(ctx, fragment); err != nil {
				log.Printf("Warn: Failed to store embedding for fragment %s: %v", fragment.Id, err)
				failed++
				roundFailures++
				continue
			}
			embedded++
		}

		// Every fragment in the round failed; the next round would fetch the
		// same rows forever.
		if roundFailures == len(fragments) {
			log.Printf("Error: whole round of %d fragments failed, stopping", len(fragments))
			break
		}
	}

	log.Printf("✓ Backfill complete: %d embedded, %d failed", embedded, failed)
}
