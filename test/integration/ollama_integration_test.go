package integration

import (
	"os"
	"testing"

	"rag-patient-be/internal/entity"
	"rag-patient-be/pkg/embedding"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOllamaEmbedding talks to a local Ollama instance. Gated on the env so
// CI without the model skips it.
func TestOllamaEmbedding(t *testing.T) {
	_ = godotenv.Load("../../.env")

	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		t.Skip("Skipping integration test: OLLAMA_BASE_URL not set")
	}
	model := os.Getenv("OLLAMA_EMBEDDING_MODEL")
	if model == "" {
		model = "bge-m3"
	}

	provider := embedding.NewOllamaProvider(baseURL, model, 1024)

	text := embedding.FragmentText(
		"Засыпаю по два часа, потом просыпаюсь в четыре утра.",
		entity.FragmentMetadata{Topic: "sleep", Tags: []string{"sleep", "hook"}},
		"public",
	)

	res, err := provider.Generate(text, embedding.TaskDocument)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.Embedding.Values)
	t.Logf("Embedding dims: %d", len(res.Embedding.Values))

	// Query and document vectors must live in the same space.
	qres, err := provider.Generate("Как вы спите в последнее время?", embedding.TaskQuery)
	require.NoError(t, err)
	assert.Equal(t, len(res.Embedding.Values), len(qres.Embedding.Values))
}
