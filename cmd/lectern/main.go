// Lectern is a local RAG pipeline for lecture PDFs: ingestion, hybrid
// retrieval and quiz generation from the command line.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/lectern-dev/lectern/internal/adapters/driven/config/file"
	ollamaembed "github.com/lectern-dev/lectern/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/lectern-dev/lectern/internal/adapters/driven/embedding/openai"
	pdfextract "github.com/lectern-dev/lectern/internal/adapters/driven/extractor/pdf"
	"github.com/lectern-dev/lectern/internal/adapters/driven/lexical/bm25"
	"github.com/lectern-dev/lectern/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/lectern-dev/lectern/internal/adapters/driven/llm/ollama"
	openaillm "github.com/lectern-dev/lectern/internal/adapters/driven/llm/openai"
	"github.com/lectern-dev/lectern/internal/adapters/driven/storage/sqlite"
	"github.com/lectern-dev/lectern/internal/adapters/driven/vector/chromem"
	"github.com/lectern-dev/lectern/internal/adapters/driving/cli"
	"github.com/lectern-dev/lectern/internal/chunker"
	"github.com/lectern-dev/lectern/internal/core/ports/driven"
	"github.com/lectern-dev/lectern/internal/core/services"
	"github.com/lectern-dev/lectern/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Pick up OPENAI_API_KEY and friends from a local .env, if present.
	_ = godotenv.Load()

	cfg, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	dataDir := filepath.Join(home, ".lectern", "data")

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	embedder := buildEmbedder(cfg)

	var vectors driven.VectorIndex
	if embedder != nil {
		idx, err := chromem.NewPersistentIndex(
			filepath.Join(dataDir, "vectors"), "lectern-chunks", embedder.Dimensions())
		if err != nil {
			return fmt.Errorf("vector index: %w", err)
		}
		vectors = idx
	}

	lexical := bm25.NewIndex()
	lexicalPath := filepath.Join(dataDir, "bm25.json")
	if _, err := os.Stat(lexicalPath); err == nil {
		if err := lexical.Load(lexicalPath); err != nil {
			logger.Warn("Could not load lexical index, starting empty: %v", err)
		}
	}

	extractor := pdfextract.NewExtractor()

	ingest := services.NewIngestService(store, extractor, embedder, vectors, lexical, services.IngestConfig{
		Chunking: chunker.Config{
			MinTokens: cfg.GetInt("chunking.min_tokens"),
			MaxTokens: cfg.GetInt("chunking.max_tokens"),
			Overlap:   cfg.GetInt("chunking.overlap"),
		},
		EmbedBatchSize: cfg.GetInt("embedding.batch_size"),
	})
	retrieval := services.NewRetrievalService(store, embedder, vectors, lexical)
	quiz := services.NewQuizService(store, retrieval, buildQuizModel(cfg))

	cli.Configure(cli.Deps{
		Ingest:         ingest,
		Retrieval:      retrieval,
		Quiz:           quiz,
		DocStore:       store,
		Lexical:        lexical,
		LexicalPath:    lexicalPath,
		ScoreThreshold: cfg.GetFloat("retrieval.score_threshold"),
		Version:        version,
	})

	return cli.Execute()
}

// buildEmbedder constructs the configured embedding client. Returns nil
// when no provider is usable; ingestion then fails with a clear error
// and retrieval degrades to keyword search.
func buildEmbedder(cfg *file.ConfigStore) driven.Embedder {
	switch cfg.GetString("embedding.provider") {
	case "ollama":
		return ollamaembed.NewEmbedder(ollamaembed.Config{
			BaseURL:    cfg.GetString("embedding.base_url"),
			Model:      cfg.GetString("embedding.model"),
			Dimensions: cfg.GetInt("embedding.dimensions"),
		})
	default:
		embedder, err := openaiembed.NewEmbedder(openaiembed.Config{
			APIKey:     os.Getenv("OPENAI_API_KEY"),
			BaseURL:    cfg.GetString("embedding.base_url"),
			Model:      cfg.GetString("embedding.model"),
			Dimensions: cfg.GetInt("embedding.dimensions"),
		})
		if err != nil {
			logger.Warn("Embedding disabled: %v", err)
			return nil
		}
		return embedder
	}
}

// buildQuizModel constructs the configured generation model, or nil when
// none is usable; quiz generation is then disabled.
func buildQuizModel(cfg *file.ConfigStore) driven.QuizModel {
	switch cfg.GetString("llm.provider") {
	case "ollama":
		return ollamallm.NewQuizModel(ollamallm.Config{
			BaseURL: cfg.GetString("llm.base_url"),
			Model:   cfg.GetString("llm.model"),
		})
	case "anthropic":
		model, err := anthropic.NewQuizModel(anthropic.Config{
			APIKey: os.Getenv("ANTHROPIC_API_KEY"),
			Model:  cfg.GetString("llm.model"),
		})
		if err != nil {
			logger.Warn("Quiz generation disabled: %v", err)
			return nil
		}
		return model
	default:
		model, err := openaillm.NewQuizModel(openaillm.Config{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: cfg.GetString("llm.base_url"),
			Model:   cfg.GetString("llm.model"),
		})
		if err != nil {
			logger.Warn("Quiz generation disabled: %v", err)
			return nil
		}
		return model
	}
}
