package main

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/TuckerTucker/tkr-docusearch/internal/chunker"
	"github.com/TuckerTucker/tkr-docusearch/internal/config"
	rcontext "github.com/TuckerTucker/tkr-docusearch/internal/context"
	"github.com/TuckerTucker/tkr-docusearch/internal/docregistry"
	"github.com/TuckerTucker/tkr-docusearch/internal/embedding"
	"github.com/TuckerTucker/tkr-docusearch/internal/httpapi"
	"github.com/TuckerTucker/tkr-docusearch/internal/llm"
	"github.com/TuckerTucker/tkr-docusearch/internal/llm/anthropic"
	"github.com/TuckerTucker/tkr-docusearch/internal/llm/openai"
	"github.com/TuckerTucker/tkr-docusearch/internal/logging"
	"github.com/TuckerTucker/tkr-docusearch/internal/obs"
	"github.com/TuckerTucker/tkr-docusearch/internal/objectstore"
	"github.com/TuckerTucker/tkr-docusearch/internal/parser"
	"github.com/TuckerTucker/tkr-docusearch/internal/processor"
	"github.com/TuckerTucker/tkr-docusearch/internal/render"
	"github.com/TuckerTucker/tkr-docusearch/internal/research"
	"github.com/TuckerTucker/tkr-docusearch/internal/retrieve"
	"github.com/TuckerTucker/tkr-docusearch/internal/statusfabric"
	"github.com/TuckerTucker/tkr-docusearch/internal/vectorstore"
)

// zlogAdapter satisfies every package-local Logger interface in this module
// (processor.Logger, statusfabric.Logger, research.Logger, httpapi.Logger)
// with the single process-wide zerolog logger.
type zlogAdapter struct{}

func (zlogAdapter) Info(msg string, fields map[string]any) {
	log.Info().Fields(fields).Msg(msg)
}

func (zlogAdapter) Error(msg string, fields map[string]any) {
	log.Error().Fields(fields).Msg(msg)
}

func (zlogAdapter) Debug(msg string, fields map[string]any) {
	log.Debug().Fields(fields).Msg(msg)
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		_ = godotenv.Load("example.env")
	}

	logging.Init(os.Getenv("LOG_PATH"), "info")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(os.Getenv("LOG_PATH"), cfg.LogLevel)

	logAdapter := zlogAdapter{}
	metrics := obs.NewOtelMetrics()

	store, err := newVectorStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init vector store")
	}
	defer func() { _ = store.Close() }()

	images, err := newObjectStore(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init object store")
	}

	embeddingBaseURL := os.Getenv("EMBEDDING_BASE_URL")
	model := embedding.New(embedding.Config{
		Variant:   pickEmbeddingVariant(cfg, embeddingBaseURL),
		BaseURL:   embeddingBaseURL,
		Model:     os.Getenv("EMBEDDING_MODEL"),
		APIKey:    os.Getenv("EMBEDDING_API_KEY"),
		APIHeader: os.Getenv("EMBEDDING_API_HEADER"),
		Precision: cfg.Embedding.Precision,
	})
	coordinator := embedding.NewCoordinator(model, embedding.BatchConfig{
		VisualBatchSize: cfg.Render.VisualBatchSize,
		TextBatchSize:   cfg.Render.TextBatchSize,
	})

	parsers := parser.NewRegistry()
	chunkerCfg := chunker.DefaultConfig()
	if cfg.Chunking.Strategy != "" {
		chunkerCfg.Strategy = cfg.Chunking.Strategy
	}
	chunkerCfg.MaxChunkTokens = cfg.Chunking.MaxChunkTokens
	chunkerCfg.MinChunkTokens = cfg.Chunking.MinChunkTokens
	chunkerCfg.MergePeerChunks = cfg.Chunking.MergePeerChunks

	hub := statusfabric.NewHub()
	statusMgr := statusfabric.NewManager(hub, statusfabric.WithLogger(logAdapter))
	uploads := statusfabric.NewRegistry(cfg.MaxQueue)
	docs := docregistry.New()

	// ImagePath is an object store key (set by the render stage below), not
	// a filesystem path, so loading a page image means reading it back out
	// of the same store it was rendered into.
	loadImage := func(ctx context.Context, imagePath string) ([]byte, error) {
		rc, _, err := images.Get(ctx, imagePath)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}

	renderer := render.NewRegistry()

	proc := processor.New(parsers, chunkerCfg, coordinator, store, statusMgr, loadImage,
		processor.WithLogger(logAdapter), processor.WithMetrics(metrics),
		processor.WithPageRenderer(renderer, images, cfg.Render.PageRenderDPI, cfg.Render.ImagesScale))

	engine := retrieve.New(store, coordinator)

	provider := pickLLMProvider(cfg)
	orchestrator := research.New(engine, provider, research.Config{
		Model:         cfg.LLM.Model,
		Temperature:   cfg.LLM.Temperature,
		MaxTokens:     cfg.LLM.MaxTokens,
		NumSources:    10,
		VisionEnabled: cfg.Research.VisionEnabled,
		MaxImages:     cfg.Research.MaxImages,
		ImageBaseURL:  cfg.Research.ImageBaseURL,
		Preprocess:    rcontext.PreprocessConfig{},
	}, research.WithLogger(logAdapter), research.WithMetrics(metrics))

	server := httpapi.NewServer(httpapi.Deps{
		Processor:    proc,
		StatusMgr:    statusMgr,
		Hub:          hub,
		Uploads:      uploads,
		Docs:         docs,
		Images:       images,
		VectorStore:  store,
		Engine:       engine,
		Orchestrator: orchestrator,
		ContextCfg: httpapi.ContextConfig{
			NumSources:    10,
			VisionEnabled: cfg.Research.VisionEnabled,
			MaxImages:     cfg.Research.MaxImages,
			ImageBaseURL:  cfg.Research.ImageBaseURL,
		},
		Logger: logAdapter,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("docragd listening")
	if err := http.ListenAndServe(cfg.HTTPAddr, server); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func newVectorStore(cfg config.Config) (vectorstore.Store, error) {
	return vectorstore.NewQdrantStore(context.Background(), vectorstore.QdrantConfig{
		Host:             cfg.VectorStore.Host,
		Port:             cfg.VectorStore.Port,
		VisualCollection: cfg.VectorStore.VisualCollection,
		TextCollection:   cfg.VectorStore.TextCollection,
		Dim:              embedding.Dim,
	})
}

func newObjectStore(ctx context.Context, cfg config.Config) (objectstore.ObjectStore, error) {
	switch cfg.ObjectStore.Backend {
	case "s3":
		return objectstore.NewS3Store(ctx, cfg.ObjectStore)
	default:
		return objectstore.NewMemoryStore(), nil
	}
}

// pickEmbeddingVariant falls back to the deterministic mock model when no
// embedding service endpoint is configured, so the daemon still boots for
// local development without a real model server.
func pickEmbeddingVariant(cfg config.Config, baseURL string) embedding.Variant {
	if baseURL == "" {
		return embedding.VariantMock
	}
	if cfg.Embedding.Precision == "int8" {
		return embedding.VariantQuantized
	}
	return embedding.VariantReal
}

func pickLLMProvider(cfg config.Config) llm.Provider {
	if cfg.AnthropicAPIKey != "" {
		return anthropic.New(cfg.AnthropicAPIKey, cfg.LLM.Model, http.DefaultClient)
	}
	return openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.LLM.Model, http.DefaultClient)
}
