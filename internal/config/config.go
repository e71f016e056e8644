// Package config loads runtime configuration from the environment (with an
// optional .env overlay), following the same shape as the rest of the
// ingestion/retrieval pipeline's settings in spec section 6.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// FeatureFlags gates the optional structure-extraction enrichments.
type FeatureFlags struct {
	EnableTableStructure       bool
	EnablePictureClassification bool
	EnableCodeEnrichment       bool
	EnableFormulaEnrichment    bool
}

// ChunkingConfig controls the smart chunker.
type ChunkingConfig struct {
	Strategy         string // "hybrid" | "legacy"
	MaxChunkTokens   int
	MinChunkTokens   int
	MergePeerChunks  bool
}

// RenderConfig controls page rendering and embedding batch sizes.
type RenderConfig struct {
	PageRenderDPI   int
	ImagesScale     float64
	VisualBatchSize int
	TextBatchSize   int
}

// EmbeddingConfig selects device/precision for the embedding model wrapper.
type EmbeddingConfig struct {
	Device    string // "mps" | "cuda" | "cpu"
	Precision string // "fp16" | "int8"
}

// ResearchConfig controls the research orchestrator's vision mode.
type ResearchConfig struct {
	VisionEnabled bool
	MaxImages     int
	ImageBaseURL  string
}

// LLMConfig selects the foundation model used for research answers.
type LLMConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// VectorStoreConfig points at the Qdrant deployment backing the two
// collections (visual + text).
type VectorStoreConfig struct {
	Host               string
	Port               int
	VisualCollection   string
	TextCollection     string
}

// ObjectStoreConfig selects the backend for page-image persistence.
type ObjectStoreConfig struct {
	Backend string // "s3" selects S3; any other value ("memory", "fs", ...) gets the in-memory store
	Bucket  string
	Region  string
	Prefix  string
	DataDir string // not read by either object store backend

	// S3-only settings; ignored by the in-memory store.
	Endpoint              string
	AccessKey             string
	SecretKey             string
	UsePathStyle          bool
	TLSInsecureSkipVerify bool
	SSEMode               string // "" | "sse-s3" | "sse-kms"
	SSEKMSKeyID           string
}

// Config is the fully-resolved runtime configuration.
type Config struct {
	Features     FeatureFlags
	Chunking     ChunkingConfig
	Render       RenderConfig
	Embedding    EmbeddingConfig
	Research     ResearchConfig
	LLM          LLMConfig
	VectorStore  VectorStoreConfig
	ObjectStore  ObjectStoreConfig

	ProcessingTimeoutSeconds int
	MaxWorkers               int
	MaxQueue                 int

	AnthropicAPIKey string
	OpenAIAPIKey    string
	OpenAIBaseURL   string

	LogLevel string
	HTTPAddr string
}

// Load reads configuration from the environment, applying a .env overlay
// first (values there take precedence, matching local-dev workflows) and
// then filling documented defaults for anything left unset.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{
		Features: FeatureFlags{
			EnableTableStructure:        true,
			EnablePictureClassification: true,
			EnableCodeEnrichment:        false,
			EnableFormulaEnrichment:     false,
		},
		Chunking: ChunkingConfig{
			Strategy:        "hybrid",
			MaxChunkTokens:  512,
			MinChunkTokens:  100,
			MergePeerChunks: true,
		},
		Render: RenderConfig{
			PageRenderDPI:   150,
			ImagesScale:     2.0,
			VisualBatchSize: 4,
			TextBatchSize:   8,
		},
		Embedding: EmbeddingConfig{
			Device:    "cpu",
			Precision: "fp16",
		},
		Research: ResearchConfig{
			VisionEnabled: false,
			MaxImages:     10,
		},
		LLM: LLMConfig{
			Temperature: 0.3,
		},
		VectorStore: VectorStoreConfig{
			Host:             "localhost",
			Port:             6334,
			VisualCollection: "doc_visual",
			TextCollection:   "doc_text",
		},
		ObjectStore: ObjectStoreConfig{
			Backend: "memory",
			DataDir: "data/page_images",
		},
		ProcessingTimeoutSeconds: 300,
		MaxWorkers:               1,
		MaxQueue:                 16,
		LogLevel:                 "info",
		HTTPAddr:                 ":8080",
	}

	if v := boolEnv("ENABLE_TABLE_STRUCTURE"); v != nil {
		cfg.Features.EnableTableStructure = *v
	}
	if v := boolEnv("ENABLE_PICTURE_CLASSIFICATION"); v != nil {
		cfg.Features.EnablePictureClassification = *v
	}
	if v := boolEnv("ENABLE_CODE_ENRICHMENT"); v != nil {
		cfg.Features.EnableCodeEnrichment = *v
	}
	if v := boolEnv("ENABLE_FORMULA_ENRICHMENT"); v != nil {
		cfg.Features.EnableFormulaEnrichment = *v
	}

	if v := strEnv("CHUNKING_STRATEGY"); v != "" {
		cfg.Chunking.Strategy = v
	}
	if v := intEnv("MAX_CHUNK_TOKENS"); v != nil {
		cfg.Chunking.MaxChunkTokens = *v
	}
	if v := intEnv("MIN_CHUNK_TOKENS"); v != nil {
		cfg.Chunking.MinChunkTokens = *v
	}
	if v := boolEnv("MERGE_PEER_CHUNKS"); v != nil {
		cfg.Chunking.MergePeerChunks = *v
	}

	if v := intEnv("PAGE_RENDER_DPI"); v != nil {
		cfg.Render.PageRenderDPI = *v
	}
	if v := floatEnv("IMAGES_SCALE"); v != nil {
		cfg.Render.ImagesScale = *v
	}
	if v := intEnv("VISUAL_BATCH_SIZE"); v != nil {
		cfg.Render.VisualBatchSize = *v
	}
	if v := intEnv("TEXT_BATCH_SIZE"); v != nil {
		cfg.Render.TextBatchSize = *v
	}

	if v := strEnv("EMBEDDING_DEVICE"); v != "" {
		cfg.Embedding.Device = v
	}
	if v := strEnv("EMBEDDING_PRECISION"); v != "" {
		cfg.Embedding.Precision = v
	}

	if v := boolEnv("RESEARCH_VISION_ENABLED"); v != nil {
		cfg.Research.VisionEnabled = *v
	}
	if v := intEnv("RESEARCH_MAX_IMAGES"); v != nil {
		cfg.Research.MaxImages = *v
	}
	cfg.Research.ImageBaseURL = strEnv("RESEARCH_IMAGE_BASE_URL")

	cfg.LLM.Model = strEnv("LLM_MODEL")
	if v := floatEnv("LLM_TEMPERATURE"); v != nil {
		cfg.LLM.Temperature = *v
	}
	if cfg.LLM.Temperature > 0.3 {
		cfg.LLM.Temperature = 0.3
	}
	if v := intEnv("LLM_MAX_TOKENS"); v != nil {
		cfg.LLM.MaxTokens = *v
	}

	if v := intEnv("PROCESSING_TIMEOUT"); v != nil {
		cfg.ProcessingTimeoutSeconds = *v
	}
	if v := intEnv("MAX_WORKERS"); v != nil {
		cfg.MaxWorkers = *v
	}
	if v := intEnv("MAX_QUEUE"); v != nil {
		cfg.MaxQueue = *v
	}

	if v := strEnv("VECTOR_STORE_HOST"); v != "" {
		cfg.VectorStore.Host = v
	}
	if v := intEnv("VECTOR_STORE_PORT"); v != nil {
		cfg.VectorStore.Port = *v
	}
	if v := strEnv("VISUAL_COLLECTION_NAME"); v != "" {
		cfg.VectorStore.VisualCollection = v
	}
	if v := strEnv("TEXT_COLLECTION_NAME"); v != "" {
		cfg.VectorStore.TextCollection = v
	}

	if v := strEnv("OBJECT_STORE_BACKEND"); v != "" {
		cfg.ObjectStore.Backend = v
	}
	cfg.ObjectStore.Bucket = strEnv("OBJECT_STORE_BUCKET")
	cfg.ObjectStore.Region = strEnv("AWS_REGION")
	cfg.ObjectStore.Prefix = strEnv("OBJECT_STORE_PREFIX")
	if v := strEnv("OBJECT_STORE_DATA_DIR"); v != "" {
		cfg.ObjectStore.DataDir = v
	}
	cfg.ObjectStore.Endpoint = strEnv("OBJECT_STORE_S3_ENDPOINT")
	cfg.ObjectStore.AccessKey = strEnv("OBJECT_STORE_S3_ACCESS_KEY")
	cfg.ObjectStore.SecretKey = strEnv("OBJECT_STORE_S3_SECRET_KEY")
	if v := boolEnv("OBJECT_STORE_S3_USE_PATH_STYLE"); v != nil {
		cfg.ObjectStore.UsePathStyle = *v
	}
	if v := boolEnv("OBJECT_STORE_S3_TLS_INSECURE_SKIP_VERIFY"); v != nil {
		cfg.ObjectStore.TLSInsecureSkipVerify = *v
	}
	cfg.ObjectStore.SSEMode = strEnv("OBJECT_STORE_S3_SSE_MODE")
	cfg.ObjectStore.SSEKMSKeyID = strEnv("OBJECT_STORE_S3_SSE_KMS_KEY_ID")

	cfg.AnthropicAPIKey = strEnv("ANTHROPIC_API_KEY")
	cfg.OpenAIAPIKey = strEnv("OPENAI_API_KEY")
	cfg.OpenAIBaseURL = firstNonEmpty(strEnv("OPENAI_BASE_URL"), strEnv("OPENAI_API_BASE_URL"))

	if v := strEnv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := strEnv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}

	return cfg, nil
}

func strEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func boolEnv(key string) *bool {
	v := strEnv(key)
	if v == "" {
		return nil
	}
	b := strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
	return &b
}

func intEnv(key string) *int {
	v := strEnv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func floatEnv(key string) *float64 {
	v := strEnv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

// firstNonEmpty returns the first non-empty string among vals.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
