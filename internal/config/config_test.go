package config

import (
	"os"
	"testing"
)

func TestFirstNonEmpty(t *testing.T) {
	if v := firstNonEmpty("", "foo", "bar"); v != "foo" {
		t.Fatalf("expected 'foo', got %q", v)
	}
	if v := firstNonEmpty(); v != "" {
		t.Fatalf("expected empty, got %q", v)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"ENABLE_TABLE_STRUCTURE", "CHUNKING_STRATEGY", "MAX_CHUNK_TOKENS",
		"MAX_QUEUE", "LLM_TEMPERATURE", "VECTOR_STORE_PORT",
	} {
		old := os.Getenv(key)
		_ = os.Unsetenv(key)
		defer func(k, v string) { _ = os.Setenv(k, v) }(key, old)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Features.EnableTableStructure {
		t.Fatalf("expected table structure enabled by default")
	}
	if cfg.Chunking.Strategy != "hybrid" {
		t.Fatalf("expected hybrid default, got %q", cfg.Chunking.Strategy)
	}
	if cfg.Chunking.MaxChunkTokens != 512 {
		t.Fatalf("expected 512, got %d", cfg.Chunking.MaxChunkTokens)
	}
	if cfg.MaxQueue != 16 {
		t.Fatalf("expected 16, got %d", cfg.MaxQueue)
	}
	if cfg.LLM.Temperature != 0.3 {
		t.Fatalf("expected 0.3, got %v", cfg.LLM.Temperature)
	}
	if cfg.VectorStore.Port != 6334 {
		t.Fatalf("expected 6334, got %d", cfg.VectorStore.Port)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ENABLE_TABLE_STRUCTURE", "false")
	t.Setenv("MAX_CHUNK_TOKENS", "256")
	t.Setenv("MAX_QUEUE", "32")
	t.Setenv("LLM_TEMPERATURE", "0.9")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Features.EnableTableStructure {
		t.Fatalf("expected table structure disabled")
	}
	if cfg.Chunking.MaxChunkTokens != 256 {
		t.Fatalf("expected 256, got %d", cfg.Chunking.MaxChunkTokens)
	}
	if cfg.MaxQueue != 32 {
		t.Fatalf("expected 32, got %d", cfg.MaxQueue)
	}
	// LLM_TEMPERATURE is clamped to the spec's <=0.3 ceiling regardless of input.
	if cfg.LLM.Temperature != 0.3 {
		t.Fatalf("expected clamped 0.3, got %v", cfg.LLM.Temperature)
	}
}
