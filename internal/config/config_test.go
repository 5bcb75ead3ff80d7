package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"edi-assistant-go/internal/apperrors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Ingest.ChunkSize != 900 || cfg.Ingest.ChunkOverlap != 150 {
		t.Errorf("unexpected chunk defaults: %d/%d", cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	}
	if cfg.Retrieval.TopK != 10 || cfg.Retrieval.MaxQueryChars != 4000 {
		t.Errorf("unexpected retrieval defaults: %+v", cfg.Retrieval)
	}
	if cfg.Index.Metric != "ip" {
		t.Errorf("Index.Metric = %q, want ip", cfg.Index.Metric)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
ingest:
  chunk_size: 400
  chunk_overlap: 50
retrieval:
  top_k: 5
  min_score: 0.35
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Ingest.ChunkSize != 400 || cfg.Ingest.ChunkOverlap != 50 {
		t.Errorf("chunk config = %d/%d, want 400/50", cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	}
	if cfg.Retrieval.TopK != 5 || cfg.Retrieval.MinScore != 0.35 {
		t.Errorf("retrieval config = %+v", cfg.Retrieval)
	}
}

func TestLegacyEnvOverrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "100")
	t.Setenv("MIN_SIMILARITY", "0.4")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Ingest.ChunkSize != 500 || cfg.Ingest.ChunkOverlap != 100 {
		t.Errorf("chunk config = %d/%d, want 500/100", cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	}
	if cfg.Retrieval.MinScore != 0.4 {
		t.Errorf("MinScore = %v, want 0.4", cfg.Retrieval.MinScore)
	}
	if cfg.Embedding.APIKey != "sk-test" || cfg.LLM.APIKey != "sk-test" {
		t.Errorf("api keys not bound from OPENAI_API_KEY")
	}
}

func TestValidateRejectsOverlap(t *testing.T) {
	path := writeConfig(t, `
ingest:
  chunk_size: 100
  chunk_overlap: 100
`)
	_, err := Load(path)
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("Load() error = %v, want ErrConfiguration", err)
	}
}

func TestValidateRejectsBatchSize(t *testing.T) {
	t.Setenv("EMBED_BATCH_SIZE", "128")
	_, err := Load("")
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("Load() error = %v, want ErrConfiguration", err)
	}
}

func TestValidateRejectsMetric(t *testing.T) {
	path := writeConfig(t, `
index:
  metric: "hamming"
`)
	_, err := Load(path)
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("Load() error = %v, want ErrConfiguration", err)
	}
}

func TestValidateRejectsRateLimit(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero window", "rate_limit:\n  window_seconds: 0\n"},
		{"negative window", "rate_limit:\n  window_seconds: -5\n"},
		{"zero requests", "rate_limit:\n  requests: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if !errors.Is(err, apperrors.ErrConfiguration) {
				t.Fatalf("Load() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestValidateRejectsRateLimitWindowFromEnv(t *testing.T) {
	t.Setenv("EDI_RATE_LIMIT_WINDOW_SECONDS", "0")
	_, err := Load("")
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("Load() error = %v, want ErrConfiguration", err)
	}
}
