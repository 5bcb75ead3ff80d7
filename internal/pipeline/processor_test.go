package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"edi-assistant-go/internal/apperrors"
	"edi-assistant-go/internal/vectorindex"
)

// hashEmbedder 为每段文本生成确定的单位向量。
type hashEmbedder struct {
	calls   int
	batches []int
	failAt  int
}

func (h *hashEmbedder) Dimensions() int { return 4 }

func (h *hashEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	v, err := h.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (h *hashEmbedder) CreateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	h.calls++
	h.batches = append(h.batches, len(texts))
	if h.failAt > 0 && h.calls == h.failAt {
		return nil, apperrors.ErrServiceUnavailable
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 4)
		v[len(t)%4] = 1
		out[i] = v
	}
	return out, nil
}

type fakeExtractor struct{ names []string }

func (f *fakeExtractor) ExtractText(_ context.Context, r io.Reader, name string) (string, error) {
	f.names = append(f.names, name)
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return "extracted " + string(b), nil
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func newOptions(dir string) Options {
	out := filepath.Join(dir, "out")
	_ = os.MkdirAll(out, 0o755)
	return Options{
		DataDir:      filepath.Join(dir, "data"),
		ChunkSize:    10,
		ChunkOverlap: 2,
		BatchSize:    2,
		IndexPath:    filepath.Join(out, "faiss.index"),
		DocsPath:     filepath.Join(out, "docs.json"),
		Metric:       vectorindex.MetricIP,
	}
}

func TestRun_BuildsPairedArtifacts(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, filepath.Join(dir, "data"), map[string]string{
		"b.txt":        "0123456789abcdef",
		"a.md":         "short",
		"sub/c.txt":    "nested file",
		"ignored.json": "{}",
		"brochure.pdf": "binary",
	})
	opts := newOptions(dir)
	emb := &hashEmbedder{}
	var published []string
	pub := func(_ context.Context, indexPath, docsPath string) error {
		published = append(published, indexPath, docsPath)
		return nil
	}

	summary, err := NewProcessor(emb, nil, pub, opts).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// a.md: 1, b.txt: 2, sub/c.txt: 2
	if summary.Sources != 3 || summary.Skipped != 1 || summary.Chunks != 5 || summary.Dimension != 4 {
		t.Errorf("summary = %+v", summary)
	}
	if !summary.Published || len(published) != 2 {
		t.Errorf("published = %v", published)
	}
	if want := []int{2, 2, 1}; len(emb.batches) != 3 || emb.batches[0] != want[0] || emb.batches[2] != want[2] {
		t.Errorf("batches = %v, want %v", emb.batches, want)
	}

	store, err := vectorindex.LoadPair(opts.IndexPath, opts.DocsPath)
	if err != nil {
		t.Fatalf("LoadPair() error = %v", err)
	}
	if store.RunID != summary.RunID || len(store.Chunks) != 5 {
		t.Errorf("store run = %s, chunks = %d", store.RunID, len(store.Chunks))
	}
	first := store.Chunks[0]
	if first.Source != "a.md" || first.Sequence != 1 || first.Text != "short" {
		t.Errorf("first chunk = %+v", first)
	}
	if last := store.Chunks[4]; last.Source != "sub/c.txt" || last.Sequence != 2 {
		t.Errorf("last chunk = %+v", last)
	}
}

func TestRun_ExtractsBinaryDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, filepath.Join(dir, "data"), map[string]string{"brochure.pdf": "pdf"})
	ext := &fakeExtractor{}

	summary, err := NewProcessor(&hashEmbedder{}, ext, nil, newOptions(dir)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(ext.names) != 1 || ext.names[0] != "brochure.pdf" {
		t.Errorf("extracted = %v", ext.names)
	}
	if summary.Published {
		t.Error("nothing should be published without a publisher")
	}
}

func TestRun_MaxChunks(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, filepath.Join(dir, "data"), map[string]string{
		"a.txt": strings.Repeat("x", 40),
		"b.txt": strings.Repeat("y", 40),
	})
	opts := newOptions(dir)
	opts.MaxChunks = 3

	summary, err := NewProcessor(&hashEmbedder{}, nil, nil, opts).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Chunks != 3 {
		t.Errorf("chunks = %d, want 3", summary.Chunks)
	}
}

func TestRun_Failures(t *testing.T) {
	t.Run("missing data dir", func(t *testing.T) {
		opts := newOptions(t.TempDir())
		_, err := NewProcessor(&hashEmbedder{}, nil, nil, opts).Run(context.Background())
		if !errors.Is(err, apperrors.ErrConfiguration) {
			t.Errorf("err = %v, want ErrConfiguration", err)
		}
	})

	t.Run("no usable sources", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, filepath.Join(dir, "data"), map[string]string{"notes.csv": "a,b"})
		_, err := NewProcessor(&hashEmbedder{}, nil, nil, newOptions(dir)).Run(context.Background())
		if !errors.Is(err, apperrors.ErrConfiguration) {
			t.Errorf("err = %v, want ErrConfiguration", err)
		}
	})

	t.Run("blank sources produce no chunks", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, filepath.Join(dir, "data"), map[string]string{"a.txt": " \r\n\t "})
		_, err := NewProcessor(&hashEmbedder{}, nil, nil, newOptions(dir)).Run(context.Background())
		if err == nil {
			t.Error("expected error when no chunks are produced")
		}
	})

	t.Run("embedding failure writes nothing", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, filepath.Join(dir, "data"), map[string]string{"a.txt": strings.Repeat("z", 50)})
		opts := newOptions(dir)
		_, err := NewProcessor(&hashEmbedder{failAt: 2}, nil, nil, opts).Run(context.Background())
		if !errors.Is(err, apperrors.ErrServiceUnavailable) {
			t.Errorf("err = %v, want ErrServiceUnavailable", err)
		}
		if _, statErr := os.Stat(opts.IndexPath); !os.IsNotExist(statErr) {
			t.Error("index file should not be written after a failed run")
		}
	})

	t.Run("invalid chunk config", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, filepath.Join(dir, "data"), map[string]string{"a.txt": "text"})
		opts := newOptions(dir)
		opts.ChunkOverlap = opts.ChunkSize
		_, err := NewProcessor(&hashEmbedder{}, nil, nil, opts).Run(context.Background())
		if !errors.Is(err, apperrors.ErrConfiguration) {
			t.Errorf("err = %v, want ErrConfiguration", err)
		}
	})
}
