package vectorindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"edi-assistant-go/internal/apperrors"
	"edi-assistant-go/internal/model"
)

func testChunks(n int) []model.Chunk {
	chunks := make([]model.Chunk, n)
	for i := range chunks {
		chunks[i] = model.Chunk{Text: fmt.Sprintf("chunk text %d", i), Source: "edi.txt", Sequence: i + 1}
	}
	return chunks
}

func savePair(t *testing.T, dir string, n int) (string, string) {
	t.Helper()
	idx, err := Build(MetricIP, randomVectors(n, 8, 3))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	indexPath := filepath.Join(dir, "faiss.index")
	docsPath := filepath.Join(dir, "docs.json")
	if _, err := SavePair(indexPath, docsPath, idx, testChunks(n)); err != nil {
		t.Fatalf("SavePair() error = %v", err)
	}
	return indexPath, docsPath
}

func TestSaveLoadRoundTrip(t *testing.T) {
	vectors := randomVectors(12, 8, 11)
	idx, err := Build(MetricL2, vectors)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "faiss.index")
	docsPath := filepath.Join(dir, "docs.json")
	runID, err := SavePair(indexPath, docsPath, idx, testChunks(12))
	if err != nil {
		t.Fatalf("SavePair() error = %v", err)
	}

	store, err := LoadPair(indexPath, docsPath)
	if err != nil {
		t.Fatalf("LoadPair() error = %v", err)
	}
	if store.RunID != runID {
		t.Errorf("RunID = %s, want %s", store.RunID, runID)
	}
	if store.Index.Len() != 12 || store.Index.Dim() != 8 || store.Index.Metric() != MetricL2 {
		t.Errorf("loaded index = len %d dim %d metric %s", store.Index.Len(), store.Index.Dim(), store.Index.Metric())
	}
	for i, v := range vectors {
		row := store.Index.Row(i)
		for j := range v {
			if row[j] != v[j] {
				t.Fatalf("row %d differs after reload", i)
			}
		}
	}
	if store.Chunks[3].Text != "chunk text 3" || store.Chunks[3].Sequence != 4 {
		t.Errorf("chunk 3 = %+v", store.Chunks[3])
	}
}

func TestLoadPairMissingFiles(t *testing.T) {
	dir := t.TempDir()
	indexPath, docsPath := savePair(t, dir, 3)

	if _, err := LoadPair(filepath.Join(dir, "nope.index"), docsPath); !errors.Is(err, apperrors.ErrConfiguration) {
		t.Errorf("missing index: error = %v, want ErrConfiguration", err)
	}
	if _, err := LoadPair(indexPath, filepath.Join(dir, "nope.json")); !errors.Is(err, apperrors.ErrConfiguration) {
		t.Errorf("missing docs: error = %v, want ErrConfiguration", err)
	}
}

func TestLoadPairMismatchedRuns(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	indexA, _ := savePair(t, a, 4)
	_, docsB := savePair(t, b, 4)

	if _, err := LoadPair(indexA, docsB); !errors.Is(err, apperrors.ErrIndexCorrupt) {
		t.Errorf("LoadPair() error = %v, want ErrIndexCorrupt", err)
	}
}

func TestLoadPairCountMismatch(t *testing.T) {
	dir := t.TempDir()
	indexPath, docsPath := savePair(t, dir, 5)

	raw, err := os.ReadFile(docsPath)
	if err != nil {
		t.Fatal(err)
	}
	var payload payloadFile
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatal(err)
	}
	payload.Chunks = payload.Chunks[:4]
	raw, _ = json.Marshal(payload)
	if err := os.WriteFile(docsPath, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadPair(indexPath, docsPath); !errors.Is(err, apperrors.ErrIndexCorrupt) {
		t.Errorf("LoadPair() error = %v, want ErrIndexCorrupt", err)
	}
}

func TestLoadPairEmptyChunkText(t *testing.T) {
	dir := t.TempDir()
	indexPath, docsPath := savePair(t, dir, 2)

	raw, _ := os.ReadFile(docsPath)
	var payload payloadFile
	_ = json.Unmarshal(raw, &payload)
	payload.Chunks[1].Text = "   "
	raw, _ = json.Marshal(payload)
	_ = os.WriteFile(docsPath, raw, 0o644)

	if _, err := LoadPair(indexPath, docsPath); !errors.Is(err, apperrors.ErrIndexCorrupt) {
		t.Errorf("LoadPair() error = %v, want ErrIndexCorrupt", err)
	}
}

func TestLoadPairTruncatedIndex(t *testing.T) {
	dir := t.TempDir()
	indexPath, docsPath := savePair(t, dir, 6)

	raw, err := os.ReadFile(indexPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(indexPath, raw[:len(raw)-10], 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPair(indexPath, docsPath); !errors.Is(err, apperrors.ErrIndexCorrupt) {
		t.Errorf("truncated: error = %v, want ErrIndexCorrupt", err)
	}

	if err := os.WriteFile(indexPath, []byte("not an index at all, definitely"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPair(indexPath, docsPath); !errors.Is(err, apperrors.ErrIndexCorrupt) {
		t.Errorf("bad magic: error = %v, want ErrIndexCorrupt", err)
	}
}

func TestSavePairCountMismatch(t *testing.T) {
	idx, err := Build(MetricIP, randomVectors(3, 4, 1))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	_, err = SavePair(filepath.Join(dir, "i"), filepath.Join(dir, "d"), idx, testChunks(2))
	if !errors.Is(err, apperrors.ErrIndexCorrupt) {
		t.Errorf("SavePair() error = %v, want ErrIndexCorrupt", err)
	}
}
