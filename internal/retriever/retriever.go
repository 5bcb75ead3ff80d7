// Package retriever 将问题向量化后在成对索引中检索相关分块。
package retriever

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"edi-assistant-go/internal/apperrors"
	"edi-assistant-go/internal/model"
	"edi-assistant-go/internal/vectorindex"
	"edi-assistant-go/pkg/embedding"
	"edi-assistant-go/pkg/log"
)

// DefaultMaxQueryChars 是送去向量化的问题的最大字符数。
const DefaultMaxQueryChars = 4000

// Loader 负责加载索引与载荷，只会被调用一次。
type Loader func() (*vectorindex.Store, error)

// Options 控制检索行为。
type Options struct {
	MaxQueryChars int
}

// Retriever 在首次使用时加载资源，之后所有请求共享同一个只读 Store。
type Retriever struct {
	load     func() (*vectorindex.Store, error)
	embedder embedding.Client
	opts     Options
}

// New 创建检索器。加载失败的结果会被缓存，之后每次调用都返回同一个错误。
func New(loader Loader, embedder embedding.Client, opts Options) *Retriever {
	if opts.MaxQueryChars <= 0 {
		opts.MaxQueryChars = DefaultMaxQueryChars
	}
	return &Retriever{
		load:     sync.OnceValues(loader),
		embedder: embedder,
		opts:     opts,
	}
}

// FileLoader 返回从本地成对文件加载的 Loader。
func FileLoader(indexPath, docsPath string) Loader {
	return func() (*vectorindex.Store, error) {
		return vectorindex.LoadPair(indexPath, docsPath)
	}
}

// Warmup 立即加载资源，用于启动阶段提前暴露配置或索引错误。
func (r *Retriever) Warmup() error {
	_, err := r.load()
	return err
}

// Retrieve 返回按分数从高到低排序、且不低于 minScore 的分块。
// 没有相关内容时返回空切片而不是错误。
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, minScore float64) ([]model.Passage, error) {
	store, err := r.load()
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []model.Passage{}, nil
	}

	query = truncateRunes(query, r.opts.MaxQueryChars)
	vec, err := r.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: 问题向量化失败: %w", apperrors.ErrRetrieval, err)
	}
	embedding.Normalize(vec)
	if len(vec) != store.Index.Dim() {
		return nil, fmt.Errorf("%w: 问题向量维度 %d 与索引维度 %d 不一致", apperrors.ErrRetrieval, len(vec), store.Index.Dim())
	}

	hits := store.Index.Search(vec, topK)
	passages := make([]model.Passage, 0, len(hits))
	for _, h := range hits {
		if h.Row < 0 || h.Row >= len(store.Chunks) {
			continue
		}
		score := store.Index.Similarity(h)
		if score < minScore {
			continue
		}
		c := store.Chunks[h.Row]
		passages = append(passages, model.Passage{
			Text:     c.Text,
			Score:    score,
			Source:   c.Source,
			Sequence: c.Sequence,
		})
	}
	sort.SliceStable(passages, func(i, j int) bool { return passages[i].Score > passages[j].Score })

	log.Debugf("[Retriever] 检索完成, 命中 %d 条, 过滤后 %d 条", len(hits), len(passages))
	return passages, nil
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
