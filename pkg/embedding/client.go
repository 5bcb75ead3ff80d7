// Package embedding provides a client for interacting with embedding models.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"edi-assistant-go/internal/apperrors"
	"edi-assistant-go/internal/config"
	"edi-assistant-go/internal/metrics"
	"edi-assistant-go/pkg/log"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

// MaxBatchSize 是单次请求允许的最大输入条数。
const MaxBatchSize = 64

// Client defines the interface for an embedding client.
type Client interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
	// CreateEmbeddings 按输入顺序返回向量，任一批次失败则整体失败。
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions 返回向量维度；尚未确定时为 0。
	Dimensions() int
}

type openAICompatibleClient struct {
	cfg       config.EmbeddingConfig
	client    *openai.Client
	breaker   *gobreaker.CircuitBreaker
	batchSize int
	timeout   time.Duration
	dim       atomic.Int64
}

// NewClient creates a new embedding client based on the provider in the config.
func NewClient(cfg config.EmbeddingConfig) Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	c := &openAICompatibleClient{
		cfg:       cfg,
		client:    openai.NewClientWithConfig(clientCfg),
		breaker:   newBreaker("EmbeddingAPI"),
		batchSize: batchSize,
		timeout:   timeout,
	}
	c.dim.Store(int64(cfg.Dimensions))
	return c
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warnf("[EmbeddingClient] 熔断器 %s 状态变更: %s -> %s", name, from, to)
		},
	})
}

func (c *openAICompatibleClient) Dimensions() int {
	return int(c.dim.Load())
}

// CreateEmbedding calls the OpenAI-compatible API to get the vector for a given text.
func (c *openAICompatibleClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *openAICompatibleClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(len(texts), start+c.batchSize)
		vectors, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			metrics.ExternalFailures.WithLabelValues("embedding").Inc()
			return nil, fmt.Errorf("%w: 第 %d-%d 条向量化失败: %w", apperrors.ErrServiceUnavailable, start, end-1, err)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (c *openAICompatibleClient) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	log.Debugf("[EmbeddingClient] 开始调用 Embedding API, model: %s, batch: %d", c.cfg.Model, len(batch))
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.client.CreateEmbeddings(callCtx, openai.EmbeddingRequest{
			Model:      openai.EmbeddingModel(c.cfg.Model),
			Input:      batch,
			Dimensions: c.cfg.Dimensions,
		})
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			log.Warnf("[EmbeddingClient] 熔断器开启, 拒绝调用")
		} else {
			log.Errorf("[EmbeddingClient] 调用 Embedding API 失败, error: %v", err)
		}
		return nil, err
	}
	resp := result.(openai.EmbeddingResponse)

	if len(resp.Data) != len(batch) {
		return nil, fmt.Errorf("embedding api 返回 %d 条结果, 期望 %d 条", len(resp.Data), len(batch))
	}
	// 按 index 还原输入顺序
	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(data))
	for i, d := range data {
		if len(d.Embedding) == 0 {
			return nil, errors.New("received empty embedding from api")
		}
		v := make([]float32, len(d.Embedding))
		for k, x := range d.Embedding {
			v[k] = float32(x)
		}
		if err := c.checkDimension(len(v)); err != nil {
			return nil, err
		}
		Normalize(v)
		vectors[i] = v
	}
	return vectors, nil
}

// checkDimension 保证同一客户端返回的所有向量维度一致。
func (c *openAICompatibleClient) checkDimension(n int) error {
	if c.dim.CompareAndSwap(0, int64(n)) {
		log.Infof("[EmbeddingClient] 向量维度确定为 %d", n)
		return nil
	}
	if want := c.dim.Load(); int64(n) != want {
		return fmt.Errorf("向量维度不一致: 得到 %d, 期望 %d", n, want)
	}
	return nil
}

// Normalize 将向量原地归一化为单位长度；零向量保持不变。
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
