// Package llm provides a client for interacting with Large Language Models.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"edi-assistant-go/internal/apperrors"
	"edi-assistant-go/internal/config"
	"edi-assistant-go/internal/metrics"
	"edi-assistant-go/pkg/log"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

// Client defines the interface for an LLM client.
type Client interface {
	// Complete 以 system + user 两条消息调用聊天接口，返回完整回答文本。
	Complete(ctx context.Context, systemPrompt, userPrompt string, gen *GenerationParams) (string, error)
	// CompleteMessages 以 role-based 消息与可选生成参数调用聊天接口。
	CompleteMessages(ctx context.Context, messages []Message, gen *GenerationParams) (string, error)
}

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams 控制生成行为
type GenerationParams struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

type openAIChatClient struct {
	cfg     config.LLMConfig
	client  *openai.Client
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

// NewClient creates a new LLM client based on the provider in the config.
func NewClient(cfg config.LLMConfig) Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &openAIChatClient{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "ChatAPI",
			MaxRequests: 1,
			Interval:    30 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				log.Warnf("[LLMClient] 熔断器 %s 状态变更: %s -> %s", name, from, to)
			},
		}),
		timeout: timeout,
	}
}

func (c *openAIChatClient) Complete(ctx context.Context, systemPrompt, userPrompt string, gen *GenerationParams) (string, error) {
	return c.CompleteMessages(ctx, []Message{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: userPrompt},
	}, gen)
}

func (c *openAIChatClient) CompleteMessages(ctx context.Context, messages []Message, gen *GenerationParams) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.cfg.Model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	c.applyGeneration(&req, gen)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.client.CreateChatCompletion(callCtx, req)
	})
	if err != nil {
		metrics.ExternalFailures.WithLabelValues("llm").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			log.Warnf("[LLMClient] 熔断器开启, 拒绝调用")
		} else {
			log.Errorf("[LLMClient] 调用 Chat API 失败, error: %v", err)
		}
		return "", fmt.Errorf("%w: chat completion 失败: %w", apperrors.ErrServiceUnavailable, err)
	}
	resp := result.(openai.ChatCompletionResponse)
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// applyGeneration 从传参或配置注入生成参数（传参优先生效）。
func (c *openAIChatClient) applyGeneration(req *openai.ChatCompletionRequest, gen *GenerationParams) {
	if gen != nil {
		if gen.Temperature != nil {
			req.Temperature = wireTemperature(*gen.Temperature)
		}
		if gen.TopP != nil {
			req.TopP = float32(*gen.TopP)
		}
		if gen.MaxTokens != nil {
			req.MaxTokens = *gen.MaxTokens
		}
		return
	}
	// 从全局配置注入（若非零值）
	if c.cfg.Generation.Temperature != 0 {
		req.Temperature = float32(c.cfg.Generation.Temperature)
	}
	if c.cfg.Generation.TopP != 0 {
		req.TopP = float32(c.cfg.Generation.TopP)
	}
	if c.cfg.Generation.MaxTokens != 0 {
		req.MaxTokens = c.cfg.Generation.MaxTokens
	}
}

// wireTemperature 转换为请求中的温度。go-openai 以 omitempty 序列化该字段，
// 0 会被省略而退回服务端默认值，因此用最小正数表示确定性输出。
func wireTemperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}
