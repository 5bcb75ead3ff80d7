// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"edi-assistant-go/internal/apperrors"
	"edi-assistant-go/internal/followup"
	"edi-assistant-go/internal/generator"
	"edi-assistant-go/internal/model"
	"edi-assistant-go/internal/router"
	"edi-assistant-go/pkg/log"
)

// 问答路径，用于日志、指标与审计。
const (
	RouteValidation = "validation"
	RouteFallback   = "fallback"
	RouteGenerated  = "generated"
)

// Retriever 是问答流程依赖的检索能力。
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, minScore float64) ([]model.Passage, error)
}

// Generator 是问答流程依赖的生成能力。
type Generator interface {
	Answer(ctx context.Context, question string, passages []model.Passage) (string, error)
	IsNoResult(answer string) bool
}

// AskRequest 是一次提问。
type AskRequest struct {
	Question  string
	SessionID string
}

// AskResponse 是一次回答。Route 只在服务内部使用。
type AskResponse struct {
	Answer    string   `json:"answer"`
	Followups []string `json:"followups,omitempty"`
	Nudge     string   `json:"nudge,omitempty"`
	Route     string   `json:"-"`
}

// AskOptions 为检索参数。
type AskOptions struct {
	TopK     int
	MinScore float64
}

// AskService 定义了问答流程的接口。
type AskService interface {
	Ask(ctx context.Context, req AskRequest) (*AskResponse, error)
}

type askService struct {
	retriever Retriever
	generator Generator
	sessions  SessionService
	opts      AskOptions
}

// NewAskService 创建问答服务。sessions 可以为 nil，此时不记录会话。
func NewAskService(retriever Retriever, gen Generator, sessions SessionService, opts AskOptions) AskService {
	if opts.TopK <= 0 {
		opts.TopK = 10
	}
	return &askService{
		retriever: retriever,
		generator: gen,
		sessions:  sessions,
		opts:      opts,
	}
}

// Ask 按 "寒暄/越界 -> 检索 -> 分流 -> 生成 -> 兜底" 的顺序处理一次提问。
// 检索失败返回 ErrRetrieval，生成失败返回 ErrServiceUnavailable，其余情况都给出回答。
func (s *askService) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	q := strings.TrimSpace(req.Question)
	if q == "" {
		return &AskResponse{Answer: generator.FormatAnswer(router.PickFallback("")), Route: RouteValidation}, nil
	}

	// 1. 不需要检索的早退
	if o := router.Early(q); o.Answered() {
		log.Infof("[AskService] 步骤1: 命中 %s 阶段, 跳过检索", o.Stage)
		return s.finish(req, &AskResponse{Answer: o.Text, Route: o.Stage}), nil
	}

	// 2. 检索
	passages, err := s.retriever.Retrieve(ctx, q, s.opts.TopK, s.opts.MinScore)
	if err != nil {
		log.Errorf("[AskService] 步骤2: 检索失败: %v", err)
		if !errors.Is(err, apperrors.ErrRetrieval) {
			err = fmt.Errorf("%w: %w", apperrors.ErrRetrieval, err)
		}
		return nil, err
	}
	log.Infof("[AskService] 步骤2: 检索完成, 命中 %d 个分块", len(passages))

	// 3. 依赖上下文的分流
	o := router.WithContext(q, passages)
	if o.Answered() {
		log.Infof("[AskService] 步骤3: 命中 %s 阶段", o.Stage)
		return s.finish(req, &AskResponse{Answer: o.Text, Route: o.Stage}), nil
	}

	// 4. 没有足够相关的内容
	if len(passages) == 0 {
		log.Info("[AskService] 步骤4: 没有相关分块, 使用兜底回复")
		return s.finish(req, &AskResponse{Answer: router.PickFallback(q), Route: RouteFallback}), nil
	}

	// 5. 生成
	answer, err := s.generator.Answer(ctx, q, passages)
	if err != nil {
		log.Errorf("[AskService] 步骤5: 生成失败: %v", err)
		if !errors.Is(err, apperrors.ErrServiceUnavailable) {
			err = fmt.Errorf("%w: %w", apperrors.ErrServiceUnavailable, err)
		}
		return nil, err
	}
	if s.generator.IsNoResult(answer) {
		log.Info("[AskService] 步骤5: 模型未能从文档中回答, 使用兜底回复")
		return s.finish(req, &AskResponse{Answer: router.PickFallback(q), Route: RouteFallback}), nil
	}

	resp := &AskResponse{
		Answer:    answer,
		Followups: followup.Clean(followup.Generate(q, passages), q),
		Nudge:     followup.Nudge(q),
		Route:     RouteGenerated,
	}
	return s.finish(req, resp), nil
}

// finish 统一格式化回答，并在带有 session_id 时记录会话。
func (s *askService) finish(req AskRequest, resp *AskResponse) *AskResponse {
	resp.Answer = generator.FormatAnswer(resp.Answer)
	if s.sessions == nil || req.SessionID == "" {
		return resp
	}
	// 使用后台上下文，即使请求已结束也尽量保存；失败只记录日志
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.sessions.RecordTurn(ctx, req.SessionID, strings.TrimSpace(req.Question), resp.Answer); err != nil {
		log.Warnf("[AskService] 保存会话记录失败, session: %s, error: %v", req.SessionID, err)
	}
	return resp
}
