package service

import (
	"context"
	"strings"
	"time"

	"edi-assistant-go/internal/apperrors"
	"edi-assistant-go/internal/model"
	"edi-assistant-go/internal/repository"
)

// maxSessionIDLen 限制客户端传入的会话 ID 长度。
const maxSessionIDLen = 128

// SessionService 定义了会话记录业务逻辑的接口。
type SessionService interface {
	History(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
	RecordTurn(ctx context.Context, sessionID, question, answer string) error
}

type sessionService struct {
	repo repository.SessionRepository
	now  func() time.Time
}

// NewSessionService 创建一个新的 SessionService。
func NewSessionService(repo repository.SessionRepository) SessionService {
	return &sessionService{repo: repo, now: time.Now}
}

// History 获取会话的完整消息历史。
func (s *sessionService) History(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}
	return s.repo.GetHistory(ctx, sessionID)
}

// RecordTurn 将一问一答追加到会话历史中。
func (s *sessionService) RecordTurn(ctx context.Context, sessionID, question, answer string) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}
	now := s.now()
	return s.repo.AppendMessages(ctx, sessionID,
		model.ChatMessage{Role: "user", Content: question, Timestamp: now},
		model.ChatMessage{Role: "assistant", Content: answer, Timestamp: now},
	)
}

func validateSessionID(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" || len(sessionID) > maxSessionIDLen {
		return apperrors.ErrValidation
	}
	return nil
}
