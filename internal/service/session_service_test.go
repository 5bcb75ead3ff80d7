package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"edi-assistant-go/internal/apperrors"
	"edi-assistant-go/internal/model"
)

type memorySessionRepo struct {
	data map[string][]model.ChatMessage
}

func (m *memorySessionRepo) GetHistory(_ context.Context, id string) ([]model.ChatMessage, error) {
	return m.data[id], nil
}

func (m *memorySessionRepo) AppendMessages(_ context.Context, id string, msgs ...model.ChatMessage) error {
	m.data[id] = append(m.data[id], msgs...)
	return nil
}

func TestSessionService_RecordAndHistory(t *testing.T) {
	repo := &memorySessionRepo{data: map[string][]model.ChatMessage{}}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc := &sessionService{repo: repo, now: func() time.Time { return fixed }}

	if err := svc.RecordTurn(context.Background(), "abc", "What are the fees?", "See the fees page."); err != nil {
		t.Fatalf("RecordTurn() error = %v", err)
	}
	history, err := svc.History(context.Background(), "abc")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("len(history) = %d, want 2", len(history))
	}
	if history[0].Role != "user" || history[1].Role != "assistant" {
		t.Errorf("roles = %s, %s", history[0].Role, history[1].Role)
	}
	if !history[1].Timestamp.Equal(fixed) {
		t.Errorf("timestamp = %v, want %v", history[1].Timestamp, fixed)
	}
}

func TestSessionService_InvalidID(t *testing.T) {
	svc := NewSessionService(&memorySessionRepo{data: map[string][]model.ChatMessage{}})
	for _, id := range []string{"", "  ", strings.Repeat("x", maxSessionIDLen+1)} {
		if _, err := svc.History(context.Background(), id); !errors.Is(err, apperrors.ErrValidation) {
			t.Errorf("History(%q) err = %v, want ErrValidation", id, err)
		}
	}
}
