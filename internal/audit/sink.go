package audit

import (
	"context"
	"errors"

	"edi-assistant-go/internal/model"
	"edi-assistant-go/internal/repository"
	"edi-assistant-go/pkg/log"
)

// Sink 是审计事件的落地目标。
type Sink interface {
	Write(ctx context.Context, evt model.AskEvent) error
}

// SinkFunc 让普通函数满足 Sink，例如 kafka.ProduceAskEvent。
type SinkFunc func(ctx context.Context, evt model.AskEvent) error

func (f SinkFunc) Write(ctx context.Context, evt model.AskEvent) error {
	return f(ctx, evt)
}

// RepositorySink 直接写入 ask_logs 表，用于没有 Kafka 的部署。
type RepositorySink struct {
	repo repository.AskLogRepository
}

func NewRepositorySink(repo repository.AskLogRepository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

func (s *RepositorySink) Write(ctx context.Context, evt model.AskEvent) error {
	return s.repo.Create(ctx, model.NewAskLog(evt))
}

// LogSink 只把事件写入日志。
type LogSink struct{}

func (LogSink) Write(_ context.Context, evt model.AskEvent) error {
	log.Infow("ask event",
		"requestId", evt.RequestID,
		"origin", evt.Origin,
		"client", evt.ClientHash,
		"route", evt.Route,
		"status", evt.Status,
		"latencyMs", evt.LatencyMs,
	)
	return nil
}

// MultiSink 依次写入所有目标，汇总全部错误。
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, evt model.AskEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
