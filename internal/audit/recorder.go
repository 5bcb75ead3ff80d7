package audit

import (
	"context"
	"sync"
	"time"

	"edi-assistant-go/internal/metrics"
	"edi-assistant-go/internal/model"
	"edi-assistant-go/pkg/log"
)

const (
	defaultBuffer = 256
	writeTimeout  = 5 * time.Second
)

// Recorder 异步写入审计事件。Record 从不阻塞请求：缓冲区满时直接丢弃事件。
type Recorder struct {
	sink   Sink
	events chan model.AskEvent
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewRecorder 创建 Recorder 并启动唯一的后台写入协程。
func NewRecorder(sink Sink, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	r := &Recorder{
		sink:   sink,
		events: make(chan model.AskEvent, buffer),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Record 投递一个事件，返回是否成功入队。
func (r *Recorder) Record(evt model.AskEvent) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}
	select {
	case r.events <- evt:
		return true
	default:
		metrics.AuditEvents.WithLabelValues("dropped").Inc()
		log.Warnf("[Audit] 缓冲区已满, 丢弃事件 request_id=%s", evt.RequestID)
		return false
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for evt := range r.events {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := r.sink.Write(ctx, evt)
		cancel()
		if err != nil {
			metrics.AuditEvents.WithLabelValues("failed").Inc()
			log.Warnf("[Audit] 写入审计事件失败, request_id=%s, error: %v", evt.RequestID, err)
			continue
		}
		metrics.AuditEvents.WithLabelValues("written").Inc()
	}
}

// Close 停止接收新事件，并等待已入队的事件写完或 ctx 结束。
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
