package audit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"edi-assistant-go/internal/model"
)

func TestHashIdentity(t *testing.T) {
	a := HashIdentity("salt", "203.0.113.7")
	if len(a) != 64 {
		t.Fatalf("len = %d, want 64 hex chars", len(a))
	}
	if strings.Contains(a, "203.0.113.7") {
		t.Fatal("hash must not contain the raw identity")
	}
	if a != HashIdentity("salt", "203.0.113.7") {
		t.Error("hash should be deterministic")
	}
	if a == HashIdentity("other", "203.0.113.7") {
		t.Error("different salts should give different hashes")
	}
	if a == HashIdentity("salt", "203.0.113.8") {
		t.Error("different identities should give different hashes")
	}
	long := strings.Repeat("s", 100)
	if got := HashIdentity(long, "x"); len(got) != 64 {
		t.Errorf("long salt hash len = %d", len(got))
	}
}

type collectSink struct {
	mu     sync.Mutex
	events []model.AskEvent
	block  chan struct{}
	err    error
}

func (c *collectSink) Write(_ context.Context, evt model.AskEvent) error {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return c.err
}

func (c *collectSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestResolveSalt(t *testing.T) {
	salt, generated, err := ResolveSalt("configured")
	if err != nil || generated || salt != "configured" {
		t.Errorf("ResolveSalt(configured) = %q, %v, %v", salt, generated, err)
	}

	a, generated, err := ResolveSalt("")
	if err != nil || !generated {
		t.Fatalf("ResolveSalt(\"\") generated = %v, err = %v", generated, err)
	}
	b, _, _ := ResolveSalt("")
	if a == "" || a == b {
		t.Errorf("empty salt must be replaced by a fresh random one: %q / %q", a, b)
	}
	if HashIdentity(a, "203.0.113.7") == HashIdentity("", "203.0.113.7") {
		t.Error("generated salt must key the hash")
	}
}

func TestRecorder_WritesInOrder(t *testing.T) {
	sink := &collectSink{}
	r := NewRecorder(sink, 8)
	for _, id := range []string{"a", "b", "c"} {
		if !r.Record(model.AskEvent{RequestID: id}) {
			t.Fatalf("Record(%s) was dropped", id)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if sink.count() != 3 {
		t.Fatalf("written = %d, want 3", sink.count())
	}
	for i, id := range []string{"a", "b", "c"} {
		if sink.events[i].RequestID != id {
			t.Errorf("events[%d] = %s, want %s", i, sink.events[i].RequestID, id)
		}
	}
	if r.Record(model.AskEvent{RequestID: "late"}) {
		t.Error("Record after Close should report false")
	}
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	sink := &collectSink{block: make(chan struct{})}
	r := NewRecorder(sink, 1)

	// 第一个事件被后台协程取走并阻塞在 sink 上，第二个占满缓冲区
	r.Record(model.AskEvent{RequestID: "1"})
	deadline := time.Now().Add(time.Second)
	for len(r.events) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !r.Record(model.AskEvent{RequestID: "2"}) {
		t.Fatal("second event should fit in the buffer")
	}

	start := time.Now()
	if r.Record(model.AskEvent{RequestID: "3"}) {
		t.Error("third event should be dropped")
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("Record must not block when the buffer is full")
	}

	close(sink.block)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if sink.count() != 2 {
		t.Errorf("written = %d, want 2", sink.count())
	}
}

func TestRecorder_SinkErrorsAreSwallowed(t *testing.T) {
	sink := &collectSink{err: errors.New("broker down")}
	r := NewRecorder(sink, 4)
	r.Record(model.AskEvent{RequestID: "x"})
	r.Record(model.AskEvent{RequestID: "y"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if sink.count() != 2 {
		t.Errorf("attempted = %d, want 2", sink.count())
	}
}

type fakeAskLogRepo struct{ logs []*model.AskLog }

func (f *fakeAskLogRepo) Create(_ context.Context, entry *model.AskLog) error {
	f.logs = append(f.logs, entry)
	return nil
}

func TestSinks(t *testing.T) {
	repo := &fakeAskLogRepo{}
	var viaFunc []string
	fn := SinkFunc(func(_ context.Context, evt model.AskEvent) error {
		viaFunc = append(viaFunc, evt.RequestID)
		return errors.New("kafka unavailable")
	})
	sink := MultiSink{NewRepositorySink(repo), fn, LogSink{}}

	evt := model.AskEvent{RequestID: "r1", Route: "generated", Status: 200, Timestamp: time.Unix(100, 0)}
	err := sink.Write(context.Background(), evt)
	if err == nil || !strings.Contains(err.Error(), "kafka unavailable") {
		t.Errorf("MultiSink error = %v", err)
	}
	if len(repo.logs) != 1 || repo.logs[0].RequestID != "r1" || !repo.logs[0].AskedAt.Equal(evt.Timestamp) {
		t.Errorf("repository sink wrote %+v", repo.logs)
	}
	if len(viaFunc) != 1 {
		t.Errorf("func sink calls = %d", len(viaFunc))
	}
}
