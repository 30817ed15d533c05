package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed int
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed++
	return nil
}

func TestNewAssignsIDAndUTC(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("HST", -10*3600))
	a := New(AtomObserved, "P", "o-1/a1", at, nil)
	b := New(AtomObserved, "P", "o-1/a1", at, nil)
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct ids, got %q and %q", a.ID, b.ID)
	}
	if a.OccurredAt.Location() != time.UTC || !a.OccurredAt.Equal(at) {
		t.Fatalf("expected UTC timestamp, got %v", a.OccurredAt)
	}
}

func TestMemoryPublisher(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPublisher()
	at := time.Now()
	if err := p.Publish(ctx, New(AtomObserved, "P", "a", at, nil), New(GroupStateChanged, "P", "g", at, nil)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(p.Events()) != 2 || len(p.OfType(GroupStateChanged)) != 1 {
		t.Fatalf("unexpected events %+v", p.Events())
	}
	_ = p.Close()
	if err := p.Publish(ctx, New(AtomObserved, "P", "a", at, nil)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestKafkaPublisherEncodesKeyedMessages(t *testing.T) {
	w := &recordingWriter{}
	p := newKafkaPublisher(DefaultTopic, w, nil)
	e := New(TimeOverAllocated, "GN-2024A-Q-1", "", time.Now(), map[string]any{"over": "1h0m0s"})
	if err := p.Publish(context.Background(), e); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "GN-2024A-Q-1" {
		t.Fatalf("unexpected key %q", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != string(TimeOverAllocated) {
		t.Fatalf("unexpected headers %+v", msg.Headers)
	}
	var decoded Event
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != e.ID || decoded.Type != TimeOverAllocated || decoded.Data["over"] != "1h0m0s" {
		t.Fatalf("unexpected payload %+v", decoded)
	}
}

func TestKafkaPublisherErrorsAndClose(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := newKafkaPublisher(DefaultTopic, w, nil)
	if err := p.Publish(context.Background()); err != nil {
		t.Fatalf("empty publish should be a no-op: %v", err)
	}
	if err := p.Publish(context.Background(), New(AtomObserved, "P", "a", time.Now(), nil)); err == nil {
		t.Fatalf("expected writer error")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	_ = p.Close()
	if w.closed != 1 {
		t.Fatalf("expected writer closed once, got %d", w.closed)
	}
	if err := p.Publish(context.Background(), New(AtomObserved, "P", "a", time.Now(), nil)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestNewKafkaPublisherConfig(t *testing.T) {
	if _, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{" ", ""}}, nil); err == nil {
		t.Fatalf("expected missing brokers to fail")
	}
	p, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if p.Topic() != DefaultTopic {
		t.Fatalf("expected default topic, got %s", p.Topic())
	}
	_ = p.Close()
}
