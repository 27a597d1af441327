// Package events holds the sinks protocol events are emitted to.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/trebuchet-org/conclave/internal/domain"
	"github.com/trebuchet-org/conclave/internal/usecase"
)

const EventsFile = "events.jsonl"

// Record is one line of the event log
type Record struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Time    time.Time       `json:"time"`
	Payload json.RawMessage `json:"payload"`
}

// JSONLSink appends events to a JSON lines file in the data directory
type JSONLSink struct {
	path string
	mu   sync.Mutex
	log  *slog.Logger
	now  func() time.Time
}

var _ usecase.EventSink = (*JSONLSink)(nil)

// NewJSONLSink creates a sink writing to dataDir/events.jsonl
func NewJSONLSink(dataDir string, log *slog.Logger) (*JSONLSink, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &JSONLSink{
		path: filepath.Join(dataDir, EventsFile),
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// Emit implements usecase.EventSink
func (s *JSONLSink) Emit(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", event.EventName(), err)
	}
	line, err := json.Marshal(Record{
		ID:      uuid.New().String(),
		Type:    event.EventName(),
		Time:    s.now(),
		Payload: payload,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	s.log.Debug("event", "type", event.EventName(), "detail", event.String())
	return nil
}

// ReadAll returns every record in the event log, oldest first
func (s *JSONLSink) ReadAll() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ReadFile(s.path)
}

// ReadFile parses a JSON lines event log
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var records []Record
	dec := json.NewDecoder(f)
	for dec.More() {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return records, fmt.Errorf("corrupt event log %s: %w", path, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Bus fans events out to in-process subscribers
type Bus struct {
	mu   sync.RWMutex
	subs []func(domain.Event)
}

var _ usecase.EventSink = (*Bus)(nil)

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn for every subsequent event
func (b *Bus) Subscribe(fn func(domain.Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Emit implements usecase.EventSink
func (b *Bus) Emit(ctx context.Context, event domain.Event) error {
	b.mu.RLock()
	subs := append([]func(domain.Event){}, b.subs...)
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(event)
	}
	return nil
}

// Multi emits to every sink in order, stopping at the first error
type Multi []usecase.EventSink

// Emit implements usecase.EventSink
func (m Multi) Emit(ctx context.Context, event domain.Event) error {
	for _, sink := range m {
		if err := sink.Emit(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Recorder keeps every event in memory
type Recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

// Emit implements usecase.EventSink
func (r *Recorder) Emit(ctx context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of what has been recorded
func (r *Recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event{}, r.events...)
}

// Names returns the recorded event names in order
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, e := range r.events {
		names[i] = e.EventName()
	}
	return names
}
