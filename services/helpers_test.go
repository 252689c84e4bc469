package services

import (
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// memStore is an in-memory DocumentStore that counts writes.
type memStore struct {
	mu    sync.Mutex
	docs  map[string][]byte
	saves map[string]int
	fail  bool
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string][]byte), saves: make(map[string]int)}
}

func (m *memStore) Load(name string, v any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[name]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, v)
}

func (m *memStore) Save(name string, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves[name]++
	if m.fail {
		return errors.New("disk full")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.docs[name] = data
	return nil
}

func (m *memStore) saveCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[name]
}

// recorder is an EventPublisher that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	op   string
	data any
}

func (r *recorder) Publish(op string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{op, data})
}

func (r *recorder) ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.op
	}
	return out
}

// fakeClock advances only when told to.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
