// Package service provides business logic for the gateway.
package service

import (
	"sync"
	"time"

	"github.com/inkwell-ai/ocr-gateway/internal/model"
	"github.com/inkwell-ai/ocr-gateway/pkg/metrics"
)

// ConversationStore maps conversation ids to ordered message history. It is
// safe for concurrent use; appends to the same id are serialized, but the
// relative order of two racing appenders is whichever reaches the lock first.
type ConversationStore interface {
	// Append creates the conversation if absent, then appends the message.
	Append(id string, msg model.Message)

	// History returns a copy of the conversation's messages in append order.
	// An unknown id yields an empty slice, never an error.
	History(id string) []model.Message

	// Clear removes the conversation entirely. Clearing an absent id is a
	// no-op.
	Clear(id string)
}

type conversation struct {
	messages   []model.Message
	lastActive time.Time
}

// MemoryStore is an in-memory ConversationStore. History has no durability
// guarantee and survives only for the life of the process. An optional idle
// TTL bounds growth; zero disables eviction.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*conversation

	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates a store. When ttl is positive a janitor goroutine
// evicts conversations idle for longer than ttl; call Close to stop it.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		conversations: make(map[string]*conversation),
		ttl:           ttl,
		stop:          make(chan struct{}),
	}
	if ttl > 0 {
		go s.janitor()
	}
	return s
}

// Append creates the conversation if absent, then appends the message.
func (s *MemoryStore) Append(id string, msg model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		conv = &conversation{}
		s.conversations[id] = conv
		metrics.ConversationsActive.Inc()
	}
	conv.messages = append(conv.messages, msg)
	conv.lastActive = time.Now()
	metrics.MessagesTotal.WithLabelValues(string(msg.Role)).Inc()
}

// History returns a copy of the conversation's messages in append order.
func (s *MemoryStore) History(id string) []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return []model.Message{}
	}
	out := make([]model.Message, len(conv.messages))
	copy(out, conv.messages)
	return out
}

// Clear removes the conversation entirely.
func (s *MemoryStore) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; ok {
		delete(s.conversations, id)
		metrics.ConversationsActive.Dec()
	}
}

// Len returns the number of conversations currently held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// Close stops the janitor goroutine, if running.
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *MemoryStore) janitor() {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictIdle(time.Now().Add(-s.ttl))
		}
	}
}

func (s *MemoryStore) evictIdle(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, conv := range s.conversations {
		if conv.lastActive.Before(cutoff) {
			delete(s.conversations, id)
			metrics.ConversationsActive.Dec()
		}
	}
}
