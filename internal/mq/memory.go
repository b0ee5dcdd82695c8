package mq

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const memorySubscriberBuffer = 64

var errMemoryClosed = errors.New("memory mq closed")

// MemoryBackend delivers messages to subscribers in the same process.
// Messages published while nobody subscribes to a channel are dropped.
type MemoryBackend struct {
	mu     sync.RWMutex
	subs   map[string]map[chan Message]struct{}
	closed bool
	done   chan struct{}
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		subs: make(map[string]map[chan Message]struct{}),
		done: make(chan struct{}),
	}
}

// Publish never waits on a subscriber: a message is dropped for any
// subscriber whose buffer is full.
func (m *MemoryBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("memory channel is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return "", errMemoryClosed
	}
	targets := make([]chan Message, 0, len(m.subs[channel]))
	for ch := range m.subs[channel] {
		targets = append(targets, ch)
	}
	m.mu.RUnlock()

	msg := Message{ID: uuid.NewString(), Data: data, Attributes: attrs}
	for _, ch := range targets {
		select {
		case ch <- msg:
		case <-m.done:
			return "", errMemoryClosed
		default:
		}
	}
	return msg.ID, nil
}

// Subscribe blocks until ctx is done or the backend is closed. A failed
// message is handed to the handler one more time.
func (m *MemoryBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("memory channel is required")
	}

	ch := make(chan Message, memorySubscriberBuffer)
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errMemoryClosed
	}
	if m.subs[channel] == nil {
		m.subs[channel] = make(map[chan Message]struct{})
	}
	m.subs[channel][ch] = struct{}{}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.subs[channel], ch)
		m.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return errMemoryClosed
		case msg := <-ch:
			if err := handler(ctx, msg); err != nil {
				_ = handler(ctx, msg)
			}
		}
	}
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}
