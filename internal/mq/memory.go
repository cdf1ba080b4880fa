package mq

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
)

const memoryBuffer = 64

// Memory is an in-process broker. Every subscriber of a channel receives every
// message published after it subscribed. Failed messages are not redelivered,
// and a subscriber whose buffer is full misses the message so Publish never blocks.
type Memory struct {
	mu     sync.Mutex
	subs   map[string][]chan Message
	closed bool
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[string][]chan Message)}
}

func (m *Memory) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", errors.New("memory broker closed")
	}

	msg := Message{ID: uuid.NewString(), Data: data, Attributes: attrs}
	for _, ch := range m.subs[channel] {
		select {
		case ch <- msg:
		default:
			log.Printf("memory broker: subscriber of %s is full, dropping message %s", channel, msg.ID)
		}
	}
	return msg.ID, nil
}

func (m *Memory) Subscribe(ctx context.Context, channel string, handler Handler) error {
	ch := make(chan Message, memoryBuffer)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New("memory broker closed")
	}
	m.subs[channel] = append(m.subs[channel], ch)
	m.mu.Unlock()

	defer m.unsubscribe(channel, ch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			_ = handler(ctx, msg)
		}
	}
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	for _, chans := range m.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	m.subs = nil
	return nil
}

func (m *Memory) unsubscribe(channel string, ch chan Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chans := m.subs[channel]
	for i, c := range chans {
		if c == ch {
			m.subs[channel] = append(chans[:i], chans[i+1:]...)
			return
		}
	}
}
