// Package memory keeps completion notifications in process for dry runs and
// tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
)

// Message is one recorded notification.
type Message struct {
	ID    string
	Topic string
	Data  []byte
}

// Decode unmarshals the notification body into dst.
func (m Message) Decode(dst any) error {
	return json.Unmarshal(m.Data, dst)
}

// Publisher records notifications instead of sending them.
type Publisher struct {
	mu      sync.Mutex
	sent    []Message
	failure error
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// FailWith makes later publishes return err until it is called with nil.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	p.failure = err
	p.mu.Unlock()
}

// Publish records payload as JSON under topic.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode notification: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failure != nil {
		return "", p.failure
	}
	msg := Message{ID: "memory-" + strconv.Itoa(len(p.sent)+1), Topic: topic, Data: body}
	p.sent = append(p.sent, msg)
	return msg.ID, nil
}

// Messages returns a copy of everything recorded so far, oldest first.
func (p *Publisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.sent...)
}
