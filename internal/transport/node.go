// Package transport is the in-process publish/subscribe bus command
// messages travel over. Callbacks run synchronously on the publisher's
// goroutine, so subscribers see the same arbitrary-thread delivery they
// would from a networked transport and must do their own locking.
package transport

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/hydrosim/systems/pkg/core"
)

// MessageInfo describes the delivery of a single message.
type MessageInfo struct {
	// Topic is the topic the message was published on.
	Topic string
}

// Node is a handle for subscribing and publishing on named topics.
type Node struct {
	mu     sync.RWMutex
	subs   map[string][]func(msg any, info MessageInfo)
	logger *slog.Logger
}

// NewNode creates a node. A nil logger falls back to slog.Default.
func NewNode(logger *slog.Logger) *Node {
	if logger == nil {
		logger = slog.Default()
	}
	return &Node{
		subs:   make(map[string][]func(any, MessageInfo)),
		logger: logger,
	}
}

// Subscribe registers a typed callback on a topic. Messages of a
// different payload type are dropped with a warning. Subscriptions last
// for the node's lifetime; there is no unsubscribe.
func Subscribe[T any](n *Node, topic string, fn func(msg T, info MessageInfo)) error {
	valid, err := core.ValidTopic(topic)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	wrapped := func(msg any, info MessageInfo) {
		typed, ok := msg.(T)
		if !ok {
			n.logger.Warn("dropping message with unexpected payload type",
				"topic", info.Topic, "payload", fmt.Sprintf("%T", msg))
			return
		}
		fn(typed, info)
	}

	n.mu.Lock()
	n.subs[valid] = append(n.subs[valid], wrapped)
	n.mu.Unlock()
	return nil
}

// Publish delivers a message to every subscriber of the topic, on the
// caller's goroutine. Topics with no subscribers drop the message.
func (n *Node) Publish(topic string, msg any) {
	valid, err := core.ValidTopic(topic)
	if err != nil {
		n.logger.Warn("dropping publish on invalid topic", "topic", topic, "error", err)
		return
	}

	n.mu.RLock()
	callbacks := n.subs[valid]
	n.mu.RUnlock()

	info := MessageInfo{Topic: valid}
	for _, cb := range callbacks {
		cb(msg, info)
	}
}

// Publisher is a bound publishing handle for one topic.
type Publisher struct {
	node  *Node
	topic string
}

// Advertise validates a topic and returns a publisher bound to it.
func (n *Node) Advertise(topic string) (Publisher, error) {
	valid, err := core.ValidTopic(topic)
	if err != nil {
		return Publisher{}, fmt.Errorf("advertise: %w", err)
	}
	return Publisher{node: n, topic: valid}, nil
}

// Topic returns the topic the publisher is bound to.
func (p Publisher) Topic() string {
	return p.topic
}

// Publish sends a message on the bound topic.
func (p Publisher) Publish(msg any) {
	p.node.Publish(p.topic, msg)
}
