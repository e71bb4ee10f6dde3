package local

import (
	"context"
	"sync"
)

// LocalMessage is an in-process pub/sub message.
type LocalMessage struct {
	Channel string
	Payload string
}

// LocalPubSub is an in-process fan-out pub/sub implementation. It carries
// notification events to in-process delivery workers when no Redis is
// configured.
type LocalPubSub struct {
	mu       sync.RWMutex
	channels map[string]map[chan *LocalMessage]struct{}
	bufSize  int
}

// NewPubSub creates a new LocalPubSub with the given per-subscriber buffer size.
func NewPubSub(bufSize int) *LocalPubSub {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &LocalPubSub{
		channels: make(map[string]map[chan *LocalMessage]struct{}),
		bufSize:  bufSize,
	}
}

// Publish sends a message to all subscribers of the given channel. A
// subscriber with a full buffer misses the message rather than block the
// publisher.
func (ps *LocalPubSub) Publish(_ context.Context, channel, message string) error {
	msg := &LocalMessage{Channel: channel, Payload: message}
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	for ch := range ps.channels[channel] {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe returns a message channel covering all the given channels and
// a cancel function that unsubscribes and closes it.
func (ps *LocalPubSub) Subscribe(_ context.Context, channels ...string) (<-chan *LocalMessage, func(), error) {
	ch := make(chan *LocalMessage, ps.bufSize)

	ps.mu.Lock()
	for _, name := range channels {
		subs, ok := ps.channels[name]
		if !ok {
			subs = make(map[chan *LocalMessage]struct{})
			ps.channels[name] = subs
		}
		subs[ch] = struct{}{}
	}
	ps.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			ps.mu.Lock()
			for _, name := range channels {
				delete(ps.channels[name], ch)
				if len(ps.channels[name]) == 0 {
					delete(ps.channels, name)
				}
			}
			ps.mu.Unlock()
			close(ch)
		})
	}

	return ch, cancel, nil
}
