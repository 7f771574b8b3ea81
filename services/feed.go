package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Listener event names, mapped from feed operations.
const (
	FeedEventMessage = "message"
	FeedEventEdit    = "edit"
	FeedEventDelete  = "delete"
	FeedEventError   = "error"
)

// FeedListener subscribes to a single channel's change feed and dispatches
// decoded events to registered callbacks. Each listener owns its callback
// registry, so independent listeners on the same channel never interfere.
type FeedListener struct {
	rdb     *redis.Client
	channel string

	mu        sync.Mutex
	callbacks map[string][]func(FeedEvent)

	pubsub  *redis.PubSub
	done    chan struct{}
	stopped bool
}

// NewFeedListener creates a listener for the named channel.
func NewFeedListener(rdb *redis.Client, channel string) *FeedListener {
	return &FeedListener{
		rdb:       rdb,
		channel:   channel,
		callbacks: make(map[string][]func(FeedEvent)),
	}
}

// On registers a callback for an event name. Register before calling Listen
// or Start; later registrations may miss events already in flight.
func (l *FeedListener) On(event string, cb func(FeedEvent)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.callbacks[event] = append(l.callbacks[event], cb)
}

func (l *FeedListener) emit(event string, e FeedEvent) {
	l.mu.Lock()
	cbs := append([]func(FeedEvent){}, l.callbacks[event]...)
	l.mu.Unlock()
	for _, cb := range cbs {
		cb(e)
	}
}

// Listen subscribes and blocks, dispatching events until the context is
// cancelled or Stop is called. An unexpected subscription loss emits an
// error event before returning.
func (l *FeedListener) Listen(ctx context.Context) error {
	l.mu.Lock()
	if l.pubsub != nil {
		l.mu.Unlock()
		return nil
	}
	l.pubsub = l.rdb.Subscribe(ctx, feedTopic(l.channel))
	l.done = make(chan struct{})
	l.mu.Unlock()
	defer close(l.done)

	// Wait for the subscription to be confirmed so a caller that sends
	// right after Start cannot race the subscribe.
	if _, err := l.pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := l.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				l.mu.Lock()
				stopped := l.stopped
				l.mu.Unlock()
				if !stopped {
					l.emit(FeedEventError, FeedEvent{Channel: l.channel})
				}
				return nil
			}
			l.dispatch(msg.Payload)
		}
	}
}

func (l *FeedListener) dispatch(payload string) {
	var event FeedEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		log.Printf("warning: malformed feed event on %s: %v", l.channel, err)
		return
	}
	switch event.Op {
	case FeedOpInsert:
		l.emit(FeedEventMessage, event)
	case FeedOpUpdate:
		l.emit(FeedEventEdit, event)
	case FeedOpDelete:
		l.emit(FeedEventDelete, event)
	}
}

// Start runs Listen on its own goroutine.
func (l *FeedListener) Start(ctx context.Context) {
	go func() {
		if err := l.Listen(ctx); err != nil && ctx.Err() == nil {
			log.Printf("warning: feed listener for %s exited: %v", l.channel, err)
		}
	}()
}

// Stop closes the subscription and waits briefly for the listen loop to
// finish. Safe to call more than once.
func (l *FeedListener) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	pubsub := l.pubsub
	done := l.done
	l.mu.Unlock()

	if pubsub != nil {
		if err := pubsub.Close(); err != nil {
			log.Printf("warning: failed to close feed subscription for %s: %v", l.channel, err)
		}
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	}
}
