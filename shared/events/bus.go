/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
)

// Handler is a function that processes events of type T.
type Handler[T Event] func(ctx context.Context, event T) error

// dispatch is a type-erased Handler.
type dispatch func(ctx context.Context, event Event) error

// EventBus delivers events synchronously to the handlers subscribed to
// their type. It is safe for concurrent use.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]dispatch
	logger   logr.Logger
}

// NewEventBus creates a new event bus with the given logger.
func NewEventBus(logger logr.Logger) *EventBus {
	return &EventBus{
		handlers: make(map[string][]dispatch),
		logger:   logger,
	}
}

// Subscribe registers handler for events of type T. Handlers run in
// subscription order.
func Subscribe[T Event](bus *EventBus, handler Handler[T]) {
	var zero T
	eventType := zero.Type()

	d := func(ctx context.Context, event Event) error {
		e, ok := event.(T)
		if !ok {
			return fmt.Errorf("event %s has type %T, want %T", eventType, event, zero)
		}
		return handler(ctx, e)
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.handlers[eventType] = append(bus.handlers[eventType], d)
	bus.logger.V(1).Info("handler subscribed", "eventType", eventType)
}

// Publish calls every handler subscribed to the event's type. A failing
// handler does not stop the others; their errors are joined.
func (b *EventBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := b.handlers[event.Type()]
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.V(2).Info("no handlers for event", "type", event.Type())
		return nil
	}

	b.logger.V(1).Info("publishing event",
		"type", event.Type(),
		"timestamp", event.Timestamp(),
		"handlerCount", len(handlers),
	)

	var errs []error
	for i, h := range handlers {
		if err := h(ctx, event); err != nil {
			b.logger.Error(err, "handler failed", "type", event.Type(), "handlerIndex", i)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HandlerCount returns the number of handlers registered for eventType.
func (b *EventBus) HandlerCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}
