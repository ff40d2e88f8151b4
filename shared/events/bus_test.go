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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
)

func TestSubscribe_CountsPerType(t *testing.T) {
	bus := NewEventBus(logr.Discard())

	Subscribe[SessionEstablished](bus, func(_ context.Context, _ SessionEstablished) error { return nil })
	Subscribe[SessionEstablished](bus, func(_ context.Context, _ SessionEstablished) error { return nil })
	Subscribe[SessionRevoked](bus, func(_ context.Context, _ SessionRevoked) error { return nil })

	if n := bus.HandlerCount(SessionEstablishedType); n != 2 {
		t.Errorf("HandlerCount(%s) = %d, want 2", SessionEstablishedType, n)
	}
	if n := bus.HandlerCount(SessionRevokedType); n != 1 {
		t.Errorf("HandlerCount(%s) = %d, want 1", SessionRevokedType, n)
	}
	if n := bus.HandlerCount(SystemConfigLoadedType); n != 0 {
		t.Errorf("HandlerCount(%s) = %d, want 0", SystemConfigLoadedType, n)
	}
}

func TestPublish_DeliversTypedEvent(t *testing.T) {
	bus := NewEventBus(logr.Discard())

	var (
		session SessionEstablished
		config  SystemConfigLoaded
	)
	Subscribe[SessionEstablished](bus, func(_ context.Context, e SessionEstablished) error {
		session = e
		return nil
	})
	Subscribe[SystemConfigLoaded](bus, func(_ context.Context, e SystemConfigLoaded) error {
		config = e
		return nil
	})

	expiresAt := time.Now().Add(time.Hour)
	ctx := context.Background()
	if err := bus.Publish(ctx, NewSessionEstablished("workload", expiresAt, []string{"default"}, true)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := bus.Publish(ctx, NewSystemConfigLoaded([]string{"DB_HOST"}, nil, []string{"JWT_SECRET"})); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if session.Strategy != "workload" || !session.Renewal || !session.ExpiresAt.Equal(expiresAt) {
		t.Errorf("session event = %+v", session)
	}
	if len(config.FromStore) != 1 || config.FromStore[0] != "DB_HOST" {
		t.Errorf("FromStore = %v", config.FromStore)
	}
	if len(config.Unset) != 1 || config.Unset[0] != "JWT_SECRET" {
		t.Errorf("Unset = %v", config.Unset)
	}
}

func TestPublish_NoHandlers(t *testing.T) {
	bus := NewEventBus(logr.Discard())
	if err := bus.Publish(context.Background(), NewSessionRevoked(true)); err != nil {
		t.Errorf("Publish() error = %v", err)
	}
}

func TestPublish_JoinsHandlerErrors(t *testing.T) {
	bus := NewEventBus(logr.Discard())
	errFirst := errors.New("first")
	errThird := errors.New("third")

	var calls int32
	Subscribe[SessionLoginFailed](bus, func(_ context.Context, _ SessionLoginFailed) error {
		atomic.AddInt32(&calls, 1)
		return errFirst
	})
	Subscribe[SessionLoginFailed](bus, func(_ context.Context, _ SessionLoginFailed) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	Subscribe[SessionLoginFailed](bus, func(_ context.Context, _ SessionLoginFailed) error {
		atomic.AddInt32(&calls, 1)
		return errThird
	})

	err := bus.Publish(context.Background(), NewSessionLoginFailed("workload", "denied"))
	if calls != 3 {
		t.Errorf("handler calls = %d, want 3", calls)
	}
	if !errors.Is(err, errFirst) || !errors.Is(err, errThird) {
		t.Errorf("Publish() error = %v, want both handler errors", err)
	}
}

func TestPublish_ConcurrentSubscribeAndPublish(t *testing.T) {
	bus := NewEventBus(logr.Discard())

	var (
		wg    sync.WaitGroup
		calls int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Subscribe[SessionEstablished](bus, func(_ context.Context, _ SessionEstablished) error {
				atomic.AddInt32(&calls, 1)
				return nil
			})
		}()
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = bus.Publish(context.Background(), NewSessionEstablished("static", time.Time{}, nil, false))
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 50 {
		t.Errorf("handler calls = %d, want 50", got)
	}
}

func TestBaseEvent(t *testing.T) {
	event := NewBaseEvent("test.event")
	if event.Type() != "test.event" {
		t.Errorf("Type() = %q", event.Type())
	}
	if time.Since(event.Timestamp()) > time.Second {
		t.Error("Timestamp() is not recent")
	}
}
