// Package events implements the subscribe_events hook of spec.md §6:
// a pub/sub bus that fans IrrigationEvent and Alert records out to
// subscribers as they are committed, at-least-once. Adopted in shape
// from aristath-portfolioManager's trader/internal/events/bus.go
// (Subscribe/Emit over a mutex-guarded handler slice, async fan-out via
// one goroutine per handler), repurposed to carry irrigation payloads
// instead of trading events.
package events

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/irriga/controller/internal/model"
)

// Kind distinguishes the two record types the bus carries.
type Kind string

const (
	KindIrrigation Kind = "irrigation_event"
	KindAlert      Kind = "alert"
)

// Record is the payload delivered to subscribers. Exactly one of
// Irrigation/Alert is set, selected by Kind.
type Record struct {
	Kind       Kind
	Irrigation *model.IrrigationEvent
	Alert      *model.Alert
}

// Handler receives committed records. Handlers run concurrently with
// each other and with the caller of Emit; they must not block
// indefinitely.
type Handler func(Record)

// Bus is a simple fan-out pub/sub, safe for concurrent Subscribe and
// Emit calls.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	log      zerolog.Logger
}

func NewBus(log zerolog.Logger) *Bus {
	return &Bus{log: log.With().Str("component", "events").Logger()}
}

// Subscribe registers handler to receive every future record.
func (b *Bus) Subscribe(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// EmitIrrigation publishes a committed irrigation event.
func (b *Bus) EmitIrrigation(e model.IrrigationEvent) {
	b.emit(Record{Kind: KindIrrigation, Irrigation: &e})
}

// EmitAlert publishes a committed alert.
func (b *Bus) EmitAlert(a model.Alert) {
	b.emit(Record{Kind: KindAlert, Alert: &a})
}

func (b *Bus) emit(r Record) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		go h(r)
	}

	b.log.Debug().Str("kind", string(r.Kind)).Int("subscribers", len(handlers)).Msg("event emitted")
}
