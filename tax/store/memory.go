// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/tax-engine/tax"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	events     []tax.Event
	amendments []tax.Amendment
}

func NewMemory() *Memory {
	return &Memory{}
}

// AppendEvent records an event, keeping the log ordered by date. Append-only.
func (m *Memory) AppendEvent(_ context.Context, ev tax.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = insertByDate(m.events, ev, func(e tax.Event) time.Time { return e.Date })
	return nil
}

// AppendAmendment records an amendment, keeping the log ordered by date.
func (m *Memory) AppendAmendment(_ context.Context, a tax.Amendment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.amendments = insertByDate(m.amendments, a, func(a tax.Amendment) time.Time { return a.Date })
	return nil
}

func (m *Memory) EventsBeforeOrOn(_ context.Context, cutoff time.Time) ([]tax.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []tax.Event
	for _, ev := range m.events {
		if !ev.Date.After(cutoff) {
			result = append(result, ev)
		}
	}
	return result, nil
}

func (m *Memory) AmendmentsBeforeOrOn(_ context.Context, cutoff time.Time) ([]tax.Amendment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []tax.Amendment
	for _, a := range m.amendments {
		if !a.Date.After(cutoff) {
			result = append(result, a)
		}
	}
	return result, nil
}

// Reset clears both logs.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
	m.amendments = nil
	return nil
}

// insertByDate inserts v keeping s ascending by date. The insertion point is
// AFTER any equal-dated entries, so insertion order is preserved on ties -
// the ordering contract the calculator's tie-break depends on.
func insertByDate[T any](s []T, v T, at func(T) time.Time) []T {
	i := sort.Search(len(s), func(i int) bool {
		return at(s[i]).After(at(v))
	})
	s = append(s, v)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
