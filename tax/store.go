/*
store.go - Persistence contract for the two append-only logs

PURPOSE:
  The Store is the boundary between the pure calculator and whatever holds
  the data. Handlers range-query a snapshot through it and hand the slices
  to Position; the calculator itself never touches persistence.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: events and amendments are never updated or deleted
     (Reset exists for dev/test harnesses only, it is not a domain
     operation)
  2. ORDERING: range queries return ascending by date, insertion order on
     equal dates - the calculator's latest-wins tie-break rides on this
  3. INCLUSIVE CUTOFF: "before or on" means date <= cutoff

  Idempotency is NOT guaranteed: submitting the same event twice records it
  twice. Corrections happen through amendments, never through edits.

SEE ALSO:
  - store/memory.go: In-memory implementation (tests, dev)
  - ../store/sqlite/sqlite.go: SQLite implementation
*/
package tax

import (
	"context"
	"time"
)

// Store persists the event and amendment logs and serves cutoff snapshots.
//
// Each call is an independent request-scoped unit of work; implementations
// must release any underlying transactional resource on every exit path and
// never hold one across calls. Concurrent range queries each observe a
// consistent snapshot of all writes committed before they started; reads
// are never serialized against each other.
type Store interface {
	// AppendEvent records a financial event. Duplicates create duplicate
	// records.
	AppendEvent(ctx context.Context, ev Event) error

	// AppendAmendment records a line-item amendment.
	AppendAmendment(ctx context.Context, a Amendment) error

	// EventsBeforeOrOn returns all events with date <= cutoff, ascending by
	// date, insertion order on ties.
	EventsBeforeOrOn(ctx context.Context, cutoff time.Time) ([]Event, error)

	// AmendmentsBeforeOrOn returns all amendments with date <= cutoff,
	// ascending by date, insertion order on ties.
	AmendmentsBeforeOrOn(ctx context.Context, cutoff time.Time) ([]Amendment, error)

	// Reset clears both logs. Dev and test harnesses only.
	Reset(ctx context.Context) error
}
