/*
Package sqlite provides a SQLite-backed implementation of tax.Store.

PURPOSE:
  Persists the two append-only logs (financial events, amendments) and
  serves the inclusive cutoff snapshots the calculator consumes. In
  production the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

APPEND-ONLY ENFORCEMENT:
  No UPDATE statements, no domain DELETE statements. Corrections enter the
  system as amendments, never as edits. Reset (dev/test only) is the single
  destructive operation.

KEY TABLES:
  events:      Immutable financial event log. The full event round-trips
               through a JSON payload column; event_type, date and
               invoice_id are lifted out for filtering.
  amendments:  Immutable amendment log, one row per submission. Multiple
               rows may target the same (invoice_id, item_id); the
               calculator picks the effective one.

ORDERING:
  Range queries order by date_unix (UTC nanoseconds) ascending, then rowid
  ascending. rowid is insertion order, which is the documented tie-break for
  equal dates. Dates are ALSO stored as RFC 3339 text for inspectability,
  but never compared as text.

WAL MODE:
  File databases are opened with WAL so concurrent position queries don't
  block each other or a writer. ":memory:" databases are rewritten to a
  uniquely named shared-cache DSN: without that, each pooled connection
  would get its own empty database (WAL does not apply in-memory).

USAGE:
  store, err := sqlite.New("./data/tax.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - tax/store.go: Interface and ordering contract
  - tax/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/tax-engine/tax"
)

// Store implements tax.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_journal_mode=WAL"
	if dbPath == ":memory:" {
		// database/sql pools connections, and every pooled connection to a
		// plain :memory: DSN gets its OWN empty database - the second
		// connection opened under load would see no tables. Route all
		// pooled connections to one shared in-memory instance instead,
		// named uniquely so separate Stores in the same process stay
		// isolated.
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Financial events (append-only log)
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		date TEXT NOT NULL,
		date_unix INTEGER NOT NULL,
		invoice_id TEXT,
		payload_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_date_unix
		ON events(date_unix);
	CREATE INDEX IF NOT EXISTS idx_events_invoice
		ON events(invoice_id) WHERE invoice_id IS NOT NULL;

	-- Amendments (append-only log)
	CREATE TABLE IF NOT EXISTS amendments (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		date_unix INTEGER NOT NULL,
		invoice_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		cost REAL NOT NULL,
		tax_rate REAL NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_amendments_date_unix
		ON amendments(date_unix);
	CREATE INDEX IF NOT EXISTS idx_amendments_item
		ON amendments(invoice_id, item_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// JSON PAYLOAD - Wire-shaped round trip for events
// =============================================================================

type eventPayload struct {
	EventType string        `json:"eventType"`
	Date      string        `json:"date"`
	InvoiceID string        `json:"invoiceId,omitempty"`
	Items     []itemPayload `json:"items,omitempty"`
	Amount    *float64      `json:"amount,omitempty"`
}

type itemPayload struct {
	ItemID  string  `json:"itemId"`
	Cost    float64 `json:"cost"`
	TaxRate float64 `json:"taxRate"`
}

func encodeEvent(ev tax.Event) ([]byte, error) {
	p := eventPayload{
		EventType: string(ev.Type),
		Date:      ev.Date.UTC().Format(time.RFC3339Nano),
		InvoiceID: ev.InvoiceID,
	}
	switch ev.Type {
	case tax.EventSale:
		p.Items = make([]itemPayload, len(ev.Items))
		for i, item := range ev.Items {
			p.Items[i] = itemPayload(item)
		}
	case tax.EventTaxPayment:
		amount := ev.Amount
		p.Amount = &amount
	}
	return json.Marshal(p)
}

func decodeEvent(data []byte) (tax.Event, error) {
	var p eventPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return tax.Event{}, fmt.Errorf("decode event payload: %w", err)
	}
	date, err := time.Parse(time.RFC3339Nano, p.Date)
	if err != nil {
		return tax.Event{}, fmt.Errorf("decode event date: %w", err)
	}
	ev := tax.Event{
		Type:      tax.EventType(p.EventType),
		Date:      date,
		InvoiceID: p.InvoiceID,
	}
	if len(p.Items) > 0 {
		ev.Items = make([]tax.LineItem, len(p.Items))
		for i, item := range p.Items {
			ev.Items[i] = tax.LineItem(item)
		}
	}
	if p.Amount != nil {
		ev.Amount = *p.Amount
	}
	return ev, nil
}

// =============================================================================
// STORE OPERATIONS
// =============================================================================

// AppendEvent records a financial event. No idempotency: duplicates create
// duplicate rows.
func (s *Store) AppendEvent(ctx context.Context, ev tax.Event) error {
	payload, err := encodeEvent(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	var invoiceID any
	if ev.InvoiceID != "" {
		invoiceID = ev.InvoiceID
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, event_type, date, date_unix, invoice_id, payload_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		string(ev.Type),
		ev.Date.UTC().Format(time.RFC3339Nano),
		ev.Date.UnixNano(),
		invoiceID,
		string(payload),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// AppendAmendment records a line-item amendment.
func (s *Store) AppendAmendment(ctx context.Context, a tax.Amendment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO amendments (id, date, date_unix, invoice_id, item_id, cost, tax_rate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		a.Date.UTC().Format(time.RFC3339Nano),
		a.Date.UnixNano(),
		a.InvoiceID,
		a.ItemID,
		a.Cost,
		a.TaxRate,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert amendment: %w", err)
	}
	return nil
}

// EventsBeforeOrOn returns all events with date <= cutoff, ascending by
// date, insertion order on ties.
func (s *Store) EventsBeforeOrOn(ctx context.Context, cutoff time.Time) ([]tax.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload_json
		FROM events
		WHERE date_unix <= ?
		ORDER BY date_unix ASC, rowid ASC`,
		cutoff.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []tax.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev, err := decodeEvent([]byte(payload))
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// AmendmentsBeforeOrOn returns all amendments with date <= cutoff, ascending
// by date, insertion order on ties.
func (s *Store) AmendmentsBeforeOrOn(ctx context.Context, cutoff time.Time) ([]tax.Amendment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, invoice_id, item_id, cost, tax_rate
		FROM amendments
		WHERE date_unix <= ?
		ORDER BY date_unix ASC, rowid ASC`,
		cutoff.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("query amendments: %w", err)
	}
	defer rows.Close()

	var amendments []tax.Amendment
	for rows.Next() {
		var (
			a       tax.Amendment
			dateStr string
		)
		if err := rows.Scan(&dateStr, &a.InvoiceID, &a.ItemID, &a.Cost, &a.TaxRate); err != nil {
			return nil, fmt.Errorf("scan amendment: %w", err)
		}
		date, err := time.Parse(time.RFC3339Nano, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse amendment date: %w", err)
		}
		a.Date = date
		amendments = append(amendments, a)
	}
	return amendments, rows.Err()
}

// Reset clears both logs. Dev and test harnesses only.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("reset events: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM amendments`); err != nil {
		return fmt.Errorf("reset amendments: %w", err)
	}
	return nil
}
