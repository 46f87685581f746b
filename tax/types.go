/*
Package tax provides the core tax-position engine.

PURPOSE:
  This package contains the domain types and the position calculator for an
  append-only log of financial events (sales and tax payments) and dated
  per-line-item amendments. The single question it answers: what is the net
  tax owed as of a cutoff date?

KEY CONCEPTS IN THIS FILE (types.go):
  - Event: A dated financial event, either a sale or a tax payment
  - LineItem: One taxable cost/rate pair within a sale
  - Amendment: A dated full replacement of one line item's cost and rate
  - ItemKey: The (invoice, item) composite key an amendment targets

DESIGN PRINCIPLES:
  1. Immutability: Events and amendments are append-only, never edited
  2. Precision: The calculator accumulates in decimal.Decimal and rounds once
  3. Closed union: Event carries an EventType tag; handling is an exhaustive
     switch, unknown tags are an error, never silently skipped

SEE ALSO:
  - calculator.go: Folds events and amendments into a position
  - store.go: Persistence contract for both logs
*/
package tax

import "time"

// =============================================================================
// EVENTS - Tagged union of the two financial event shapes
// =============================================================================

// EventType discriminates the two event shapes. There are exactly two;
// anything else is rejected at the boundary and again by the calculator.
type EventType string

const (
	EventSale       EventType = "SALES"
	EventTaxPayment EventType = "TAX_PAYMENT"
)

// Event is one dated entry in the financial log. Exactly one shape applies:
// a sale carries InvoiceID and Items, a tax payment carries Amount. The
// zero values of the other shape's fields are ignored.
type Event struct {
	Type EventType
	Date time.Time

	// Sale fields
	InvoiceID string
	Items     []LineItem

	// Tax payment fields. Minor currency units.
	Amount float64
}

// LineItem is one taxable cost/rate pair within a sale. ItemID is unique
// within its event but not globally; amendments address items by the
// (InvoiceID, ItemID) pair.
type LineItem struct {
	ItemID  string
	Cost    float64 // minor currency units, >= 0
	TaxRate float64 // fraction in [0, 1]
}

// =============================================================================
// AMENDMENTS - Retroactive full replacement of one line item
// =============================================================================

// Amendment replaces the cost and tax rate of the line item addressed by
// (InvoiceID, ItemID), effective as of Date. It is not tied to the original
// sale's timestamp: the amendment applies whenever its own date is at or
// before the query cutoff. Replacement is total, never a blend.
type Amendment struct {
	Date      time.Time
	InvoiceID string
	ItemID    string
	Cost      float64
	TaxRate   float64
}

// ItemKey addresses one line item across the whole log.
type ItemKey struct {
	InvoiceID string
	ItemID    string
}

// Key returns the line item's address within the given invoice.
func (li LineItem) Key(invoiceID string) ItemKey {
	return ItemKey{InvoiceID: invoiceID, ItemID: li.ItemID}
}

// Key returns the item address this amendment targets.
func (a Amendment) Key() ItemKey {
	return ItemKey{InvoiceID: a.InvoiceID, ItemID: a.ItemID}
}
