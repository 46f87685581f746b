/*
errors.go - Error types for the tax engine

PURPOSE:
  All domain error types in one place. The calculator fails with exactly two
  distinguishable kinds: an invalid line item (carries the item id) and an
  invalid payment amount. Either one aborts the whole calculation; there is
  no partial or best-effort total.

USAGE:
  Callers match with errors.Is / errors.As:

    if errors.Is(err, tax.ErrInvalidLineItem) { ... }

    var itemErr *tax.InvalidLineItemError
    if errors.As(err, &itemErr) { log(itemErr.ItemID) }

SEE ALSO:
  - calculator.go: The only producer of these errors
*/
package tax

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidLineItem is returned when an effective line item (after any
	// amendment is applied) has a negative cost or an out-of-range tax rate.
	ErrInvalidLineItem = errors.New("invalid line item")

	// ErrInvalidPayment is returned when a tax payment has a negative amount.
	ErrInvalidPayment = errors.New("invalid tax payment amount")

	// ErrUnknownEventType is returned when an event carries a type tag that
	// is neither a sale nor a tax payment. The union is closed; an unknown
	// tag means corrupt or foreign data, not a new case to skip.
	ErrUnknownEventType = errors.New("unknown event type")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidLineItemError identifies the offending item and the effective
// values that failed validation. When an amendment was applied, Cost and
// TaxRate are the amendment's values, not the original item's.
type InvalidLineItemError struct {
	InvoiceID string
	ItemID    string
	Cost      float64
	TaxRate   float64
}

func (e *InvalidLineItemError) Error() string {
	return fmt.Sprintf("invalid cost or tax rate for item %s (invoice %s): cost=%v taxRate=%v",
		e.ItemID, e.InvoiceID, e.Cost, e.TaxRate)
}

func (e *InvalidLineItemError) Unwrap() error {
	return ErrInvalidLineItem
}

// InvalidPaymentError identifies a tax payment with a negative amount.
type InvalidPaymentError struct {
	Amount float64
}

func (e *InvalidPaymentError) Error() string {
	return fmt.Sprintf("invalid tax payment amount: %v", e.Amount)
}

func (e *InvalidPaymentError) Unwrap() error {
	return ErrInvalidPayment
}

// UnknownEventTypeError reports the unexpected tag.
type UnknownEventTypeError struct {
	Type EventType
}

func (e *UnknownEventTypeError) Error() string {
	return fmt.Sprintf("unknown event type %q", string(e.Type))
}

func (e *UnknownEventTypeError) Unwrap() error {
	return ErrUnknownEventType
}
