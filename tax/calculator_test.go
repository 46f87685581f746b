/*
calculator_test.go - Behavior tests for the position calculator

PURPOSE:
  These tests are the executable description of the calculation rules:
  amendment override, latest-wins, single final rounding, and
  fail-the-whole-calculation validation.

ORGANIZATION:
  1. Empty and trivial inputs
  2. Plain folds (no amendments)
  3. Amendment semantics
  4. Rounding
  5. Validation failures
  6. Ordering robustness

Each test has GIVEN/WHEN/THEN comments explaining the scenario.
*/
package tax_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/tax-engine/tax"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

func day(d int) time.Time {
	return time.Date(2023, time.January, d, 12, 0, 0, 0, time.UTC)
}

func sale(d int, invoiceID string, items ...tax.LineItem) tax.Event {
	return tax.Event{Type: tax.EventSale, Date: day(d), InvoiceID: invoiceID, Items: items}
}

func payment(d int, amount float64) tax.Event {
	return tax.Event{Type: tax.EventTaxPayment, Date: day(d), Amount: amount}
}

func item(id string, cost, rate float64) tax.LineItem {
	return tax.LineItem{ItemID: id, Cost: cost, TaxRate: rate}
}

func amend(d int, invoiceID, itemID string, cost, rate float64) tax.Amendment {
	return tax.Amendment{Date: day(d), InvoiceID: invoiceID, ItemID: itemID, Cost: cost, TaxRate: rate}
}

// =============================================================================
// EMPTY AND TRIVIAL INPUTS
// =============================================================================

func TestPosition_EmptyInputs_IsZero(t *testing.T) {
	total, err := tax.Position(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestPosition_SaleWithNoItems_ContributesNothing(t *testing.T) {
	// GIVEN: A sale event with an empty item list
	events := []tax.Event{sale(1, "INV-001")}

	// THEN: It contributes zero, not an error
	total, err := tax.Position(events, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

// =============================================================================
// PLAIN FOLDS
// =============================================================================

func TestPosition_SingleSaleItem(t *testing.T) {
	// GIVEN: One sale, item cost 100 at rate 0.2
	events := []tax.Event{sale(1, "INV-001", item("ITEM-001", 100, 0.2))}

	// THEN: Position is 20
	total, err := tax.Position(events, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(20), total)
}

func TestPosition_PaymentSubtracts(t *testing.T) {
	// GIVEN: Sale tax of 20 and a payment of 15
	events := []tax.Event{
		sale(1, "INV-001", item("ITEM-001", 100, 0.2)),
		payment(2, 15),
	}

	// THEN: Position is 5
	total, err := tax.Position(events, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
}

func TestPosition_MultipleSalesAndPayments(t *testing.T) {
	// GIVEN: The baseline dataset: two invoices, two payments
	events := []tax.Event{
		sale(15, "INV-001", item("ITEM-001", 1000, 0.2), item("ITEM-002", 500, 0.1)),
		payment(31, 300),
		sale(20, "INV-002", item("ITEM-003", 2000, 0.2), item("ITEM-004", 1500, 0.15)),
		payment(28, 500),
	}

	// THEN: 200 + 50 + 400 + 225 - 300 - 500 = 75
	total, err := tax.Position(events, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(75), total)
}

func TestPosition_CanGoNegative(t *testing.T) {
	// GIVEN: Payments exceeding accrued tax
	events := []tax.Event{
		sale(1, "INV-001", item("ITEM-001", 100, 0.2)),
		payment(2, 50),
	}

	// THEN: The position is signed
	total, err := tax.Position(events, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(-30), total)
}

// =============================================================================
// AMENDMENT SEMANTICS
// =============================================================================

func TestPosition_AmendmentReplacesCostAndRate(t *testing.T) {
	// GIVEN: Item cost 100 rate 0.2, amended to cost 150 rate 0.15
	events := []tax.Event{sale(1, "INV-001", item("ITEM-001", 100, 0.2))}
	amendments := []tax.Amendment{amend(5, "INV-001", "ITEM-001", 150, 0.15)}

	// THEN: The amendment's values are used in full, never a blend:
	// 150 * 0.15 = 22.5, rounded to 23
	total, err := tax.Position(events, amendments)
	require.NoError(t, err)
	assert.Equal(t, int64(23), total)
}

func TestPosition_LatestAmendmentWins(t *testing.T) {
	// GIVEN: Two amendments on the same item, ascending by date
	events := []tax.Event{sale(1, "INV-001", item("ITEM-001", 100, 0.2))}
	amendments := []tax.Amendment{
		amend(5, "INV-001", "ITEM-001", 150, 0.15),
		amend(10, "INV-001", "ITEM-001", 200, 0.1),
	}

	// THEN: Only the later one is effective: 200 * 0.1 = 20
	total, err := tax.Position(events, amendments)
	require.NoError(t, err)
	assert.Equal(t, int64(20), total)
}

func TestPosition_EqualDateAmendments_LaterInSequenceWins(t *testing.T) {
	// GIVEN: Two amendments with the SAME date
	events := []tax.Event{sale(1, "INV-001", item("ITEM-001", 100, 0.2))}
	amendments := []tax.Amendment{
		amend(5, "INV-001", "ITEM-001", 150, 0.15),
		amend(5, "INV-001", "ITEM-001", 300, 0.1),
	}

	// THEN: The one later in the supplied sequence wins: 300 * 0.1 = 30
	total, err := tax.Position(events, amendments)
	require.NoError(t, err)
	assert.Equal(t, int64(30), total)
}

func TestPosition_UnmatchedAmendmentIsInert(t *testing.T) {
	// GIVEN: An amendment addressing an item that no sale contains
	events := []tax.Event{sale(1, "INV-001", item("ITEM-001", 100, 0.2))}
	amendments := []tax.Amendment{amend(5, "INV-999", "ITEM-999", 9999, 0.9)}

	// THEN: It changes nothing and raises no error
	total, err := tax.Position(events, amendments)
	require.NoError(t, err)
	assert.Equal(t, int64(20), total)
}

func TestPosition_AmendmentPredatingSaleStillApplies(t *testing.T) {
	// GIVEN: An amendment dated before the sale it targets. Amendments are
	// not tied to the original event's timestamp.
	events := []tax.Event{sale(20, "INV-001", item("ITEM-001", 100, 0.2))}
	amendments := []tax.Amendment{amend(5, "INV-001", "ITEM-001", 150, 0.15)}

	// THEN: It applies: 150 * 0.15 = 22.5 -> 23
	total, err := tax.Position(events, amendments)
	require.NoError(t, err)
	assert.Equal(t, int64(23), total)
}

func TestPosition_AmendmentOnlyTouchesItsOwnInvoice(t *testing.T) {
	// GIVEN: Two invoices sharing an item id; item ids are only unique
	// within one event
	events := []tax.Event{
		sale(1, "INV-001", item("ITEM-001", 100, 0.2)),
		sale(2, "INV-002", item("ITEM-001", 100, 0.2)),
	}
	amendments := []tax.Amendment{amend(5, "INV-001", "ITEM-001", 200, 0.5)}

	// THEN: Only INV-001's item is overridden: 100 + 20 = 120
	total, err := tax.Position(events, amendments)
	require.NoError(t, err)
	assert.Equal(t, int64(120), total)
}

// =============================================================================
// ROUNDING
// =============================================================================

func TestPosition_FractionalCentsAccumulateBeforeRounding(t *testing.T) {
	// GIVEN: Items whose individual taxes round to zero
	events := []tax.Event{
		sale(1, "INV-001",
			item("A", 1, 0.4), // 0.4
			item("B", 1, 0.4), // 0.4
		),
	}

	// THEN: They sum to 0.8 BEFORE rounding: position is 1, not 0
	total, err := tax.Position(events, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestPosition_TinyContributionRoundsToZero(t *testing.T) {
	// GIVEN: Cost 0.01 at rate 0.2 = 0.002
	events := []tax.Event{sale(1, "INV-001", item("ITEM-001", 0.01, 0.2))}

	total, err := tax.Position(events, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestPosition_HalfRoundsTowardPositive(t *testing.T) {
	// GIVEN: A positive half: 150 * 0.15 = 22.5
	events := []tax.Event{sale(1, "INV-001", item("ITEM-001", 150, 0.15))}
	total, err := tax.Position(events, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(23), total)

	// GIVEN: A negative half: 20 - 40.5 = -20.5
	events = []tax.Event{
		sale(1, "INV-001", item("ITEM-001", 100, 0.2)),
		payment(2, 40.5),
	}

	// THEN: Half rounds toward positive infinity: -20, not -21
	total, err = tax.Position(events, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(-20), total)
}

// =============================================================================
// VALIDATION FAILURES
// =============================================================================

func TestPosition_NegativeCost_FailsIdentifyingItem(t *testing.T) {
	events := []tax.Event{
		sale(1, "INV-001", item("ITEM-OK", 100, 0.2)),
		sale(2, "INV-002", item("ITEM-BAD", -5, 0.2)),
	}

	_, err := tax.Position(events, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, tax.ErrInvalidLineItem)

	var itemErr *tax.InvalidLineItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, "ITEM-BAD", itemErr.ItemID)
	assert.Equal(t, "INV-002", itemErr.InvoiceID)
}

func TestPosition_TaxRateOutOfRange_Fails(t *testing.T) {
	for _, rate := range []float64{-0.1, 1.5} {
		events := []tax.Event{sale(1, "INV-001", item("ITEM-001", 100, rate))}
		_, err := tax.Position(events, nil)
		assert.ErrorIs(t, err, tax.ErrInvalidLineItem, "rate %v", rate)
	}
}

func TestPosition_InvalidAmendmentValues_FailAtCalculationTime(t *testing.T) {
	// GIVEN: A valid item overridden by an amendment with an invalid rate.
	// Amendments are never range-checked on write; the check happens here,
	// on the effective values.
	events := []tax.Event{sale(1, "INV-001", item("ITEM-001", 100, 0.2))}
	amendments := []tax.Amendment{amend(5, "INV-001", "ITEM-001", 100, 1.5)}

	_, err := tax.Position(events, amendments)
	require.Error(t, err)

	var itemErr *tax.InvalidLineItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, "ITEM-001", itemErr.ItemID)
	assert.Equal(t, 1.5, itemErr.TaxRate)
}

func TestPosition_NegativePayment_Fails(t *testing.T) {
	events := []tax.Event{payment(1, -10)}

	_, err := tax.Position(events, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, tax.ErrInvalidPayment)

	var payErr *tax.InvalidPaymentError
	require.ErrorAs(t, err, &payErr)
	assert.Equal(t, float64(-10), payErr.Amount)
}

func TestPosition_OneBadRecordAbortsEverything(t *testing.T) {
	// GIVEN: Plenty of valid records and one invalid payment
	events := []tax.Event{
		sale(1, "INV-001", item("ITEM-001", 100, 0.2)),
		sale(2, "INV-002", item("ITEM-002", 200, 0.1)),
		payment(3, -1),
		sale(4, "INV-003", item("ITEM-003", 300, 0.05)),
	}

	// THEN: No partial total; the whole calculation fails
	total, err := tax.Position(events, nil)
	assert.Error(t, err)
	assert.Equal(t, int64(0), total)
}

func TestPosition_UnknownEventType_Fails(t *testing.T) {
	events := []tax.Event{{Type: "REFUND", Date: day(1)}}

	_, err := tax.Position(events, nil)
	assert.ErrorIs(t, err, tax.ErrUnknownEventType)
}

// =============================================================================
// ORDERING ROBUSTNESS
// =============================================================================

func TestPosition_UnorderedAmendments_AreResortedByDate(t *testing.T) {
	// GIVEN: Amendments supplied OUT of date order (a caller violating the
	// ordering precondition)
	events := []tax.Event{sale(1, "INV-001", item("ITEM-001", 100, 0.2))}
	amendments := []tax.Amendment{
		amend(10, "INV-001", "ITEM-001", 200, 0.1),
		amend(5, "INV-001", "ITEM-001", 150, 0.15),
	}

	// THEN: The defensive re-sort restores latest-wins: 200 * 0.1 = 20
	total, err := tax.Position(events, amendments)
	require.NoError(t, err)
	assert.Equal(t, int64(20), total)
}

func TestPosition_DoesNotMutateCallerSlices(t *testing.T) {
	amendments := []tax.Amendment{
		amend(10, "INV-001", "ITEM-001", 200, 0.1),
		amend(5, "INV-001", "ITEM-001", 150, 0.15),
	}
	events := []tax.Event{sale(1, "INV-001", item("ITEM-001", 100, 0.2))}

	_, err := tax.Position(events, amendments)
	require.NoError(t, err)

	// Caller's out-of-order slice is untouched
	assert.Equal(t, day(10), amendments[0].Date)
	assert.Equal(t, day(5), amendments[1].Date)
}
