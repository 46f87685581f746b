/*
calculator.go - Point-in-time tax position calculation

PURPOSE:
  Position is the pure core of the engine: it folds an ordered event log and
  an ordered amendment log into a single signed total, the net tax owed as of
  the cutoff the caller queried. Both inputs must already represent the
  cutoff snapshot (date <= cutoff); Position never filters by date itself.

ALGORITHM:
  1. Index amendments by (invoice, item), later entries overwriting earlier
     ones. With ascending-date input the surviving entry per key is the
     chronologically latest amendment - latest wins, ties broken by input
     order.
  2. Fold the events: each sale line item contributes cost * taxRate, with
     an indexed amendment replacing BOTH cost and rate in full; each tax
     payment subtracts its amount.
  3. Round once, at the end, half up toward positive infinity.

PRECISION:
  Accumulation uses decimal.Decimal. Fractional minor units (for example
  cost 0.01 at rate 0.2 = 0.002) must survive summation intact; only the
  grand total is ever rounded.

VALIDATION:
  Numeric bounds are checked here, at calculation time, on the EFFECTIVE
  values - an amendment may introduce an invalid cost or rate that was never
  range-checked on write, and it must still be caught at the point it would
  affect the total. One invalid item or payment anywhere in the queried
  window aborts the whole calculation.

SEE ALSO:
  - types.go: Event, LineItem, Amendment
  - errors.go: InvalidLineItemError, InvalidPaymentError
*/
package tax

import (
	"sort"

	"github.com/shopspring/decimal"
)

var half = decimal.NewFromFloat(0.5)

// Position computes the net tax owed from the given event and amendment
// sequences: sales tax accrued minus tax payments made, rounded half up to
// the nearest integer.
//
// PRECONDITION: both slices are filtered to the query cutoff and sorted
// ascending by date. The ordering of amendments is load-bearing (it decides
// which of several amendments to the same item wins), so rather than trust
// call-site happenstance Position re-sorts both inputs defensively with a
// stable sort: already-ordered input is untouched, and equal-date entries
// keep their supplied order, preserving the "later in sequence wins"
// tie-break either way.
//
// Position never mutates its inputs (out-of-order input is copied before
// sorting) and holds no state between calls; it is safe to invoke
// concurrently.
func Position(events []Event, amendments []Amendment) (int64, error) {
	events = sortedByDate(events, func(e Event) int64 { return e.Date.UnixNano() })
	amendments = sortedByDate(amendments, func(a Amendment) int64 { return a.Date.UnixNano() })

	// Latest amendment per item. Ascending input means plain overwrite
	// leaves the effective one.
	index := make(map[ItemKey]Amendment, len(amendments))
	for _, a := range amendments {
		index[a.Key()] = a
	}

	total := decimal.Zero

	for _, ev := range events {
		switch ev.Type {
		case EventSale:
			for _, item := range ev.Items {
				cost, rate := item.Cost, item.TaxRate
				if a, ok := index[item.Key(ev.InvoiceID)]; ok {
					cost, rate = a.Cost, a.TaxRate
				}
				if cost < 0 || rate < 0 || rate > 1 {
					return 0, &InvalidLineItemError{
						InvoiceID: ev.InvoiceID,
						ItemID:    item.ItemID,
						Cost:      cost,
						TaxRate:   rate,
					}
				}
				tax := decimal.NewFromFloat(cost).Mul(decimal.NewFromFloat(rate))
				total = total.Add(tax)
			}
		case EventTaxPayment:
			if ev.Amount < 0 {
				return 0, &InvalidPaymentError{Amount: ev.Amount}
			}
			total = total.Sub(decimal.NewFromFloat(ev.Amount))
		default:
			return 0, &UnknownEventTypeError{Type: ev.Type}
		}
	}

	return roundHalfUp(total), nil
}

// roundHalfUp rounds to the nearest integer with .5 going toward positive
// infinity (20.5 -> 21, -20.5 -> -20).
func roundHalfUp(d decimal.Decimal) int64 {
	return d.Add(half).Floor().IntPart()
}

// sortedByDate returns s ordered ascending by the given timestamp key.
// The sort is stable and skipped entirely when the input is already ordered,
// which is the common case: stores return both logs ascending by date.
func sortedByDate[T any](s []T, at func(T) int64) []T {
	ordered := true
	for i := 1; i < len(s); i++ {
		if at(s[i]) < at(s[i-1]) {
			ordered = false
			break
		}
	}
	if ordered {
		return s
	}
	out := make([]T, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool { return at(out[i]) < at(out[j]) })
	return out
}
