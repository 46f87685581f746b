/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

WIRE FORMAT:
  Dates are ISO 8601 timestamp strings everywhere. Pointer fields on
  request types distinguish "absent" from "zero" - presence checks are the
  ingestion layer's whole job, so that distinction matters.

VALIDATION:
  Shape/presence checks live in handlers; DTOs are pure data carriers.
  Numeric range validation is deliberately NOT done at ingestion - it is the
  calculator's job, so amendment-overridden values get checked at the point
  they affect a total.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/tax-engine/tax"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// IngestEventRequest is the body of POST /api/transactions. One of the two
// event shapes: SALES (invoiceId + items) or TAX_PAYMENT (amount).
type IngestEventRequest struct {
	EventType string        `json:"eventType"`
	Date      string        `json:"date"`
	InvoiceID string        `json:"invoiceId,omitempty"`
	Items     []LineItemDTO `json:"items,omitempty"`
	Amount    *float64      `json:"amount,omitempty"`
}

// LineItemDTO is one taxable cost/rate pair within a sale.
type LineItemDTO struct {
	ItemID  string  `json:"itemId"`
	Cost    float64 `json:"cost"`
	TaxRate float64 `json:"taxRate"`
}

// AmendSaleRequest is the body of PATCH /api/sale. All five fields are
// required; cost and taxRate use pointers so a missing field is
// distinguishable from an explicit zero.
type AmendSaleRequest struct {
	Date      string   `json:"date"`
	InvoiceID string   `json:"invoiceId"`
	ItemID    string   `json:"itemId"`
	Cost      *float64 `json:"cost"`
	TaxRate   *float64 `json:"taxRate"`
}

// LoadScenarioRequest selects a named seed dataset.
type LoadScenarioRequest struct {
	Name string `json:"name"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// TaxPositionDTO is the answer to a point-in-time query: the net tax owed
// as of the echoed cutoff date.
type TaxPositionDTO struct {
	Date        string `json:"date"`
	TaxPosition int64  `json:"taxPosition"`
}

// EventDTO represents a recorded financial event in API responses.
type EventDTO struct {
	EventType string        `json:"eventType"`
	Date      string        `json:"date"`
	InvoiceID string        `json:"invoiceId,omitempty"`
	Items     []LineItemDTO `json:"items,omitempty"`
	Amount    *float64      `json:"amount,omitempty"`
}

// AmendmentDTO represents a recorded amendment in API responses.
type AmendmentDTO struct {
	Date      string  `json:"date"`
	InvoiceID string  `json:"invoiceId"`
	ItemID    string  `json:"itemId"`
	Cost      float64 `json:"cost"`
	TaxRate   float64 `json:"taxRate"`
}

// ScenarioDTO describes one loadable seed dataset.
type ScenarioDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Events      int    `json:"events"`
	Amendments  int    `json:"amendments"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toEventDTO(ev tax.Event) EventDTO {
	dto := EventDTO{
		EventType: string(ev.Type),
		Date:      ev.Date.UTC().Format(time.RFC3339),
		InvoiceID: ev.InvoiceID,
	}
	if ev.Type == tax.EventSale {
		dto.Items = make([]LineItemDTO, len(ev.Items))
		for i, item := range ev.Items {
			dto.Items[i] = LineItemDTO(item)
		}
	}
	if ev.Type == tax.EventTaxPayment {
		amount := ev.Amount
		dto.Amount = &amount
	}
	return dto
}

func toAmendmentDTO(a tax.Amendment) AmendmentDTO {
	return AmendmentDTO{
		Date:      a.Date.UTC().Format(time.RFC3339),
		InvoiceID: a.InvoiceID,
		ItemID:    a.ItemID,
		Cost:      a.Cost,
		TaxRate:   a.TaxRate,
	}
}
