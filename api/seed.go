/*
seed.go - Seed dataset loaders for testing and demonstrations

PURPOSE:
  Provides pre-built datasets that populate the store with realistic sales,
  tax payments, and amendments. Each scenario demonstrates a specific part
  of the position calculation.

AVAILABLE SCENARIOS:
  baseline:         Two invoices, two tax payments, two amendments
  amendment-chain:  Several amendments to the same line item over time
                    (only the latest at the query cutoff is effective)

HOW SCENARIOS WORK:
  1. Reset the store (clear both logs)
  2. Append events and amendments in dated order

USAGE VIA API:
  POST /api/scenarios/load
  {"name": "baseline"}

NOTE:
  Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: writeJSON/writeError helpers, currentScenario tracking
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/tax-engine/tax"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	Name        string
	Description string
	Events      []tax.Event
	Amendments  []tax.Amendment
}

func date(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(fmt.Sprintf("bad scenario date %q: %v", s, err))
	}
	return t
}

var scenarios = []scenario{
	{
		Name:        "baseline",
		Description: "Two invoices, two tax payments, two single amendments",
		Events: []tax.Event{
			{
				Type:      tax.EventSale,
				Date:      date("2023-01-15T12:00:00Z"),
				InvoiceID: "INV-001",
				Items: []tax.LineItem{
					{ItemID: "ITEM-001", Cost: 1000, TaxRate: 0.2},
					{ItemID: "ITEM-002", Cost: 500, TaxRate: 0.1},
				},
			},
			{
				Type:      tax.EventSale,
				Date:      date("2023-02-20T14:30:00Z"),
				InvoiceID: "INV-002",
				Items: []tax.LineItem{
					{ItemID: "ITEM-003", Cost: 2000, TaxRate: 0.2},
					{ItemID: "ITEM-004", Cost: 1500, TaxRate: 0.15},
				},
			},
			{Type: tax.EventTaxPayment, Date: date("2023-01-31T16:00:00Z"), Amount: 300},
			{Type: tax.EventTaxPayment, Date: date("2023-02-28T16:00:00Z"), Amount: 500},
		},
		Amendments: []tax.Amendment{
			{Date: date("2023-01-20T10:00:00Z"), InvoiceID: "INV-001", ItemID: "ITEM-001", Cost: 1200, TaxRate: 0.2},
			{Date: date("2023-02-25T11:00:00Z"), InvoiceID: "INV-002", ItemID: "ITEM-003", Cost: 1800, TaxRate: 0.2},
		},
	},
	{
		Name:        "amendment-chain",
		Description: "One line item amended three times; cutoff picks the winner",
		Events: []tax.Event{
			{
				Type:      tax.EventSale,
				Date:      date("2023-03-01T09:00:00Z"),
				InvoiceID: "INV-100",
				Items: []tax.LineItem{
					{ItemID: "ITEM-A", Cost: 100, TaxRate: 0.2},
				},
			},
		},
		Amendments: []tax.Amendment{
			{Date: date("2023-03-05T09:00:00Z"), InvoiceID: "INV-100", ItemID: "ITEM-A", Cost: 150, TaxRate: 0.15},
			{Date: date("2023-03-10T09:00:00Z"), InvoiceID: "INV-100", ItemID: "ITEM-A", Cost: 200, TaxRate: 0.1},
			{Date: date("2023-03-15T09:00:00Z"), InvoiceID: "INV-100", ItemID: "ITEM-A", Cost: 50, TaxRate: 0.5},
		},
	},
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns available seed datasets.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = ScenarioDTO{
			Name:        s.Name,
			Description: s.Description,
			Events:      len(s.Events),
			Amendments:  len(s.Amendments),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.Name == h.currentScenario {
			writeJSON(w, http.StatusOK, ScenarioDTO{
				Name:        s.Name,
				Description: s.Description,
				Events:      len(s.Events),
				Amendments:  len(s.Amendments),
			})
			return
		}
	}

	// Loaded under a name no longer in the list (shouldn't happen)
	writeJSON(w, http.StatusOK, ScenarioDTO{Name: h.currentScenario})
}

// LoadScenario resets the store and loads the named dataset.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		req.Name = "baseline"
	}

	var found *scenario
	for i := range scenarios {
		if scenarios[i].Name == req.Name {
			found = &scenarios[i]
			break
		}
	}
	if found == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown scenario %q", req.Name), nil)
		return
	}

	if err := h.loadScenario(r.Context(), found); err != nil {
		h.Log.Error("failed to load scenario", "scenario", req.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = found.Name
	h.Log.Info("scenario loaded", "scenario", found.Name)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"scenario": found.Name,
	})
}

func (h *Handler) loadScenario(ctx context.Context, s *scenario) error {
	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	for _, ev := range s.Events {
		if err := h.Store.AppendEvent(ctx, ev); err != nil {
			return fmt.Errorf("append event: %w", err)
		}
	}
	for _, a := range s.Amendments {
		if err := h.Store.AppendAmendment(ctx, a); err != nil {
			return fmt.Errorf("append amendment: %w", err)
		}
	}
	return nil
}
