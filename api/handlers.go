/*
handlers.go - HTTP API handlers for the tax position service

PURPOSE:
  Exposes the tax engine via REST API. Handles HTTP request/response, JSON
  serialization, shape validation, and delegates the one real computation to
  tax.Position.

ENDPOINTS:
  POST   /api/transactions       Ingest a financial event (sale or payment)
  PATCH  /api/sale               Amend one sale line item
  GET    /api/tax-position       Net tax owed as of ?date=
  GET    /api/transactions       List recorded events (?until=)
  GET    /api/amendments         List recorded amendments (?until=)
  GET    /api/scenarios          List seed datasets
  GET    /api/scenarios/current  Currently loaded seed dataset
  POST   /api/scenarios/load     Load a seed dataset
  POST   /api/reset              Clear all data (dev only)

REQUEST FLOW:
  1. Parse HTTP request
  2. Shape-check input (presence + date parse ONLY - numeric ranges are the
     calculator's job)
  3. Call store / calculator
  4. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Missing fields, unparsable dates, unknown event type
  - 500: Store failures, and semantic invalidity surfaced by the
         calculator (negative cost, out-of-range rate, negative payment)
  Writes that succeed return 202: the record is accepted into the log, its
  values are only judged when a position query reaches them.

SEE ALSO:
  - dto.go: Request/response data structures
  - seed.go: Seed dataset loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/warp/tax-engine/tax"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store tax.Store
	Log   *slog.Logger

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store tax.Store, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{Store: store, Log: log}
}

// =============================================================================
// INGESTION HANDLERS
// =============================================================================

// IngestTransaction accepts a financial event for the append-only log.
// POST /api/transactions
func (h *Handler) IngestTransaction(w http.ResponseWriter, r *http.Request) {
	var req IngestEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.EventType == "" || req.Date == "" {
		h.Log.Error("invalid transaction payload", "eventType", req.EventType)
		writeError(w, http.StatusBadRequest, "Invalid transaction payload", nil)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		h.Log.Error("invalid transaction date", "date", req.Date)
		writeError(w, http.StatusBadRequest, "Invalid date format. Must be ISO 8601", err)
		return
	}

	ev := tax.Event{Type: tax.EventType(req.EventType), Date: date}

	switch ev.Type {
	case tax.EventSale:
		if req.InvoiceID == "" || req.Items == nil {
			h.Log.Error("invalid sales event payload", "invoiceId", req.InvoiceID)
			writeError(w, http.StatusBadRequest, "Invalid sales event payload", nil)
			return
		}
		ev.InvoiceID = req.InvoiceID
		ev.Items = make([]tax.LineItem, len(req.Items))
		for i, item := range req.Items {
			ev.Items[i] = tax.LineItem(item)
		}
	case tax.EventTaxPayment:
		if req.Amount == nil {
			h.Log.Error("invalid tax payment event payload")
			writeError(w, http.StatusBadRequest, "Invalid tax payment event payload", nil)
			return
		}
		ev.Amount = *req.Amount
	default:
		h.Log.Error("unknown event type", "eventType", req.EventType)
		writeError(w, http.StatusBadRequest, "Unknown event type", nil)
		return
	}

	if err := h.Store.AppendEvent(r.Context(), ev); err != nil {
		h.Log.Error("failed to store transaction", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	h.Log.Info("transaction ingested", "eventType", ev.Type, "date", req.Date)
	w.WriteHeader(http.StatusAccepted)
}

// AmendSale accepts a retroactive correction to one sale line item.
// PATCH /api/sale
func (h *Handler) AmendSale(w http.ResponseWriter, r *http.Request) {
	var req AmendSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Date == "" || req.InvoiceID == "" || req.ItemID == "" ||
		req.Cost == nil || req.TaxRate == nil {
		h.Log.Error("invalid amendment payload", "invoiceId", req.InvoiceID, "itemId", req.ItemID)
		writeError(w, http.StatusBadRequest, "Invalid amendment payload", nil)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		h.Log.Error("invalid amendment date", "date", req.Date)
		writeError(w, http.StatusBadRequest, "Invalid date format. Must be ISO 8601", err)
		return
	}

	amendment := tax.Amendment{
		Date:      date,
		InvoiceID: req.InvoiceID,
		ItemID:    req.ItemID,
		Cost:      *req.Cost,
		TaxRate:   *req.TaxRate,
	}

	if err := h.Store.AppendAmendment(r.Context(), amendment); err != nil {
		h.Log.Error("failed to store amendment", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	h.Log.Info("sale amended", "invoiceId", amendment.InvoiceID, "itemId", amendment.ItemID)
	w.WriteHeader(http.StatusAccepted)
}

// =============================================================================
// QUERY HANDLERS
// =============================================================================

// GetTaxPosition computes the net tax owed as of the cutoff date.
// GET /api/tax-position?date=2024-02-22T17:29:39Z
func (h *Handler) GetTaxPosition(w http.ResponseWriter, r *http.Request) {
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		h.Log.Error("missing date parameter")
		writeError(w, http.StatusBadRequest, "Date parameter is required", nil)
		return
	}

	cutoff, err := parseDate(dateStr)
	if err != nil {
		h.Log.Error("invalid date format", "date", dateStr)
		writeError(w, http.StatusBadRequest, "Invalid date format. Must be ISO 8601", err)
		return
	}

	ctx := r.Context()

	events, err := h.Store.EventsBeforeOrOn(ctx, cutoff)
	if err != nil {
		h.Log.Error("failed to load events", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	amendments, err := h.Store.AmendmentsBeforeOrOn(ctx, cutoff)
	if err != nil {
		h.Log.Error("failed to load amendments", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	position, err := tax.Position(events, amendments)
	if err != nil {
		// Semantic invalidity in stored data. Not the client's doing, and
		// there is no partial result to offer.
		h.Log.Error("failed to calculate tax position", "date", dateStr, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	h.Log.Info("tax position calculated", "date", dateStr, "taxPosition", position)
	writeJSON(w, http.StatusOK, TaxPositionDTO{Date: dateStr, TaxPosition: position})
}

// ListTransactions returns recorded events up to ?until= (default: now).
// GET /api/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	until, err := parseUntil(r.URL.Query().Get("until"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format. Must be ISO 8601", err)
		return
	}

	events, err := h.Store.EventsBeforeOrOn(r.Context(), until)
	if err != nil {
		h.Log.Error("failed to list transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	dtos := make([]EventDTO, len(events))
	for i, ev := range events {
		dtos[i] = toEventDTO(ev)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListAmendments returns recorded amendments up to ?until= (default: now).
// GET /api/amendments
func (h *Handler) ListAmendments(w http.ResponseWriter, r *http.Request) {
	until, err := parseUntil(r.URL.Query().Get("until"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format. Must be ISO 8601", err)
		return
	}

	amendments, err := h.Store.AmendmentsBeforeOrOn(r.Context(), until)
	if err != nil {
		h.Log.Error("failed to list amendments", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	dtos := make([]AmendmentDTO, len(amendments))
	for i, a := range amendments {
		dtos[i] = toAmendmentDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ResetDatabase clears all data.
// POST /api/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

var dateFormats = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

// parseDate accepts ISO 8601 timestamps, with or without fractional seconds,
// and plain dates.
func parseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range dateFormats {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

func parseUntil(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	return parseDate(s)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
