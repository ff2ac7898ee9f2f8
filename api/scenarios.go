/*
scenarios.go - Sample datasets for demonstrations

PURPOSE:
  Provides pre-built datasets that populate an empty tracker with realistic
  records, so the render and dashboard feeds have something to show. Each
  scenario belongs to one schema; only those matching the active schema
  are listed or loadable.

AVAILABLE SCENARIOS:
  leads-week:        Five leads across the common statuses
  income-month:      Invoices across individual, bulk and commercial work
  payroll-month:     One month of salaries, one still pending
  contractor-month:  Contractor payouts with TDS deposited and pending

HOW SCENARIOS WORK:
 1. Refuse if the tracker already holds records (409)
 2. Build the raw records, dated relative to the handler clock
 3. Insert them one by one through the engine, so every record is
    validated, derived, classified and journaled like any other

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "leads-week"}

SEE ALSO:
  - leads/lead.go: Samples
  - mis/samples.go: IncomeSamples, PayrollSamples, ContractorSamples
*/
package api

import (
	"net/http"
	"time"

	"github.com/warp/tally/engine"
	"github.com/warp/tally/leads"
	"github.com/warp/tally/logging"
	"github.com/warp/tally/mis"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// Scenario is a named sample dataset for one schema.
type Scenario struct {
	ID          string
	Name        string
	Description string
	Schema      string
	Records     func(now time.Time) []engine.RawRecord
}

var scenarios = []Scenario{
	{
		ID:          "leads-week",
		Name:        "A Week of Leads",
		Description: "Five home-services leads: pending, confirmed, scheduled, completed and cancelled",
		Schema:      "leads",
		Records:     leadSamples,
	},
	{
		ID:          "income-month",
		Name:        "Income Month",
		Description: "Invoices with 18% GST, one commercial invoice still outstanding",
		Schema:      "income",
		Records:     mis.IncomeSamples,
	},
	{
		ID:          "payroll-month",
		Name:        "Payroll Month",
		Description: "Salaries for three employees with PF and ESI, one pending",
		Schema:      "payroll",
		Records:     mis.PayrollSamples,
	},
	{
		ID:          "contractor-month",
		Name:        "Contractor Payouts",
		Description: "Contractor payments with TDS deposited, pending and on hold",
		Schema:      "contractor",
		Records:     mis.ContractorSamples,
	},
}

func leadSamples(now time.Time) []engine.RawRecord {
	samples := leads.Samples(now)
	out := make([]engine.RawRecord, len(samples))
	for i, l := range samples {
		out[i] = l.Raw()
	}
	return out
}

// ScenariosFor returns the scenarios defined for the named schema.
func ScenariosFor(schema string) []Scenario {
	var out []Scenario
	for _, s := range scenarios {
		if s.Schema == schema {
			out = append(out, s)
		}
	}
	return out
}

func findScenario(schema, id string) (Scenario, bool) {
	for _, s := range ScenariosFor(schema) {
		if s.ID == id {
			return s, true
		}
	}
	return Scenario{}, false
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns the scenarios loadable into the active schema.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	dtos := []ScenarioDTO{}
	for _, s := range ScenariosFor(h.Engine.Schema().Name()) {
		dtos = append(dtos, ScenarioDTO{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Records:     len(s.Records(now)),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LoadScenario inserts a scenario's records into an empty tracker.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}

	s, ok := findScenario(h.Engine.Schema().Name(), req.ScenarioID)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario: "+req.ScenarioID, nil)
		return
	}
	if n := h.Engine.Len(); n > 0 {
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "Tracker already has records",
			Code:    "not_empty",
			Details: map[string]int{"records": n},
		})
		return
	}

	logger := logging.FromContext(r.Context())
	loaded := make([]RecordDTO, 0)
	for _, raw := range s.Records(h.now()) {
		rec, err := h.Engine.Insert(r.Context(), raw)
		if err != nil {
			logger.Error("scenario record rejected",
				zap.String("scenario", s.ID),
				zap.Int("loaded", len(loaded)),
				zap.Error(err),
			)
			h.writeEngineError(w, r, err)
			return
		}
		loaded = append(loaded, h.toRecordDTO(rec))
	}

	logger.Info("scenario loaded", zap.String("scenario", s.ID), zap.Int("records", len(loaded)))
	writeJSON(w, http.StatusCreated, ListRecordsResponse{Records: loaded, Count: len(loaded)})
}
