/*
handlers.go - HTTP API handlers for the tracker

PURPOSE:
  Exposes one EngineContext over REST. Handles HTTP request/response and
  JSON serialization; all validation of cell content, derivation and
  aggregation is delegated to the engine.

ENDPOINTS:
  Schema:
    GET    /api/schema                 Fields, slot groups, derivation order

  Records (render feed):
    GET    /api/records                All records in insertion order (?tag=)
    POST   /api/records                Insert a record
    GET    /api/records/{ref}          One record by key (ST-0001) or seq
    PATCH  /api/records/{ref}          Partial update

  Dashboard (dashboard feed):
    GET    /api/dashboard              Snapshot (?from=YYYY-MM-DD&to=YYYY-MM-DD)
    POST   /api/aggregate              Ad-hoc grouped table

  Scenarios:
    GET    /api/scenarios              Sample datasets for the active schema
    POST   /api/scenarios/load         Load one into an empty tracker

  Health:
    GET    /healthz

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body, invalid date range, invalid aggregation
  - 404: Record not found
  - 409: Capacity reached, transition rejected, scenario into a non-empty tracker
  - 422: Validation feed (engine.ValidationError: kind, field, record)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Sample data loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/warp/tally/engine"
	"github.com/warp/tally/factory"
	"github.com/warp/tally/logging"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine    *engine.EngineContext
	Dashboard engine.DashboardSpec
	Format    *Formatter
	Clock     func() time.Time

	factory  *factory.Factory
	validate *validator.Validate
}

// NewHandler creates a handler serving ec with the given dashboard.
func NewHandler(ec *engine.EngineContext, dashboard engine.DashboardSpec, format *Formatter) *Handler {
	return &Handler{
		Engine:    ec,
		Dashboard: dashboard,
		Format:    format,
		Clock:     time.Now,
		factory:   factory.NewFactory(),
		validate:  newValidator(),
	}
}

func (h *Handler) now() time.Time {
	if h.Clock == nil {
		return time.Now()
	}
	return h.Clock()
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Use JSON tag names for field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Health reports liveness and the size of the store.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"schema":  h.Engine.Schema().Name(),
		"records": h.Engine.Len(),
	})
}

// =============================================================================
// SCHEMA
// =============================================================================

// GetSchema returns the active schema.
// GET /api/schema
func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSchemaDTO(h.Engine.Schema(), h.Engine.Tags()))
}

// =============================================================================
// RECORD HANDLERS
// =============================================================================

// ListRecords returns every record in insertion order, optionally only
// those with the given tag.
// GET /api/records?tag=Pending
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.Engine.All(r.Context())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	tag := r.URL.Query().Get("tag")
	dtos := make([]RecordDTO, 0, len(records))
	for _, rec := range records {
		if tag != "" && string(rec.Tag) != tag {
			continue
		}
		dtos = append(dtos, h.toRecordDTO(rec))
	}
	writeJSON(w, http.StatusOK, ListRecordsResponse{Records: dtos, Count: len(dtos)})
}

// GetRecord returns a single record by key or sequence number.
// GET /api/records/{ref}
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Engine.Lookup(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toRecordDTO(rec))
}

// CreateRecord inserts a new record.
// POST /api/records
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req CreateRecordRequest
	if !h.decode(w, r, &req) {
		return
	}

	rec, err := h.Engine.Insert(r.Context(), toRawRecord(req.Fields, req.Slots))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("record created", zap.String("key", rec.Key))
	writeJSON(w, http.StatusCreated, h.toRecordDTO(rec))
}

// UpdateRecord applies a partial update.
// PATCH /api/records/{ref}
func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	var req UpdateRecordRequest
	if !h.decode(w, r, &req) {
		return
	}

	rec, err := h.Engine.UpdateByRef(r.Context(), chi.URLParam(r, "ref"), toRawRecord(req.Fields, req.Slots))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("record updated",
		zap.String("key", rec.Key),
		zap.String("tag", string(rec.Tag)),
	)
	writeJSON(w, http.StatusOK, h.toRecordDTO(rec))
}

// =============================================================================
// DASHBOARD HANDLERS
// =============================================================================

// GetDashboard computes the configured dashboard. Without from/to the range
// section is returned unselected.
// GET /api/dashboard?from=2025-03-01&to=2025-03-31
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := engine.NewDateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	dto, err := h.Snapshot(r.Context(), rng)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	if len(dto.CrossCheck) > 0 {
		logging.FromContext(r.Context()).Warn("dashboard cross-check failed",
			zap.Strings("mismatches", dto.CrossCheck))
	}
	writeJSON(w, http.StatusOK, dto)
}

// Snapshot computes the dashboard feed for rng.
func (h *Handler) Snapshot(ctx context.Context, rng engine.DateRange) (SnapshotDTO, error) {
	snap, err := h.Engine.Dashboard(ctx, h.Dashboard, rng)
	if err != nil {
		return SnapshotDTO{}, err
	}
	return h.toSnapshotDTO(snap), nil
}

// Aggregate builds an ad-hoc table, optionally restricted to a date range.
// POST /api/aggregate
func (h *Handler) Aggregate(w http.ResponseWriter, r *http.Request) {
	var req AggregateRequest
	if !h.decode(w, r, &req) {
		return
	}

	spec, err := h.factory.TableFromDoc(req.tableDoc())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	if req.From == "" && req.To == "" {
		t, err := h.Engine.Table(r.Context(), spec)
		if err != nil {
			h.writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"table": toTableDTO(t)})
		return
	}

	rng, err := engine.NewDateRange(req.From, req.To)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	t, selected, err := h.Engine.TableInRange(r.Context(), spec, rng)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"selected": selected,
		"from":     req.From,
		"to":       req.To,
		"table":    toTableDTO(t),
	})
}

// =============================================================================
// CONVERSION
// =============================================================================

func (h *Handler) toRecordDTO(rec engine.Record) RecordDTO {
	schema := h.Engine.Schema()
	dto := RecordDTO{
		Seq:       int64(rec.Seq),
		Key:       rec.Key,
		Tag:       string(rec.Tag),
		Values:    make(map[string]string, len(rec.Values)),
		Display:   make(map[string]string),
		CreatedAt: formatTime(rec.CreatedAt),
		UpdatedAt: formatTime(rec.UpdatedAt),
	}
	for _, f := range schema.Fields() {
		v := rec.Value(f.Name)
		if v.IsBlank() {
			continue
		}
		dto.Values[f.Name] = v.String()
		if v.IsNumber() && h.Format != nil {
			dto.Display[f.Name] = h.Format.Value(f.ValueType(), v)
		}
	}
	for name, entries := range rec.Slots {
		if len(entries) == 0 {
			continue
		}
		if dto.Slots == nil {
			dto.Slots = make(map[string][]SlotDTO)
		}
		for _, e := range entries {
			dto.Slots[name] = append(dto.Slots[name], SlotDTO{Category: e.Category, Value: e.Value.String()})
		}
	}
	for _, warn := range rec.Warnings {
		dto.Warnings = append(dto.Warnings, warn.Error())
	}
	return dto
}

func (h *Handler) toSnapshotDTO(snap engine.Snapshot) SnapshotDTO {
	dto := SnapshotDTO{
		ID:          snap.ID.String(),
		Name:        snap.Name,
		GeneratedAt: formatTime(snap.GeneratedAt),
		RecordCount: snap.RecordCount,
		KPIs:        h.toKPIDTOs(snap.KPIs, h.Dashboard.KPIs),
		Tables:      make([]TableDTO, 0, len(snap.Tables)),
		Range:       RangeDTO{Selected: snap.Range.Selected},
	}
	for _, t := range snap.Tables {
		dto.Tables = append(dto.Tables, toTableDTO(t))
	}
	if snap.Range.Selected {
		dto.Range.From = snap.Range.Range.From.Time.Format(dateLayout)
		dto.Range.To = snap.Range.Range.To.Time.Format(dateLayout)
		dto.Range.KPIs = h.toKPIDTOs(snap.Range.KPIs, h.Dashboard.Range.KPIs)
		for _, t := range snap.Range.Tables {
			dto.Range.Tables = append(dto.Range.Tables, toTableDTO(t))
		}
	}
	for _, err := range snap.CrossCheck() {
		dto.CrossCheck = append(dto.CrossCheck, err.Error())
	}
	return dto
}

// toKPIDTOs formats each KPI by the type of the field it sums; counts are
// plain numbers.
func (h *Handler) toKPIDTOs(kpis []engine.KPI, specs []engine.KPISpec) []KPIDTO {
	types := make(map[string]engine.FieldType, len(specs))
	for _, ks := range specs {
		typ := engine.TypeNumber
		if ks.Acc.Kind != engine.AccCount {
			if f, ok := h.Engine.Schema().Field(ks.Acc.Field); ok {
				typ = f.ValueType()
			}
		}
		types[ks.Name] = typ
	}

	out := make([]KPIDTO, 0, len(kpis))
	for _, k := range kpis {
		dto := KPIDTO{Name: k.Name, Value: k.Value, Display: k.Value.String()}
		if h.Format != nil {
			dto.Display = h.Format.Value(types[k.Name], engine.Number(k.Value))
		}
		out = append(out, dto)
	}
	return out
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make([]ValidationDetail, 0, len(verrs))
			for _, e := range verrs {
				details = append(details, ValidationDetail{Field: e.Field(), Message: validationMessage(e)})
			}
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "Request validation failed",
				Code:    "invalid_request",
				Details: details,
			})
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "required_with", "required_without":
		return "This field is required"
	case "min":
		return "Must have at least " + e.Param() + " entries"
	case "datetime":
		return "Must be a date in " + e.Param() + " format"
	default:
		return "Failed validation: " + e.Tag()
	}
}

// writeEngineError maps engine errors onto HTTP statuses.
func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *engine.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorDTO{
			Kind:    string(verr.Kind),
			Field:   verr.Field,
			Record:  int64(verr.Record),
			Value:   verr.Value,
			Message: verr.Error(),
		})
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Record not found", err)
	case errors.Is(err, engine.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
	case errors.Is(err, engine.ErrInvalidAggregation):
		writeError(w, http.StatusBadRequest, "Invalid aggregation", err)
	case errors.Is(err, engine.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, "Record capacity reached", err)
	case errors.Is(err, engine.ErrTransitionRejected):
		writeError(w, http.StatusConflict, "Status transition rejected", err)
	default:
		logging.FromContext(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
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
