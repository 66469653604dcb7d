package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/korjavin/dricalc/internal/calc"
	"github.com/korjavin/dricalc/internal/export"
	"github.com/korjavin/dricalc/internal/intake"
	"github.com/korjavin/dricalc/internal/metrics"
	"github.com/korjavin/dricalc/internal/middleware"
	"github.com/korjavin/dricalc/internal/store"
	"github.com/korjavin/dricalc/internal/visits"
)

const maxBodyBytes = 1 << 20

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	Calc     *calc.Calculator
	Store    *store.Store // suggestions; may be nil
	Manifest *store.Manifest
	Visits   *visits.Tracker

	MatchHist     *metrics.Histogram
	CalculateHist *metrics.Histogram
	ExportHist    *metrics.Histogram
	SuggestHist   *metrics.Histogram
}

type matchRequest struct {
	Text string `json:"text"`
}

type entryResponse struct {
	Name        string   `json:"name"`
	Grams       float64  `json:"grams"`
	Candidates  []string `json:"candidates"`
	Suggestions []string `json:"suggestions,omitempty"`
}

type matchResponse struct {
	Entries      []entryResponse `json:"entries"`
	DroppedLines int             `json:"dropped_lines"`
}

type calculateRequest struct {
	Text      string   `json:"text"`
	Choices   []string `json:"choices"`
	Nutrients []string `json:"nutrients"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Health returns a liveness check with dataset and manifest metadata.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ds := h.Calc.Dataset()
	resp := map[string]any{
		"status":  "ok",
		"records": ds.Len(),
		"sources": ds.Sources(),
	}
	if h.Manifest != nil {
		resp["schema_version"] = h.Manifest.SchemaVersion
		resp["build_time"] = h.Manifest.BuildTime
	}
	writeJSON(w, http.StatusOK, resp)
}

// Metrics serves latency histogram snapshots.
func (h *Handler) Metrics(reg *metrics.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil {
			writeJSON(w, http.StatusOK, map[string]any{})
			return
		}
		writeJSON(w, http.StatusOK, reg.Snapshot())
	}
}

// Nutrients lists the nutrient columns a calculation can request.
func (h *Handler) Nutrients(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"nutrients": h.Calc.Nutrients()})
}

// Match is the first phase: parse the text and list candidates per entry.
// Entries without candidates get name suggestions when an index is available.
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	defer h.MatchHist.Since(time.Now())

	var req matchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.Calc.Prepare(req.Text)
	if err != nil {
		writeCalcError(w, err)
		return
	}

	resp := matchResponse{Entries: make([]entryResponse, len(p.Entries)), DroppedLines: p.Dropped}
	for i, c := range p.Entries {
		e := entryResponse{Name: c.Entry.Name, Grams: c.Entry.Grams, Candidates: c.Samples}
		if e.Candidates == nil {
			e.Candidates = []string{}
		}
		if len(c.Samples) == 0 && h.Store != nil {
			sugg, err := h.Store.Suggest(c.Entry.Name, 5)
			if err != nil {
				slog.Warn("suggest failed", "name", c.Entry.Name, "error", err)
			}
			e.Suggestions = sugg
		}
		resp.Entries[i] = e
	}
	slog.Info("match request",
		"session", middleware.SessionID(r.Context()),
		"entries", len(resp.Entries),
		"dropped_lines", p.Dropped,
	)
	writeJSON(w, http.StatusOK, resp)
}

// Calculate is the second phase: apply choices and return the result table.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	defer h.CalculateHist.Since(time.Now())

	tbl, ok := h.calculate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, tbl)
}

// Export runs the second phase and returns the table as a workbook download.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	defer h.ExportHist.Since(time.Now())

	tbl, ok := h.calculate(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, tbl); err != nil {
		slog.Error("export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition(export.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("failed to write export", "error", err)
	}
}

func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) (*calc.Table, bool) {
	var req calculateRequest
	if !decodeJSON(w, r, &req) {
		return nil, false
	}
	tbl, err := h.Calc.Calculate(req.Text, req.Choices, req.Nutrients)
	if err != nil {
		writeCalcError(w, err)
		return nil, false
	}
	slog.Info("calculate request",
		"session", middleware.SessionID(r.Context()),
		"rows", len(tbl.Entries()),
		"nutrients", len(tbl.Nutrients),
	)
	return tbl, true
}

// Suggest returns sample names close to q.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	defer h.SuggestHist.Since(time.Now())

	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter 'q'")
		return
	}
	limit := 5
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if n, err := strconv.Atoi(ls); err == nil && n > 0 {
			limit = n
		}
	}
	if h.Store == nil {
		writeJSON(w, http.StatusOK, map[string]any{"results": []string{}})
		return
	}

	names, err := h.Store.Suggest(q, limit)
	if err != nil {
		slog.Error("suggest failed", "query", q, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": names})
}

// VisitsTotal reports the visitor total; null when the counter is unreachable.
func (h *Handler) VisitsTotal(w http.ResponseWriter, r *http.Request) {
	var total *int64
	if h.Visits != nil {
		if n, ok := h.Visits.Total(r.Context()); ok {
			total = &n
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": total})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeCalcError maps user-correctable failures to 4xx so the client can
// resubmit; anything else is a server error.
func writeCalcError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, intake.ErrNoEntries), errors.Is(err, calc.ErrNoUsableEntries):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, calc.ErrSelectionMissing), errors.Is(err, calc.ErrUnknownChoice):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("calculation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// contentDisposition builds an attachment header with an ASCII fallback and
// the UTF-8 file name per RFC 6266.
func contentDisposition(name string) string {
	return `attachment; filename="result.xlsx"; filename*=UTF-8''` + url.PathEscape(name)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
