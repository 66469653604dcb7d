package api

import (
	"net/http"

	"github.com/korjavin/dricalc/internal/auth"
	"github.com/korjavin/dricalc/internal/metrics"
)

// RegisterRoutes registers all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, apiKeys []string, h *Handler, reg *metrics.Registry) {
	if reg != nil {
		h.MatchHist = reg.Register("match", metrics.BucketsMatch)
		h.CalculateHist = reg.Register("calculate", metrics.BucketsCalculate)
		h.ExportHist = reg.Register("export", metrics.BucketsExport)
		h.SuggestHist = reg.Register("suggest", metrics.BucketsSuggest)
	}
	protected := auth.APIKeyMiddleware(apiKeys)

	// Public
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /metrics", h.Metrics(reg))
	mux.HandleFunc("GET /api/v1/visits", h.VisitsTotal)

	// Protected: require X-API-Key header (or api_key query param)
	mux.Handle("GET /api/v1/nutrients", protected(http.HandlerFunc(h.Nutrients)))
	mux.Handle("POST /api/v1/intake/match", protected(http.HandlerFunc(h.Match)))
	mux.Handle("POST /api/v1/intake/calculate", protected(http.HandlerFunc(h.Calculate)))
	mux.Handle("POST /api/v1/intake/export", protected(http.HandlerFunc(h.Export)))
	mux.Handle("GET /api/v1/samples/suggest", protected(http.HandlerFunc(h.Suggest)))
}
