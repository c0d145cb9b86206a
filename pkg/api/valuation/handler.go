package valuation

import (
	"encoding/json"
	"errors"
	"net/http"

	"property_valuation/pkg/core/config"
	"property_valuation/pkg/core/forecast"
	"property_valuation/pkg/core/logging"
	"property_valuation/pkg/core/montecarlo"
	"property_valuation/pkg/core/pipeline"
	"property_valuation/pkg/core/store"
	"property_valuation/pkg/core/validate"
	"property_valuation/pkg/models"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// AnalyzeRequest asks for a Monte Carlo valuation. Forecasts, when present,
// replace the server's forecast provider for this request.
type AnalyzeRequest struct {
	Property        models.Property      `json:"property"`
	Forecasts       []*forecast.Forecast `json:"forecasts,omitempty"`
	NumScenarios    int                  `json:"num_scenarios,omitempty"`
	Seed            int64                `json:"seed,omitempty"`
	UseCorrelations *bool                `json:"use_correlations,omitempty"`
}

// AnalyzeResponse is the batch summary plus the scenario-set statistics.
type AnalyzeResponse struct {
	RunID               string                               `json:"run_id"`
	Summary             *pipeline.BatchSummary               `json:"summary"`
	ParameterStatistics map[string]montecarlo.ParameterStats `json:"parameter_statistics"`
	Extremes            montecarlo.Extremes                  `json:"extreme_scenarios"`
	CorrelationMatrix   [][]float64                          `json:"correlation_matrix"`
}

// BaseCaseRequest asks for the deterministic valuation on point forecasts.
type BaseCaseRequest struct {
	Property  models.Property      `json:"property"`
	Forecasts []*forecast.Forecast `json:"forecasts,omitempty"`
}

// Handler holds dependencies for valuation endpoints
type Handler struct {
	cfg    config.Config
	orch   *pipeline.PipelineOrchestrator
	repo   *pipeline.Repository
	logger *logrus.Logger
}

// NewHandler creates a new valuation handler. repo may be nil.
func NewHandler(cfg config.Config, provider forecast.Provider, repo *pipeline.Repository, logger *logrus.Logger) *Handler {
	logger = logging.OrDiscard(logger)
	h := &Handler{cfg: cfg, repo: repo, logger: logger}
	h.orch = h.newOrchestrator(provider)
	return h
}

func (h *Handler) newOrchestrator(provider forecast.Provider) *pipeline.PipelineOrchestrator {
	orch := pipeline.NewPipelineOrchestrator(h.cfg, provider, h.logger)
	if h.repo != nil {
		orch.SetRepository(h.repo)
	}
	return orch
}

// orchestratorFor uses request-supplied forecasts when there are any.
func (h *Handler) orchestratorFor(forecasts []*forecast.Forecast) *pipeline.PipelineOrchestrator {
	if len(forecasts) == 0 {
		return h.orch
	}
	return h.newOrchestrator(forecast.NewStaticProvider(forecasts...))
}

// RegisterRoutes mounts the valuation endpoints.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.Use(corsMiddleware)
	router.HandleFunc("/healthz", h.HandleHealth).Methods("GET")
	api := router.PathPrefix("/api/valuation").Subrouter()
	api.HandleFunc("/analyze", h.HandleAnalyze).Methods("POST", "OPTIONS")
	api.HandleFunc("/base-case", h.HandleBaseCase).Methods("POST", "OPTIONS")
	api.HandleFunc("/runs/{id}", h.HandleGetRun).Methods("GET")
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleAnalyze runs a Monte Carlo valuation.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	log := h.logger.WithFields(logrus.Fields{
		"property_id":   req.Property.ID,
		"msa":           req.Property.MSACode,
		"num_scenarios": req.NumScenarios,
	})
	log.Info("Analyze request")

	res, err := h.orchestratorFor(req.Forecasts).Analyze(r.Context(), &req.Property, pipeline.AnalyzeOptions{
		NumScenarios:    req.NumScenarios,
		Seed:            req.Seed,
		UseCorrelations: req.UseCorrelations,
	})
	if err != nil {
		h.writeError(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{
		RunID:               res.Batch.RunID,
		Summary:             res.Batch.Summary,
		ParameterStatistics: res.Results.Statistics,
		Extremes:            res.Results.Extremes,
		CorrelationMatrix:   res.Results.CorrelationMatrix,
	})
}

// HandleBaseCase values the property on its point forecasts.
func (h *Handler) HandleBaseCase(w http.ResponseWriter, r *http.Request) {
	var req BaseCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	log := h.logger.WithField("property_id", req.Property.ID)

	ev, err := h.orchestratorFor(req.Forecasts).EvaluateBaseCase(r.Context(), &req.Property)
	if err != nil {
		h.writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// HandleGetRun returns a stored batch summary.
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if h.repo == nil {
		http.Error(w, "Persistence is not configured", http.StatusNotFound)
		return
	}
	summary, err := h.repo.LoadSummary(r.Context(), id)
	if err != nil {
		h.writeError(w, h.logger.WithField("run_id", id), err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) writeError(w http.ResponseWriter, log *logrus.Entry, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case validate.IsValidationError(err):
		status = http.StatusBadRequest
	case errors.Is(err, forecast.ErrMissingParameter), errors.Is(err, forecast.ErrNotFound),
		errors.Is(err, montecarlo.ErrInvalidArgument), errors.Is(err, pipeline.ErrBatchFailed):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("Valuation request failed")
	} else {
		log.WithError(err).Warn("Valuation request rejected")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
