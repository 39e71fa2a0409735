package triage

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/mediguide-ai/triage/pkg/common/logger"
	"github.com/mediguide-ai/triage/pkg/common/models"
	"github.com/mediguide-ai/triage/pkg/history"
	"github.com/mediguide-ai/triage/pkg/knowledge"
	"github.com/mediguide-ai/triage/pkg/observability/metrics"
	"github.com/mediguide-ai/triage/pkg/pipeline"
)

type Handler struct {
	pipeline *pipeline.Pipeline
	store    *knowledge.Store
	repo     *history.Repository
}

// NewHandler wires the query pipeline and the read-side endpoints. repo may
// be nil when no database is configured; the history/stats endpoints then
// answer empty.
func NewHandler(p *pipeline.Pipeline, store *knowledge.Store, repo *history.Repository) *Handler {
	return &Handler{pipeline: p, store: store, repo: repo}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/v1/medical/query", h.handleQuery).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/history", h.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/stats", h.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/diseases", h.handleListDiseases).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/diseases/{id}", h.handleGetDisease).Methods(http.MethodGet)
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", metrics.Handler()).Methods(http.MethodGet)
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.QueryResult{
			Status:       models.StatusError,
			Urgency:      models.UrgencyUnknown,
			ErrorMessage: "请求数据格式错误",
		})
		return
	}

	result, err := h.pipeline.Process(r.Context(), req)
	if err != nil {
		if models.IsValidationError(err) {
			writeJSON(w, http.StatusBadRequest, models.QueryResult{
				Status:       models.StatusError,
				Urgency:      models.UrgencyUnknown,
				ErrorMessage: err.Error(),
			})
			return
		}
		logger.Log.WithError(err).Error("Query processing failed")
		writeJSON(w, http.StatusInternalServerError, models.QueryResult{
			Status:       models.StatusError,
			Urgency:      models.UrgencyUnknown,
			ErrorMessage: "服务器内部错误",
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusOK, history.Page{Page: 1, PageSize: 20, Items: []history.QueryRecord{}})
		return
	}
	page := parseIntQuery(r, "page", 1)
	pageSize := parseIntQuery(r, "page_size", 20)

	result, err := h.repo.List(r.Context(), page, pageSize)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to list query history")
		http.Error(w, "failed to list history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusOK, history.Aggregate(nil))
		return
	}
	outcomes, err := h.repo.RecentOutcomes(r.Context(), 1000)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to load outcomes for stats")
		http.Error(w, "failed to compute stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, history.Aggregate(outcomes))
}

func (h *Handler) handleListDiseases(w http.ResponseWriter, r *http.Request) {
	if urgency := r.URL.Query().Get("urgency"); urgency != "" {
		views := h.store.DiseasesByUrgency(models.ParseUrgency(urgency))
		writeJSON(w, http.StatusOK, map[string]interface{}{"items": views})
		return
	}
	if symptom := r.URL.Query().Get("symptom"); symptom != "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"items": h.store.SearchBySymptom(symptom)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": h.store.AllViews()})
}

func (h *Handler) handleGetDisease(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	view, ok := h.store.View(id)
	if !ok {
		http.Error(w, "disease not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"disease": view})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"triage-service"}`))
}

func parseIntQuery(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
