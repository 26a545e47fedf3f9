// Package api provides the HTTP handlers of the ranking server and its
// standard JSON error envelope.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/onnwee/skyrank/internal/catalog"
)

// CatalogHandlers serves catalog metadata and engagement recording.
type CatalogHandlers struct {
	catalog *catalog.Holder
	// interactions is nil when no store is configured.
	interactions catalog.InteractionRecorder
}

// NewCatalogHandlers creates the catalog handlers. recorder may be nil.
func NewCatalogHandlers(holder *catalog.Holder, recorder catalog.InteractionRecorder) *CatalogHandlers {
	return &CatalogHandlers{catalog: holder, interactions: recorder}
}

// CatalogResponse describes the catalog currently served.
type CatalogResponse struct {
	Source   string                   `json:"source"`
	LoadedAt time.Time                `json:"loaded_at"`
	Counts   map[catalog.Category]int `json:"counts"`
	// Objects is included with ?objects=true.
	Objects *catalog.Catalog `json:"objects,omitempty"`
}

// Catalog handles GET /v1/catalog.
func (h *CatalogHandlers) Catalog(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	c := h.catalog.Get()
	if c.Empty() {
		WriteError(w, r.Context(), http.StatusServiceUnavailable, ErrCodeUnavailable, "No catalog loaded")
		return
	}

	source, loadedAt := h.catalog.Info()
	resp := CatalogResponse{
		Source:   source,
		LoadedAt: loadedAt.UTC(),
		Counts:   c.Counts(),
	}
	if r.URL.Query().Get("objects") == "true" {
		resp.Objects = c
	}
	WriteJSON(w, r.Context(), http.StatusOK, resp)
}

// InteractionRequest records engagement with one object.
type InteractionRequest struct {
	Category      string  `json:"category"`
	ObjectID      int     `json:"object_id"`
	Views         float64 `json:"views"`
	Clicks        float64 `json:"clicks"`
	Favorites     float64 `json:"favorites"`
	TrendingScore float64 `json:"trending_score"`
}

func (req InteractionRequest) record() (catalog.InteractionRecord, error) {
	category, err := catalog.ParseCategory(req.Category)
	if err != nil {
		return catalog.InteractionRecord{}, err
	}
	var errs []error
	if req.Views < 0 || req.Clicks < 0 || req.Favorites < 0 {
		errs = append(errs, errors.New("counts must not be negative"))
	}
	if req.Views+req.Clicks+req.Favorites == 0 {
		errs = append(errs, errors.New("at least one of views, clicks or favorites is required"))
	}
	if req.TrendingScore < 0 || req.TrendingScore > 100 {
		errs = append(errs, fmt.Errorf("trending_score %.2f must be between 0 and 100", req.TrendingScore))
	}
	if err := errors.Join(errs...); err != nil {
		return catalog.InteractionRecord{}, err
	}
	return catalog.InteractionRecord{
		Category:      category,
		ObjectID:      req.ObjectID,
		Views:         req.Views,
		Clicks:        req.Clicks,
		Favorites:     req.Favorites,
		TrendingScore: req.TrendingScore,
	}, nil
}

// Interactions handles GET and POST /v1/interactions. GET returns the
// aggregates for ?category=; POST records one engagement row.
func (h *CatalogHandlers) Interactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
		return
	}
	if h.interactions == nil {
		WriteError(w, ctx, http.StatusServiceUnavailable, ErrCodeUnavailable, "Interaction store is not configured")
		return
	}

	if r.Method == http.MethodGet {
		category, err := catalog.ParseCategory(r.URL.Query().Get("category"))
		if err != nil {
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		records, err := h.interactions.Interactions(ctx, category)
		if err != nil {
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load interactions")
			return
		}
		WriteJSON(w, ctx, http.StatusOK, map[string]any{"category": category, "interactions": records})
		return
	}

	var req InteractionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	rec, err := req.record()
	if err != nil {
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}
	if !h.catalog.Get().Has(rec.Category, rec.ObjectID) {
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound,
			fmt.Sprintf("No %s with id %d in the catalog", rec.Category, rec.ObjectID))
		return
	}
	if err := h.interactions.Record(ctx, rec); err != nil {
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to record interaction")
		return
	}
	WriteJSON(w, ctx, http.StatusAccepted, map[string]string{"status": "recorded"})
}
