// Package api provides the HTTP handlers of the ranking server and its
// standard JSON error envelope.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/onnwee/skyrank/internal/catalog"
	"github.com/onnwee/skyrank/internal/fusion"
	"github.com/onnwee/skyrank/internal/middleware"
	"github.com/onnwee/skyrank/internal/pipeline"
)

// maxRequestBytes bounds ranking and interaction request bodies.
const maxRequestBytes = 1 << 20

// MaxTopN is the largest per-category cut a client may ask for.
const MaxTopN = 50

// Ranker runs one ranking request.
type Ranker interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// RankingRequest is the body of POST /v1/rankings and the first message of
// a ranking stream.
type RankingRequest struct {
	Observer catalog.Observer `json:"observer"`
	// Layers selects the optional stages; omitted means all of them.
	Layers *pipeline.Layers `json:"layers,omitempty"`
	// Interactions override the stored engagement data when present.
	Interactions []catalog.InteractionRecord `json:"interactions,omitempty"`
	Matrix       *catalog.PreferenceVector   `json:"matrix,omitempty"`
	Learned      *catalog.PreferenceVector   `json:"learned,omitempty"`
	TopN         int                         `json:"top_n,omitempty"`
	Seed         int64                       `json:"seed,omitempty"`
}

// RankingHandlersConfig configures the ranking handlers.
type RankingHandlersConfig struct {
	Ranker  Ranker
	Catalog *catalog.Holder
	// Interactions feeds the trend layer when a request carries none. Optional.
	Interactions catalog.InteractionStore
	// DefaultSeed replaces a zero request seed. Zero keeps the pipeline's own
	// default.
	DefaultSeed int64
	Logger      *slog.Logger
}

// RankingHandlers serves the ranking endpoints.
type RankingHandlers struct {
	ranker       Ranker
	catalog      *catalog.Holder
	interactions catalog.InteractionStore
	defaultSeed  int64
	logger       *slog.Logger
}

// NewRankingHandlers creates the ranking handlers.
func NewRankingHandlers(cfg RankingHandlersConfig) *RankingHandlers {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &RankingHandlers{
		ranker:       cfg.Ranker,
		catalog:      cfg.Catalog,
		interactions: cfg.Interactions,
		defaultSeed:  cfg.DefaultSeed,
		logger:       cfg.Logger,
	}
}

// requestError is a client error detected while building a pipeline request.
type requestError struct {
	code    string
	message string
}

func (e *requestError) Error() string { return e.message }

func decodeRankingRequest(r io.Reader) (RankingRequest, error) {
	var req RankingRequest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, &requestError{ErrCodeBadRequest, "Invalid JSON in request body"}
	}
	return req, nil
}

// build turns a decoded request into a pipeline request. The authenticated
// user, when present, replaces the observer's user id.
func (h *RankingHandlers) build(ctx context.Context, req RankingRequest) (pipeline.Request, error) {
	if req.TopN < 0 || req.TopN > MaxTopN {
		return pipeline.Request{}, &requestError{ErrCodeValidation,
			fmt.Sprintf("top_n must be between 0 and %d", MaxTopN)}
	}
	if err := req.Observer.Validate(); err != nil {
		return pipeline.Request{}, &requestError{ErrCodeValidation, err.Error()}
	}

	cat := h.catalog.Get()
	if cat.Empty() {
		return pipeline.Request{}, &requestError{ErrCodeUnavailable, "No catalog loaded"}
	}

	observer := req.Observer
	if id := middleware.GetUserID(ctx); id != "" {
		observer.UserID = id
	}

	layers := pipeline.AllLayers()
	if req.Layers != nil {
		layers = *req.Layers
	}

	interactions := req.Interactions
	if interactions == nil && layers.Trend && h.interactions != nil {
		stored, err := catalog.LoadAllInteractions(ctx, h.interactions)
		if err != nil {
			// The trend layer degrades to no boost rather than failing the run.
			h.logger.WarnContext(ctx, "failed to load interactions, trend layer will not boost", "error", err)
		}
		interactions = stored
	}

	seed := req.Seed
	if seed == 0 {
		seed = h.defaultSeed
	}

	return pipeline.Request{
		Catalog:      cat,
		Observer:     observer,
		Interactions: interactions,
		Matrix:       req.Matrix,
		Learned:      req.Learned,
		Layers:       layers,
		TopN:         req.TopN,
		Seed:         seed,
	}, nil
}

// classifyRunError maps a pipeline error to an HTTP status and error code.
func classifyRunError(err error) (int, string, string) {
	code, message := ErrCodeInternal, "Ranking failed"
	var re *requestError
	switch {
	case errors.As(err, &re):
		code, message = re.code, re.message
	case errors.Is(err, pipeline.ErrInvalidRequest):
		code, message = ErrCodeValidation, err.Error()
	case errors.Is(err, pipeline.ErrNoCatalog):
		code, message = ErrCodeUnavailable, "No catalog loaded"
	}
	return StatusCodeMapping(code), code, message
}

// run builds and executes one ranking request.
func (h *RankingHandlers) run(ctx context.Context, req RankingRequest, progress fusion.ProgressFunc) (*pipeline.Result, error) {
	preq, err := h.build(ctx, req)
	if err != nil {
		return nil, err
	}
	preq.Progress = progress
	return h.ranker.Run(ctx, preq)
}

// Rank handles POST /v1/rankings.
func (h *RankingHandlers) Rank(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	ctx := r.Context()

	req, err := decodeRankingRequest(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		h.writeRunError(w, ctx, err)
		return
	}
	res, err := h.run(ctx, req, nil)
	if err != nil {
		h.writeRunError(w, ctx, err)
		return
	}
	WriteJSON(w, ctx, http.StatusOK, res)
}

func (h *RankingHandlers) writeRunError(w http.ResponseWriter, ctx context.Context, err error) {
	if errors.Is(err, context.Canceled) {
		h.logger.InfoContext(ctx, "ranking request cancelled by client")
		return
	}
	status, code, message := classifyRunError(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "ranking failed", "error", err)
	}
	WriteError(w, ctx, status, code, message)
}
