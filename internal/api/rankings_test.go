package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/onnwee/skyrank/internal/catalog"
	"github.com/onnwee/skyrank/internal/middleware"
	"github.com/onnwee/skyrank/internal/pipeline"
	"github.com/onnwee/skyrank/internal/ranking"
)

var observedAt = time.Date(2024, 3, 1, 21, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRanker records the last request and returns a canned result.
type fakeRanker struct {
	mu   sync.Mutex
	got  *pipeline.Request
	res  *pipeline.Result
	err  error
	hook func(ctx context.Context, req pipeline.Request) error
}

func (f *fakeRanker) Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.mu.Lock()
	f.got = &req
	f.mu.Unlock()
	if f.hook != nil {
		if err := f.hook(ctx, req); err != nil {
			return nil, err
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.res != nil {
		return f.res, nil
	}
	return &pipeline.Result{RunID: "run-1", Seed: req.Seed, Layers: req.Layers}, nil
}

func (f *fakeRanker) last() *pipeline.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.got
}

type failingInteractionStore struct{}

func (failingInteractionStore) Interactions(context.Context, catalog.Category) ([]catalog.InteractionRecord, error) {
	return nil, errors.New("connection refused")
}

func newRankingHandlers(ranker Ranker, holder *catalog.Holder, store catalog.InteractionStore) *RankingHandlers {
	return NewRankingHandlers(RankingHandlersConfig{
		Ranker:       ranker,
		Catalog:      holder,
		Interactions: store,
		Logger:       quietLogger(),
	})
}

func sampleBody(t *testing.T, mutate func(map[string]any)) string {
	t.Helper()
	body := map[string]any{
		"observer": catalog.SampleObserver(observedAt),
		"seed":     7,
	}
	if mutate != nil {
		mutate(body)
	}
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	return string(data)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v, body: %s", err, w.Body.String())
	}
	return resp.Error
}

func TestRank_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		holder     *catalog.Holder
		rankerErr  error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "malformed json",
			body:       `{"observer":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeBadRequest,
		},
		{
			name:       "unknown field",
			body:       `{"observer":{"latitude":10,"longitude":10},"colour":"red"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeBadRequest,
		},
		{
			name:       "top_n too large",
			body:       sampleBody(t, func(b map[string]any) { b["top_n"] = MaxTopN + 1 }),
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "negative top_n",
			body:       sampleBody(t, func(b map[string]any) { b["top_n"] = -1 }),
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "latitude out of range",
			body:       `{"observer":{"latitude":91,"longitude":0}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "no catalog loaded",
			body:       sampleBody(t, nil),
			holder:     catalog.NewHolder(nil, ""),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   ErrCodeUnavailable,
		},
		{
			name:       "pipeline rejects request",
			body:       sampleBody(t, nil),
			rankerErr:  fmt.Errorf("%w: bad observer", pipeline.ErrInvalidRequest),
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "pipeline failure",
			body:       sampleBody(t, nil),
			rankerErr:  errors.New("fusion exploded"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			holder := tt.holder
			if holder == nil {
				holder = catalog.NewHolder(catalog.SampleCatalog(), "static")
			}
			h := newRankingHandlers(&fakeRanker{err: tt.rankerErr}, holder, nil)

			w := httptest.NewRecorder()
			h.Rank(w, httptest.NewRequest(http.MethodPost, "/v1/rankings", strings.NewReader(tt.body)))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if detail := decodeError(t, w); detail.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", detail.Code, tt.wantCode)
			}
			if tt.wantStatus == http.StatusInternalServerError && strings.Contains(w.Body.String(), "exploded") {
				t.Error("internal error details leaked to the client")
			}
		})
	}
}

func TestRank_MethodNotAllowed(t *testing.T) {
	h := newRankingHandlers(&fakeRanker{}, catalog.NewHolder(catalog.SampleCatalog(), "static"), nil)
	w := httptest.NewRecorder()
	h.Rank(w, httptest.NewRequest(http.MethodGet, "/v1/rankings", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
	if w.Header().Get("Allow") != http.MethodPost {
		t.Errorf("Allow = %q, want POST", w.Header().Get("Allow"))
	}
}

func TestRank_BuildsPipelineRequest(t *testing.T) {
	store := catalog.NewInMemoryInteractionStore(catalog.SampleInteractions()...)

	tests := []struct {
		name             string
		mutate           func(map[string]any)
		userID           string
		wantLayers       pipeline.Layers
		wantUserID       string
		wantInteractions int
	}{
		{
			name:             "defaults to all layers and stored interactions",
			wantLayers:       pipeline.AllLayers(),
			wantUserID:       "1",
			wantInteractions: len(catalog.SampleInteractions()),
		},
		{
			name: "explicit layers without trend skip the store",
			mutate: func(b map[string]any) {
				b["layers"] = pipeline.Layers{Matrix: true, Fusion: true}
			},
			wantLayers: pipeline.Layers{Matrix: true, Fusion: true},
			wantUserID: "1",
		},
		{
			name: "request interactions override the store",
			mutate: func(b map[string]any) {
				b["interactions"] = []catalog.InteractionRecord{{Category: catalog.CategoryStar, ObjectID: 1, Views: 3}}
			},
			wantLayers:       pipeline.AllLayers(),
			wantUserID:       "1",
			wantInteractions: 1,
		},
		{
			name:             "authenticated subject replaces observer user id",
			userID:           "observer-42",
			wantLayers:       pipeline.AllLayers(),
			wantUserID:       "observer-42",
			wantInteractions: len(catalog.SampleInteractions()),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranker := &fakeRanker{}
			h := newRankingHandlers(ranker, catalog.NewHolder(catalog.SampleCatalog(), "static"), store)

			req := httptest.NewRequest(http.MethodPost, "/v1/rankings", strings.NewReader(sampleBody(t, tt.mutate)))
			if tt.userID != "" {
				req = req.WithContext(middleware.SetUserID(req.Context(), tt.userID))
			}
			w := httptest.NewRecorder()
			h.Rank(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
			}
			got := ranker.last()
			if got == nil {
				t.Fatal("ranker was not called")
			}
			if got.Layers != tt.wantLayers {
				t.Errorf("Layers = %+v, want %+v", got.Layers, tt.wantLayers)
			}
			if got.Observer.UserID != tt.wantUserID {
				t.Errorf("UserID = %q, want %q", got.Observer.UserID, tt.wantUserID)
			}
			if len(got.Interactions) != tt.wantInteractions {
				t.Errorf("len(Interactions) = %d, want %d", len(got.Interactions), tt.wantInteractions)
			}
			if got.Seed != 7 {
				t.Errorf("Seed = %d, want 7", got.Seed)
			}
			if got.Progress != nil {
				t.Error("POST requests must not report progress")
			}
		})
	}
}

func TestRank_InteractionStoreFailureDegrades(t *testing.T) {
	ranker := &fakeRanker{}
	h := newRankingHandlers(ranker, catalog.NewHolder(catalog.SampleCatalog(), "static"), failingInteractionStore{})

	w := httptest.NewRecorder()
	h.Rank(w, httptest.NewRequest(http.MethodPost, "/v1/rankings", strings.NewReader(sampleBody(t, nil))))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	if got := ranker.last(); len(got.Interactions) != 0 {
		t.Errorf("expected no interactions, got %d", len(got.Interactions))
	}
}

func TestRank_CancelledByClient(t *testing.T) {
	ranker := &fakeRanker{err: context.Canceled}
	h := newRankingHandlers(ranker, catalog.NewHolder(catalog.SampleCatalog(), "static"), nil)

	w := httptest.NewRecorder()
	h.Rank(w, httptest.NewRequest(http.MethodPost, "/v1/rankings", strings.NewReader(sampleBody(t, nil))))

	if w.Body.Len() != 0 {
		t.Errorf("expected no body for a cancelled request, got %s", w.Body.String())
	}
}

func TestRank_Pipeline(t *testing.T) {
	policy := ranking.DefaultPolicy()
	policy.MinAltitude = -90
	policy.Fusion.Population = 20
	policy.Fusion.Generations = 10

	p := pipeline.New(pipeline.Config{Policy: policy, Logger: quietLogger()})
	h := newRankingHandlers(p, catalog.NewHolder(catalog.SampleCatalog(), "static"),
		catalog.NewInMemoryInteractionStore(catalog.SampleInteractions()...))

	body := sampleBody(t, func(b map[string]any) {
		b["matrix"] = catalog.SampleMatrixPreferences()
		b["learned"] = catalog.SampleLearnedPreferences()
		b["top_n"] = 5
	})
	w := httptest.NewRecorder()
	h.Rank(w, httptest.NewRequest(http.MethodPost, "/v1/rankings", strings.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	var res struct {
		RunID      string `json:"run_id"`
		Seed       int64  `json:"seed"`
		Categories []struct {
			Category string            `json:"category"`
			Views    []json.RawMessage `json:"views"`
		} `json:"categories"`
		Combined []json.RawMessage `json:"combined"`
	}
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if res.RunID == "" {
		t.Error("run_id is empty")
	}
	if res.Seed != 7 {
		t.Errorf("seed = %d, want 7", res.Seed)
	}
	if len(res.Categories) == 0 {
		t.Fatal("expected at least one category")
	}
	for _, c := range res.Categories {
		if len(c.Views) > 5 {
			t.Errorf("category %s has %d views, want at most 5", c.Category, len(c.Views))
		}
	}
	if len(res.Combined) == 0 {
		t.Error("combined list is empty")
	}
}

func TestClassifyRunError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"malformed body", &requestError{ErrCodeBadRequest, "Invalid JSON in request body"}, http.StatusBadRequest, ErrCodeBadRequest},
		{"request validation", &requestError{ErrCodeValidation, "top_n"}, http.StatusBadRequest, ErrCodeValidation},
		{"wrapped pipeline validation", fmt.Errorf("stage: %w", pipeline.ErrInvalidRequest), http.StatusBadRequest, ErrCodeValidation},
		{"no catalog", pipeline.ErrNoCatalog, http.StatusServiceUnavailable, ErrCodeUnavailable},
		{"anything else", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, message := classifyRunError(tt.err)
			if status != tt.wantStatus || code != tt.wantCode {
				t.Errorf("classifyRunError() = %d %s, want %d %s", status, code, tt.wantStatus, tt.wantCode)
			}
			if status != StatusCodeMapping(code) {
				t.Errorf("status %d disagrees with StatusCodeMapping(%s) = %d", status, code, StatusCodeMapping(code))
			}
			if message == "" {
				t.Error("empty message")
			}
		})
	}
}
