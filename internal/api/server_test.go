package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-dslr-studio/internal/photoshoot"
	"ai-dslr-studio/internal/portfolio"
)

type stubGenerator struct {
	in    photoshoot.Input
	mode  photoshoot.Mode
	calls int
	err   error
}

func (g *stubGenerator) Generate(ctx context.Context, in photoshoot.Input, mode photoshoot.Mode, opts ...photoshoot.GenerateOption) ([]photoshoot.Shot, error) {
	g.calls++
	g.in, g.mode = in, mode
	if g.err != nil {
		return nil, g.err
	}
	out := photoshoot.NewImage([]byte("out"), "image/png")
	var shots []photoshoot.Shot
	for _, style := range mode.Styles() {
		for _, shot := range photoshoot.ShotTypes() {
			shots = append(shots, photoshoot.Shot{
				ID:       photoshoot.ShotID("b", style, shot),
				URL:      out.DataURL(),
				Style:    style,
				ShotType: shot,
				Backend:  in.Backend,
			})
		}
	}
	return shots, nil
}

type stubBackends map[photoshoot.Backend]error

func (b stubBackends) Check(backend photoshoot.Backend) error { return b[backend] }

func newTestServer(t *testing.T, gen *stubGenerator, backends BackendChecker) http.Handler {
	t.Helper()
	store, err := portfolio.NewFileStore(filepath.Join(t.TempDir(), "portfolio.json"))
	require.NoError(t, err)

	srv, err := New(Options{Generator: gen, Backends: backends, Portfolio: store})
	require.NoError(t, err)
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func dataURL(s string) string {
	return photoshoot.NewImage([]byte(s), "image/jpeg").DataURL()
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestHealthAndCatalog(t *testing.T) {
	h := newTestServer(t, &stubGenerator{}, stubBackends{
		photoshoot.BackendSeedream: &photoshoot.ConfigurationError{Backend: photoshoot.BackendSeedream, Credential: "SEEDREAM_API_KEY"},
	})

	rec := do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cat catalogResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cat))
	require.Len(t, cat.Styles, 4)
	assert.Equal(t, "custom", cat.Styles[3].Key)
	assert.False(t, cat.Styles[3].Compare)
	require.Len(t, cat.ShotTypes, 3)
	assert.Equal(t, "Closeup Shot", cat.ShotTypes[0].Name)
	require.Len(t, cat.Backends, 2)
	assert.True(t, cat.Backends[0].Configured)
	assert.False(t, cat.Backends[1].Configured)
	assert.Equal(t, "SEEDREAM_API_KEY", cat.Backends[1].Credential)
}

func TestPhotoshoot(t *testing.T) {
	t.Run("single style", func(t *testing.T) {
		gen := &stubGenerator{}
		h := newTestServer(t, gen, nil)

		rec := do(t, h, http.MethodPost, "/api/photoshoots", photoshootRequest{
			Portrait: dataURL("p"),
			Scene:    dataURL("s"),
			Style:    "formal",
			Backend:  "seedream",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp photoshootResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Shots, 3)
		assert.Equal(t, photoshoot.SingleStyle(photoshoot.StyleFormal), gen.mode)
		assert.Equal(t, photoshoot.BackendSeedream, gen.in.Backend)
		assert.Equal(t, []byte("p"), gen.in.Portrait.Data)
		assert.Equal(t, []byte("s"), gen.in.Scene.Data)
	})

	t.Run("compare", func(t *testing.T) {
		gen := &stubGenerator{}
		h := newTestServer(t, gen, nil)

		rec := do(t, h, http.MethodPost, "/api/photoshoots", photoshootRequest{
			Portrait: dataURL("p"),
			Scene:    dataURL("s"),
			Compare:  true,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp photoshootResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Shots, 9)
		assert.Equal(t, photoshoot.BackendGemini, gen.in.Backend)
	})

	tests := []struct {
		name    string
		req     any
		gen     *stubGenerator
		backend BackendChecker
		status  int
		kind    photoshoot.ErrorKind
	}{
		{
			name:   "missing scene",
			req:    photoshootRequest{Portrait: dataURL("p"), Style: "casual"},
			status: http.StatusBadRequest,
			kind:   photoshoot.KindInvalid,
		},
		{
			name:   "unknown style",
			req:    photoshootRequest{Portrait: dataURL("p"), Scene: dataURL("s"), Style: "grunge"},
			status: http.StatusBadRequest,
			kind:   photoshoot.KindInvalid,
		},
		{
			name:   "unknown field",
			req:    map[string]any{"portrait": dataURL("p"), "extra": 1},
			status: http.StatusBadRequest,
			kind:   photoshoot.KindInvalid,
		},
		{
			name: "missing credential",
			req:  photoshootRequest{Portrait: dataURL("p"), Scene: dataURL("s"), Style: "casual"},
			backend: stubBackends{
				photoshoot.BackendGemini: &photoshoot.ConfigurationError{Backend: photoshoot.BackendGemini, Credential: "GEMINI_API_KEY"},
			},
			status: http.StatusServiceUnavailable,
			kind:   photoshoot.KindConfiguration,
		},
		{
			name:   "refused",
			req:    photoshootRequest{Portrait: dataURL("p"), Scene: dataURL("s"), Style: "casual"},
			gen:    &stubGenerator{err: &photoshoot.GenerationRefusedError{}},
			status: http.StatusUnprocessableEntity,
			kind:   photoshoot.KindRefused,
		},
		{
			name:   "backend failure",
			req:    photoshootRequest{Portrait: dataURL("p"), Scene: dataURL("s"), Style: "casual"},
			gen:    &stubGenerator{err: &photoshoot.BackendError{Err: errors.New("boom")}},
			status: http.StatusBadGateway,
			kind:   photoshoot.KindBackend,
		},
		{
			name:   "unknown failure",
			req:    photoshootRequest{Portrait: dataURL("p"), Scene: dataURL("s"), Style: "casual"},
			gen:    &stubGenerator{err: errors.New("boom")},
			status: http.StatusInternalServerError,
			kind:   photoshoot.KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := tt.gen
			if gen == nil {
				gen = &stubGenerator{}
			}
			h := newTestServer(t, gen, tt.backend)

			rec := do(t, h, http.MethodPost, "/api/photoshoots", tt.req)
			assert.Equal(t, tt.status, rec.Code)

			var apiErr apiError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
			assert.Equal(t, string(tt.kind), apiErr.Kind)
			assert.NotEmpty(t, apiErr.Error)
			if tt.kind == photoshoot.KindInvalid || tt.kind == photoshoot.KindConfiguration {
				assert.Zero(t, gen.calls, "no generation for rejected requests")
			}
		})
	}
}

func TestPortfolioRoutes(t *testing.T) {
	h := newTestServer(t, &stubGenerator{}, nil)

	rec := do(t, h, http.MethodGet, "/api/portfolios/alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"owner":"alice","shots":[]}`, rec.Body.String())

	shot := photoshoot.Shot{
		ID:       "b-casual-closeup",
		URL:      dataURL("img"),
		Prompt:   "prompt",
		Style:    photoshoot.StyleCasual,
		ShotType: photoshoot.ShotCloseup,
	}

	rec = do(t, h, http.MethodPost, "/api/portfolios/alice", shot)
	assert.Equal(t, http.StatusCreated, rec.Code)

	changed := shot
	changed.Prompt = "other"
	rec = do(t, h, http.MethodPost, "/api/portfolios/alice", changed)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"added":false}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/portfolios/alice", nil)
	var list portfolioResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Shots, 1)
	assert.Equal(t, "prompt", list.Shots[0].Prompt)

	rec = do(t, h, http.MethodPost, "/api/portfolios/alice", photoshoot.Shot{ID: "no-url"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/portfolios/alice/shots/b-casual-closeup", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/portfolios/alice/shots/b-casual-closeup", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(t, &stubGenerator{}, nil)

	rec := do(t, h, http.MethodGet, "/api/photoshoots", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
