/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendsincode/dynbias/internal/biasstore"
	"github.com/friendsincode/dynbias/internal/collection/memory"
	"github.com/friendsincode/dynbias/internal/config"
	"github.com/friendsincode/dynbias/internal/db"
	"github.com/friendsincode/dynbias/internal/events"
	"github.com/friendsincode/dynbias/internal/generator"
	"github.com/friendsincode/dynbias/internal/meta"
	"github.com/friendsincode/dynbias/internal/query"
)

const artistBeatXML = `<bias type="tagMatchBias"><field>artist</field><value>beat</value><condition>contains</condition></bias>`

type testAPI struct {
	api    *API
	router chi.Router
	bus    *events.Bus
}

func newTestAPI(t *testing.T, withSaved bool) *testAPI {
	t.Helper()
	bus := events.NewBus()
	coll := memory.New(memory.Config{ID: "test"}, zerolog.Nop())
	coll.Replace([]meta.Track{
		meta.NewTrack("t1").Set(meta.Artist, meta.Text("Beatles")),
		meta.NewTrack("t2").Set(meta.Artist, meta.Text("Rolling Stones")),
		meta.NewTrack("t3").Set(meta.Artist, meta.Text("Beat Happening")),
	})

	cfg := Config{
		Maker:  coll,
		Source: generator.MemorySource(coll),
		Broker: bus,
		Wait:   2 * time.Second,
	}
	if withSaved {
		database, err := db.Connect(&config.Config{DBBackend: config.DatabaseSQLite, DBDSN: ":memory:"}, zerolog.Nop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close(database) })
		require.NoError(t, db.Migrate(database))
		cfg.Saved = biasstore.New(database, nil, bus, zerolog.Nop())
	}

	a := New(cfg, zerolog.Nop())
	r := chi.NewRouter()
	a.Routes(r)
	return &testAPI{api: a, router: r, bus: bus}
}

func (ta *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	ta.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestBiasTypes(t *testing.T) {
	ta := newTestAPI(t, false)
	rr := ta.do(t, http.MethodGet, "/api/v1/biases/types", "")
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode[struct {
		Types []biasType `json:"types"`
	}](t, rr)
	require.Len(t, resp.Types, 1)
	assert.Equal(t, "tagMatchBias", resp.Types[0].Name)
	assert.Equal(t, "Match meta tag", resp.Types[0].I18nName)
}

func TestDescribe(t *testing.T) {
	ta := newTestAPI(t, false)

	rr := ta.do(t, http.MethodPost, "/api/v1/biases/describe", artistBeatXML)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[struct {
		Biases []biasSummary `json:"biases"`
	}](t, rr)
	require.Len(t, resp.Biases, 1)
	assert.Equal(t, `Artist contains "beat"`, resp.Biases[0].Description)

	rr = ta.do(t, http.MethodPost, "/api/v1/biases/describe", `<playlist/>`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid_bias_document")

	rr = ta.do(t, http.MethodPost, "/api/v1/biases/describe", `<biases></biases>`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "no_biases")
}

func TestEvaluate(t *testing.T) {
	ta := newTestAPI(t, false)
	ready := ta.bus.Subscribe(events.EventBiasResultReady)

	rr := ta.do(t, http.MethodPost, "/api/v1/biases/evaluate?wait=2s", artistBeatXML)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	resp := decode[evaluateResponse](t, rr)
	assert.Equal(t, 3, resp.Universe)
	require.Len(t, resp.Biases, 1)
	assert.True(t, resp.Biases[0].Ready)
	assert.Equal(t, 2, resp.Biases[0].Count)
	assert.ElementsMatch(t, []string{"t1", "t3"}, resp.Biases[0].Tracks)

	select {
	case p := <-ready:
		assert.Equal(t, "tagMatchBias", p["bias"])
		assert.Equal(t, 2, p["tracks"])
	case <-time.After(time.Second):
		t.Fatal("no result event published")
	}
}

func TestEvaluateLimitAndParams(t *testing.T) {
	ta := newTestAPI(t, false)

	rr := ta.do(t, http.MethodPost, "/api/v1/biases/evaluate?limit=1", artistBeatXML)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[evaluateResponse](t, rr)
	assert.Equal(t, 2, resp.Biases[0].Count)
	assert.Len(t, resp.Biases[0].Tracks, 1)
	assert.True(t, resp.Biases[0].Truncated)

	rr = ta.do(t, http.MethodPost, "/api/v1/biases/evaluate?wait=soon", artistBeatXML)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ta.do(t, http.MethodPost, "/api/v1/biases/evaluate?limit=-1", artistBeatXML)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGenerate(t *testing.T) {
	ta := newTestAPI(t, false)

	rr := ta.do(t, http.MethodPost, "/api/v1/playlists/generate?count=5&seed=7", artistBeatXML)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[struct {
		Tracks     []string `json:"tracks"`
		Candidates int      `json:"candidates"`
		Exhausted  bool     `json:"exhausted"`
		Warnings   []string `json:"warnings"`
	}](t, rr)
	assert.ElementsMatch(t, []string{"t1", "t3"}, resp.Tracks)
	assert.Equal(t, 2, resp.Candidates)
	assert.True(t, resp.Exhausted)
	assert.Contains(t, resp.Warnings, "underfilled_count")

	again := ta.do(t, http.MethodPost, "/api/v1/playlists/generate?count=5&seed=7", artistBeatXML)
	assert.JSONEq(t, rr.Body.String(), again.Body.String(), "same seed, same playlist")
}

func TestGenerateUnresolved(t *testing.T) {
	ta := newTestAPI(t, false)
	body := `<bias type="tagMatchBias"><field>artist</field><value>zzz</value><condition>contains</condition></bias>`

	rr := ta.do(t, http.MethodPost, "/api/v1/playlists/generate", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "unresolved")

	rr = ta.do(t, http.MethodPost, "/api/v1/playlists/generate?count=x", body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSavedBiases(t *testing.T) {
	ta := newTestAPI(t, true)

	rr := ta.do(t, http.MethodPut, "/api/v1/biases/saved/beat?description=Beat+bands", artistBeatXML)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	saved := decode[savedBias](t, rr)
	assert.Equal(t, "beat", saved.Name)
	assert.Equal(t, "Beat bands", saved.Description)
	assert.Contains(t, saved.Definition, "<value>beat</value>")

	rr = ta.do(t, http.MethodGet, "/api/v1/biases/saved", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[struct {
		Biases []savedBias `json:"biases"`
	}](t, rr)
	require.Len(t, list.Biases, 1)
	assert.Empty(t, list.Biases[0].Definition)

	rr = ta.do(t, http.MethodPost, "/api/v1/biases/saved/beat/evaluate", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[evaluateResponse](t, rr)
	assert.Equal(t, 2, resp.Biases[0].Count)

	_, live := ta.api.Live().Get("beat")
	assert.True(t, live, "evaluated bias stays loaded")

	rr = ta.do(t, http.MethodDelete, "/api/v1/biases/saved/beat", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	_, live = ta.api.Live().Get("beat")
	assert.False(t, live)

	rr = ta.do(t, http.MethodGet, "/api/v1/biases/saved/beat", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = ta.do(t, http.MethodPost, "/api/v1/biases/saved/beat/evaluate", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSavedRejectsDocuments(t *testing.T) {
	ta := newTestAPI(t, true)

	rr := ta.do(t, http.MethodPut, "/api/v1/biases/saved/two", `<biases>`+artistBeatXML+artistBeatXML+`</biases>`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "single_bias_required")
}

func TestSavedRoutesNeedStore(t *testing.T) {
	ta := newTestAPI(t, false)
	rr := ta.do(t, http.MethodGet, "/api/v1/biases/saved", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// stalledMaker never answers and hands every run context to the test.
type stalledMaker struct {
	runs chan context.Context
}

func (m *stalledMaker) Run(ctx context.Context, _ query.Plan, _ query.Sink) { m.runs <- ctx }

func TestPendingQueriesStopWithTheRequest(t *testing.T) {
	coll := memory.New(memory.Config{ID: "test"}, zerolog.Nop())
	coll.Replace([]meta.Track{meta.NewTrack("t1").Set(meta.Artist, meta.Text("Beatles"))})
	maker := &stalledMaker{runs: make(chan context.Context, 4)}

	a := New(Config{Maker: maker, Source: generator.MemorySource(coll)}, zerolog.Nop())
	r := chi.NewRouter()
	a.Routes(r)
	ta := &testAPI{api: a, router: r}

	for _, path := range []string{"/api/v1/biases/evaluate?wait=10ms", "/api/v1/playlists/generate?wait=10ms"} {
		rr := ta.do(t, http.MethodPost, path, artistBeatXML)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		select {
		case ctx := <-maker.runs:
			assert.Error(t, ctx.Err(), "%s leaves its query running", path)
		case <-time.After(time.Second):
			t.Fatalf("%s never dispatched a query", path)
		}
	}
}
