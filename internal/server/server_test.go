/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendsincode/dynbias/internal/config"
	"github.com/friendsincode/dynbias/internal/meta"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := New(&config.Config{
		HTTPBind:       "127.0.0.1",
		HTTPPort:       0,
		DBBackend:      config.DatabaseSQLite,
		DBDSN:          ":memory:",
		EventBus:       config.EventBusMemory,
		QueryBatchSize: 2,
		QueryWorkers:   1,
		GenerateWait:   2 * time.Second,
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func (s *Server) serve(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	rr := srv.serve(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","database":"ok"}`, rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	srv.serve(http.MethodGet, "/healthz", "")

	rr := srv.serve(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "dynbias_")
}

func TestEvaluateAgainstDatabase(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, err := srv.tracks.Import(ctx, []meta.Track{
		meta.NewTrack("t1").Set(meta.Artist, meta.Text("Beatles")).Set(meta.Year, meta.Int64(1969)),
		meta.NewTrack("t2").Set(meta.Artist, meta.Text("Rolling Stones")).Set(meta.Year, meta.Int64(1971)),
		meta.NewTrack("t3").Set(meta.Artist, meta.Text("Beat Happening")).Set(meta.Year, meta.Int64(1988)),
	})
	require.NoError(t, err)

	body := `<biases>
  <bias type="tagMatchBias"><field>artist</field><value>beat</value><condition>contains</condition></bias>
  <bias type="tagMatchBias"><field>year</field><numValue>1980</numValue><condition>greater</condition></bias>
</biases>`

	rr := srv.serve(http.MethodPost, "/api/v1/playlists/generate?count=10&seed=3", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"tracks":["t3"]`)
}
