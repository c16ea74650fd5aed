/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes bias evaluation and playlist generation over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/dynbias/internal/biasstore"
	"github.com/friendsincode/dynbias/internal/dynamic"
	"github.com/friendsincode/dynbias/internal/events"
	"github.com/friendsincode/dynbias/internal/generator"
	"github.com/friendsincode/dynbias/internal/meta"
	"github.com/friendsincode/dynbias/internal/query"
)

const (
	maxBodyBytes = 1 << 20
	maxWait      = 30 * time.Second
	defaultLimit = 100
)

// Config carries the API's collaborators. Saved and Broker may be nil.
type Config struct {
	Factories *dynamic.Factories
	Registry  *meta.Registry
	Maker     query.Maker
	Source    generator.Source
	Saved     *biasstore.Store
	Broker    events.Broker
	// Wait is the default time evaluate and generate wait for results.
	Wait time.Duration
}

// API holds HTTP handlers.
type API struct {
	factories *dynamic.Factories
	registry  *meta.Registry
	maker     query.Maker
	source    generator.Source
	generator *generator.Generator
	saved     *biasstore.Store
	broker    events.Broker
	live      *dynamic.Group
	wait      time.Duration
	logger    zerolog.Logger
}

// New constructs the API.
func New(cfg Config, logger zerolog.Logger) *API {
	if cfg.Factories == nil {
		cfg.Factories = dynamic.DefaultFactories()
	}
	if cfg.Registry == nil {
		cfg.Registry = meta.NewRegistry()
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 5 * time.Second
	}
	logger = logger.With().Str("component", "api").Logger()
	return &API{
		factories: cfg.Factories,
		registry:  cfg.Registry,
		maker:     cfg.Maker,
		source:    cfg.Source,
		generator: generator.New(cfg.Source, cfg.Wait, logger),
		saved:     cfg.Saved,
		broker:    cfg.Broker,
		live:      dynamic.NewGroup(),
		wait:      cfg.Wait,
		logger:    logger,
	}
}

// Live returns the saved biases kept loaded between requests. Invalidate it
// when the collection changes.
func (a *API) Live() *dynamic.Group { return a.live }

// Routes registers API routes.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/biases", func(r chi.Router) {
			r.Get("/types", a.handleBiasTypes)
			r.Post("/describe", a.handleDescribe)
			r.Post("/evaluate", a.handleEvaluate)

			if a.saved != nil {
				r.Route("/saved", func(r chi.Router) {
					r.Get("/", a.handleSavedList)
					r.Route("/{name}", func(r chi.Router) {
						r.Get("/", a.handleSavedGet)
						r.Put("/", a.handleSavedPut)
						r.Delete("/", a.handleSavedDelete)
						r.Post("/evaluate", a.handleSavedEvaluate)
					})
				})
			}
		})

		r.Post("/playlists/generate", a.handleGenerate)
	})
}

func (a *API) env() dynamic.Env {
	return dynamic.Env{Maker: a.maker, Registry: a.registry, Logger: a.logger}
}

// readBiases decodes a <bias> or <biases> request body.
func (a *API) readBiases(w http.ResponseWriter, r *http.Request) ([]dynamic.Bias, bool) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	biases, err := dynamic.ReadDocument(body, a.factories, a.env())
	if err != nil {
		a.logger.Debug().Err(err).Msg("rejecting bias document")
		writeError(w, http.StatusBadRequest, "invalid_bias_document")
		return nil, false
	}
	if len(biases) == 0 {
		writeError(w, http.StatusBadRequest, "no_biases")
		return nil, false
	}
	return biases, true
}

// waitParam reads ?wait= as a Go duration or whole seconds.
func (a *API) waitParam(r *http.Request) (time.Duration, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("wait"))
	if raw == "" {
		return a.wait, true
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		secs, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return 0, false
		}
		d = time.Duration(secs) * time.Second
	}
	if d < 0 {
		return 0, false
	}
	return min(d, maxWait), true
}

func intParam(r *http.Request, name string, def int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func boolParam(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
