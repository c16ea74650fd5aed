/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/friendsincode/dynbias/internal/dynamic"
	"github.com/friendsincode/dynbias/internal/generator"
	"github.com/friendsincode/dynbias/internal/trackset"
)

type biasType struct {
	Name        string `json:"name"`
	I18nName    string `json:"i18n_name"`
	Description string `json:"description"`
}

type biasSummary struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type biasResult struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Ready       bool     `json:"ready"`
	Count       int      `json:"count"`
	Tracks      []string `json:"tracks"`
	Truncated   bool     `json:"truncated,omitempty"`
}

type evaluateResponse struct {
	Universe int          `json:"universe"`
	Biases   []biasResult `json:"biases"`
}

func (a *API) handleBiasTypes(w http.ResponseWriter, r *http.Request) {
	names := a.factories.Names()
	out := make([]biasType, 0, len(names))
	for _, name := range names {
		f, ok := a.factories.Lookup(name)
		if !ok {
			continue
		}
		out = append(out, biasType{Name: f.Name(), I18nName: f.I18nName(), Description: f.Description()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"types": out})
}

func (a *API) handleDescribe(w http.ResponseWriter, r *http.Request) {
	biases, ok := a.readBiases(w, r)
	if !ok {
		return
	}
	out := make([]biasSummary, 0, len(biases))
	for _, b := range biases {
		out = append(out, biasSummary{Type: b.Name(), Description: b.String()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"biases": out})
}

func (a *API) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	wait, ok := a.waitParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_wait")
		return
	}
	limit, ok := intParam(r, "limit", defaultLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_limit")
		return
	}
	biases, ok := a.readBiases(w, r)
	if !ok {
		return
	}
	defer release(biases)

	resp, err := a.evaluate(r.Context(), biases, wait, limit)
	if err != nil {
		a.logger.Error().Err(err).Msg("evaluate biases")
		writeError(w, http.StatusServiceUnavailable, "collection_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// evaluate waits up to wait for every bias and reports each one's tracks.
func (a *API) evaluate(ctx context.Context, biases []dynamic.Bias, wait time.Duration, limit int) (evaluateResponse, error) {
	universe, err := a.source.Universe(ctx)
	if err != nil {
		return evaluateResponse{}, err
	}

	if a.broker != nil {
		publisher := dynamic.Publisher{Broker: a.broker}
		for _, b := range biases {
			remove := b.AddObserver(publisher)
			defer remove()
		}
	}

	_, pending := generator.Await(ctx, universe, biases, wait)
	isPending := make(map[dynamic.Bias]bool, len(pending))
	for _, b := range pending {
		isPending[b] = true
	}

	resp := evaluateResponse{Universe: universe.Size(), Biases: make([]biasResult, 0, len(biases))}
	for _, b := range biases {
		res := biasResult{Type: b.Name(), Description: b.String(), Tracks: []string{}}
		if !isPending[b] {
			res.Ready = true
			fillTracks(&res, b.MatchingTracks(universe), limit)
		}
		resp.Biases = append(resp.Biases, res)
	}
	return resp, nil
}

// release cancels the queries of biases that only live for one request.
func release(biases []dynamic.Bias) {
	for _, b := range biases {
		b.Invalidate()
	}
}

func fillTracks(res *biasResult, set trackset.Set, limit int) {
	if set.IsOutstanding() {
		res.Ready = false
		return
	}
	uids := set.UIDs()
	res.Count = len(uids)
	if len(uids) > limit {
		uids = uids[:limit]
		res.Truncated = true
	}
	res.Tracks = uids
}

func (a *API) handleGenerate(w http.ResponseWriter, r *http.Request) {
	wait, ok := a.waitParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_wait")
		return
	}
	count, ok := intParam(r, "count", generator.DefaultCount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_count")
		return
	}
	seed, ok := intParam(r, "seed", 0)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_seed")
		return
	}
	biases, ok := a.readBiases(w, r)
	if !ok {
		return
	}
	defer release(biases)

	result, err := a.generator.Generate(r.Context(), generator.Request{
		Biases: biases,
		Count:  count,
		Seed:   int64(seed),
		Wait:   wait,
		Strict: boolParam(r, "strict"),
	})
	switch {
	case errors.Is(err, generator.ErrUnresolved):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "unresolved", "warnings": result.Warnings})
		return
	case errors.Is(err, generator.ErrNotReady):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "not_ready", "pending": result.Pending})
		return
	case err != nil:
		a.logger.Error().Err(err).Msg("generate playlist")
		writeError(w, http.StatusServiceUnavailable, "collection_unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tracks":     result.UIDs,
		"candidates": result.Candidates,
		"pending":    result.Pending,
		"exhausted":  result.Exhausted,
		"warnings":   result.Warnings,
	})
}
