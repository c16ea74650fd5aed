/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/dynbias/internal/biasstore"
	"github.com/friendsincode/dynbias/internal/dynamic"
	"github.com/friendsincode/dynbias/internal/models"
)

type savedBias struct {
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Definition  string    `json:"definition,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toSavedBias(row models.SavedBias, withDefinition bool) savedBias {
	out := savedBias{
		Name:        row.Name,
		Type:        row.Type,
		Description: row.Description,
		UpdatedAt:   row.UpdatedAt,
	}
	if withDefinition {
		out.Definition = row.Definition
	}
	return out
}

func (a *API) handleSavedList(w http.ResponseWriter, r *http.Request) {
	rows, err := a.saved.List(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("list saved biases")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	out := make([]savedBias, 0, len(rows))
	for _, row := range rows {
		out = append(out, toSavedBias(row, false))
	}
	writeJSON(w, http.StatusOK, map[string]any{"biases": out})
}

func (a *API) handleSavedGet(w http.ResponseWriter, r *http.Request) {
	row, err := a.saved.Get(r.Context(), chi.URLParam(r, "name"))
	if errors.Is(err, biasstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("get saved bias")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, toSavedBias(*row, true))
}

func (a *API) handleSavedPut(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	biases, ok := a.readBiases(w, r)
	if !ok {
		return
	}
	if len(biases) != 1 {
		writeError(w, http.StatusBadRequest, "single_bias_required")
		return
	}

	row, err := a.saved.Save(r.Context(), name, r.URL.Query().Get("description"), biases[0])
	if errors.Is(err, biasstore.ErrInvalidName) {
		writeError(w, http.StatusBadRequest, "invalid_name")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("name", name).Msg("save bias")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	a.live.Remove(row.Name)
	writeJSON(w, http.StatusOK, toSavedBias(*row, true))
}

func (a *API) handleSavedDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	err := a.saved.Delete(r.Context(), name)
	if errors.Is(err, biasstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("name", name).Msg("delete bias")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	a.live.Remove(name)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSavedEvaluate(w http.ResponseWriter, r *http.Request) {
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

	name := chi.URLParam(r, "name")
	b, ok := a.live.Get(name)
	if !ok {
		loaded, err := a.saved.Load(r.Context(), name, a.env())
		if errors.Is(err, biasstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		if err != nil {
			a.logger.Error().Err(err).Str("name", name).Msg("load saved bias")
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		a.live.Put(name, loaded)
		b = loaded
	}

	resp, err := a.evaluate(r.Context(), []dynamic.Bias{b}, wait, limit)
	if err != nil {
		a.logger.Error().Err(err).Msg("evaluate saved bias")
		writeError(w, http.StatusServiceUnavailable, "collection_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
