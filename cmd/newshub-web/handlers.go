package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ainewshub/ainewshub"
)

// handlers holds dependencies for all HTTP handler methods.
type handlers struct {
	engine *ainewshub.Engine
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine sentinels to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ainewshub.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, ainewshub.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (h *handlers) handleUserInit(w http.ResponseWriter, r *http.Request) {
	user, err := h.engine.InitUser()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *handlers) handleUserGet(w http.ResponseWriter, r *http.Request) {
	id := snowflakeIDFromRequest(r)
	if id == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid snowflake ID"})
		return
	}

	user, err := h.engine.GetUser(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handlers) handleUserRecover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FeedURL string `json:"feed_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.engine.RecoverUser(req.FeedURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handlers) handleCanRetest(w http.ResponseWriter, r *http.Request) {
	id := snowflakeIDFromRequest(r)
	if id == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid snowflake ID"})
		return
	}

	status, err := h.engine.CanRetest(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *handlers) handlePreferencesGet(w http.ResponseWriter, r *http.Request) {
	id := snowflakeIDFromRequest(r)
	if id == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid snowflake ID"})
		return
	}

	prefs, err := h.engine.GetPreferences(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if prefs == nil {
		prefs = []ainewshub.TagPreference{}
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *handlers) handlePreferencesPut(w http.ResponseWriter, r *http.Request) {
	id := snowflakeIDFromRequest(r)
	if id == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid snowflake ID"})
		return
	}

	var req struct {
		MustInclude []int64 `json:"must_include"`
		Exclude     []int64 `json:"exclude"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := h.engine.SetPreferences(id, req.MustInclude, req.Exclude); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) handleQuestions(w http.ResponseWriter, r *http.Request) {
	set, err := h.engine.ActiveQuestionSet()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (h *handlers) handleTestSubmit(w http.ResponseWriter, r *http.Request) {
	id := snowflakeIDFromRequest(r)
	if id == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid snowflake ID"})
		return
	}

	var req struct {
		Answers map[int64]int `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.engine.SubmitTest(id, req.Answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) handleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.engine.ListTags()
	if err != nil {
		writeError(w, err)
		return
	}
	if tags == nil {
		tags = []ainewshub.Tag{}
	}
	writeJSON(w, http.StatusOK, tags)
}

func (h *handlers) handleRSS(w http.ResponseWriter, r *http.Request) {
	id := snowflakeIDFromRequest(r)
	if id == 0 {
		http.NotFound(w, r)
		return
	}

	feedLink := fmt.Sprintf("https://%s/rss/%d", r.Host, id)
	rss, err := h.engine.PersonalizedFeed(id, feedLink)
	if err != nil {
		if errors.Is(err, ainewshub.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write([]byte(rss))
}
