package main

import (
	"net/http"

	"github.com/ainewshub/ainewshub"
)

// newRouter sets up all routes using Go 1.22+ enhanced routing.
func newRouter(engine *ainewshub.Engine) http.Handler {
	mux := http.NewServeMux()

	h := &handlers{engine: engine}

	mux.HandleFunc("POST /api/user/init", h.handleUserInit)
	mux.HandleFunc("POST /api/user/recover", h.handleUserRecover)
	mux.HandleFunc("GET /api/user/{snowflakeID}", h.handleUserGet)
	mux.HandleFunc("GET /api/user/{snowflakeID}/can-retest", h.handleCanRetest)
	mux.HandleFunc("GET /api/user/{snowflakeID}/preferences", h.handlePreferencesGet)
	mux.HandleFunc("PUT /api/user/{snowflakeID}/preferences", h.handlePreferencesPut)

	mux.HandleFunc("GET /api/test/questions", h.handleQuestions)
	mux.HandleFunc("POST /api/test/{snowflakeID}/submit", h.handleTestSubmit)

	mux.HandleFunc("GET /api/tags", h.handleTags)

	mux.HandleFunc("GET /rss/{snowflakeID}", h.handleRSS)

	return mux
}
