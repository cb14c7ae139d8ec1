package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/snapshot/latest", handler.GetLatestSnapshot)
	mux.HandleFunc("GET /v1/matches/{matchID}/history", handler.ListMatchHistory)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/recompute-tournament", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunRecomputeTournamentJob)))
	mux.Handle("POST /v1/internal/jobs/refresh-predictions", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunRefreshPredictionsJob)))
}
