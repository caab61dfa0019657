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

func registerAnalysisRoutes(mux *http.ServeMux, handler *Handler, internalAPIToken string) {
	mux.HandleFunc("GET /v1/analyses/{matchID}", handler.GetAnalysis)
	// Submission is reserved for trusted callers: the public product talks to
	// its own backend, which holds the token.
	mux.Handle("POST /v1/analyses", RequireInternalAPIToken(internalAPIToken, http.HandlerFunc(handler.SubmitAnalysis)))
}
