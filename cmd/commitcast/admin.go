package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cfotel "github.com/Strob0t/commitcast/internal/adapter/otel"
	"github.com/Strob0t/commitcast/internal/middleware"
	"github.com/Strob0t/commitcast/internal/service"
)

// statusSource is implemented by the service channels.
type statusSource interface {
	Status() service.Status
}

type statusResponse struct {
	Status   string           `json:"status"`
	Channels []service.Status `json:"channels"`
}

// newAdminRouter serves GET /health and GET /status.
func newAdminRouter(serviceName string, sources []statusSource) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(10 * time.Second))
	r.Use(cfotel.HTTPMiddleware(serviceName))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		resp := statusResponse{Status: "ok", Channels: make([]service.Status, 0, len(sources))}
		for _, s := range sources {
			resp.Channels = append(resp.Channels, s.Status())
		}
		writeJSON(w, http.StatusOK, resp)
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
