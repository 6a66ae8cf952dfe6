package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/vigilstack/vigil-incident/internal/config"
	"github.com/vigilstack/vigil-incident/internal/models"
	"github.com/vigilstack/vigil-incident/internal/services"
	"github.com/vigilstack/vigil-incident/internal/utils"
)

// HTTPServer serves the JSON incident API.
type HTTPServer struct {
	logger  *slog.Logger
	service *services.InvestigationService
	server  *http.Server
}

// NewHTTPServer constructs the HTTP API bound to the configured address.
func NewHTTPServer(cfg config.ServerConfig, logger *slog.Logger, service *services.InvestigationService) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &HTTPServer{logger: logger, service: service}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/v1/incidents", s.handleListIncidents)
	mux.HandleFunc("GET /api/v1/incidents/{id}", s.handleGetIncident)
	mux.HandleFunc("POST /api/v1/investigate", s.handleInvestigate)
	mux.HandleFunc("GET /api/v1/patterns", s.handlePatterns)

	s.server = &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves HTTP requests until Shutdown is invoked.
func (s *HTTPServer) Start() error {
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests until the context expires.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the route table (useful for tests).
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	incidents, err := s.service.Incidents(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if incidents == nil {
		incidents = []models.Incident{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"incidents": incidents})
}

func (s *HTTPServer) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	incident, found, err := s.service.Incident(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "incident not found"})
		return
	}
	writeJSON(w, http.StatusOK, incident)
}

type investigateRequest struct {
	IncidentID string `json:"incident_id"`
	Service    string `json:"service"`
	AlertType  string `json:"alert_type"`
	Start      string `json:"start"`
	End        string `json:"end"`
}

func (s *HTTPServer) handleInvestigate(w http.ResponseWriter, r *http.Request) {
	var body investigateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	start, err := utils.ParseRFC3339(body.Start)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start: " + err.Error()})
		return
	}
	end, err := utils.ParseRFC3339(body.End)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end: " + err.Error()})
		return
	}

	incident, err := s.service.Investigate(r.Context(), services.InvestigationRequest{
		IncidentID: body.IncidentID,
		Service:    body.Service,
		AlertType:  body.AlertType,
		Start:      start,
		End:        end,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, incident)
}

func (s *HTTPServer) handlePatterns(w http.ResponseWriter, r *http.Request) {
	mined, err := s.service.Patterns(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if mined == nil {
		mined = []models.IncidentPattern{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"patterns": mined})
}

func (s *HTTPServer) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrInvalidRequest) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.logger.Error("request failed", slog.Any("error", err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
