package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/store"
	"github.com/go-chi/chi/v5"
)

// healthHandler provides a health check endpoint for monitoring and load balancing
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	healthData := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.repo.Ping(ctx); err != nil {
		slog.Warn("Health check: store ping failed", "error", err)
		healthData["status"] = "degraded"
		healthData["error"] = "Store unavailable"
	}

	statusCode := http.StatusOK
	if healthData["status"] == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, statusCode, healthData)
}

func (s *Server) stockHandler(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || strings.TrimSpace(name) == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid medication name"))
		return
	}

	med, err := s.repo.GetMedication(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Medication not found"))
		return
	}
	if err != nil {
		slog.Error("Server.stockHandler: lookup failed", "name", name, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to read stock"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(med))
}

func (s *Server) pickupsHandler(w http.ResponseWriter, r *http.Request) {
	user := strings.TrimSpace(chi.URLParam(r, "user"))
	if user == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid user"))
		return
	}

	pickups, err := s.repo.ListPickups(r.Context(), user)
	if err != nil {
		slog.Error("Server.pickupsHandler: list failed", "user", user, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list pickups"))
		return
	}
	if pickups == nil {
		pickups = []models.Pickup{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(pickups))
}
