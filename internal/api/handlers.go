package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PaintKaro/LeadPipe/internal/flow"
	"github.com/PaintKaro/LeadPipe/internal/models"
)

// turnRequest is the body of POST /turn and POST /stepflow.
type turnRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// turnResponse carries the assistant reply for a processed turn.
type turnResponse struct {
	Reply string `json:"reply"`
}

// measurementRequest is the body of POST /measurements.
type measurementRequest struct {
	LeadID string                 `json:"lead_id"`
	Data   models.MeasurementData `json:"data"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Service is healthy", nil))
}

func (s *Server) turnHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.turnHandler: processing turn request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.turnHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.turnHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.ChatID == "" || req.Text == "" {
		slog.Warn("Server.turnHandler: missing fields", "chat_id_set", req.ChatID != "", "text_set", req.Text != "")
		writeJSONResponse(w, http.StatusBadRequest, models.Error("chat_id and text are required"))
		return
	}

	// Canonicalize the chat id so API-driven turns share sessions with the
	// messaging transports.
	chatID, err := s.msgService.ValidateAndCanonicalizeRecipient(req.ChatID)
	if err != nil {
		slog.Warn("Server.turnHandler: chat id validation failed", "error", err, "original", req.ChatID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	reply, err := s.session.HandleMessage(r.Context(), chatID, req.Text)
	if err != nil {
		slog.Error("Server.turnHandler: turn processing failed", "error", err, "chatID", chatID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process turn"))
		return
	}

	slog.Info("Server.turnHandler: turn processed", "chatID", chatID)
	writeJSONResponse(w, http.StatusOK, models.Success(turnResponse{Reply: reply}))
}

// stepFlowHandler starts the guided site intake for a chat. Subsequent answers
// go through /turn (or the messaging transport) while the flow is active.
func (s *Server) stepFlowHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.stepFlowHandler: processing step flow request", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.stepFlowHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.stepFlowHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.ChatID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("chat_id is required"))
		return
	}

	chatID, err := s.msgService.ValidateAndCanonicalizeRecipient(req.ChatID)
	if err != nil {
		slog.Warn("Server.stepFlowHandler: chat id validation failed", "error", err, "original", req.ChatID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	reply, err := s.session.HandleMessage(r.Context(), chatID, flow.StepFlowStartCommand)
	if err != nil {
		slog.Error("Server.stepFlowHandler: failed to start step flow", "error", err, "chatID", chatID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to start step flow"))
		return
	}

	slog.Info("Server.stepFlowHandler: step flow started", "chatID", chatID)
	writeJSONResponse(w, http.StatusOK, models.Success(turnResponse{Reply: reply}))
}

func (s *Server) leadsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.leadsHandler: processing leads request", "method", r.Method)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.leadsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	leads, err := s.store.ListLeads()
	if err != nil {
		slog.Error("Server.leadsHandler: failed to list leads", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list leads"))
		return
	}

	slog.Debug("Server.leadsHandler: listed leads", "count", len(leads))
	writeJSONResponse(w, http.StatusOK, models.Success(leads))
}

func (s *Server) leadHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.leadHandler: processing lead request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.leadHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/leads/")
	if id == "" || strings.Contains(id, "/") {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid lead id"))
		return
	}

	lead, err := s.store.GetLead(id)
	if err != nil {
		if errors.Is(err, models.ErrLeadNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Lead not found"))
			return
		}
		slog.Error("Server.leadHandler: failed to get lead", "error", err, "leadID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to get lead"))
		return
	}

	writeJSONResponse(w, http.StatusOK, models.Success(lead))
}

func (s *Server) measurementsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.measurementsHandler: processing measurement request", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.measurementsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req measurementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.measurementsHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.LeadID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("lead_id is required"))
		return
	}

	if _, err := s.store.GetLead(req.LeadID); err != nil {
		if errors.Is(err, models.ErrLeadNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Lead not found"))
			return
		}
		slog.Error("Server.measurementsHandler: failed to check lead", "error", err, "leadID", req.LeadID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to record measurement"))
		return
	}

	// Merge with any existing measurement so partial updates accumulate.
	data := req.Data
	if existing, err := s.store.GetMeasurement(req.LeadID); err == nil && existing != nil {
		data = flow.MergeMeasurements(existing.Data, req.Data)
	}
	if err := s.store.SaveMeasurement(models.Measurement{LeadID: req.LeadID, Data: data}); err != nil {
		slog.Error("Server.measurementsHandler: failed to save measurement", "error", err, "leadID", req.LeadID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to record measurement"))
		return
	}

	slog.Info("Server.measurementsHandler: measurement recorded", "leadID", req.LeadID)
	writeJSONResponse(w, http.StatusOK, models.Recorded())
}
