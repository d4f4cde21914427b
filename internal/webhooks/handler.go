package webhooks

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"clickup-bridge/pkg/errors"
	"clickup-bridge/pkg/logger"
)

// Handler exposes the inbound webhook endpoint
type Handler struct {
	service      *Service
	logger       logger.Logger
	maxBodyBytes int64
}

// NewHandler creates the HTTP handler for inbound deliveries
func NewHandler(service *Service, log logger.Logger, maxBodyBytes int64) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	return &Handler{
		service:      service,
		logger:       log,
		maxBodyBytes: maxBodyBytes,
	}
}

// Receive handles POST deliveries from the provider
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
		return
	}

	signature := r.Header.Get("X-Signature")

	receipt, err := h.service.Process(r.Context(), body, signature, clientIP(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	switch receipt.Status {
	case ReceiptDuplicate:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "duplicate",
		})
	case ReceiptWebhookNotFound:
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"status": "webhook_not_found",
		})
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "success",
		})
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	appErr := errors.GetAppError(err)
	if appErr == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status":  "error",
			"message": "processing failed",
		})
		return
	}

	switch appErr.Type {
	case errors.ErrorTypeAuthentication, errors.ErrorTypeValidation:
		writeJSON(w, appErr.HTTPStatus(), map[string]interface{}{
			"error": appErr.Message,
		})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status":  "error",
			"message": appErr.Message,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// clientIP resolves the caller address, honoring proxy headers
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host
}
