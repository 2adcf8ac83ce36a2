package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/PabloPavan/snipshare_api/internal/apperrors"
	"github.com/PabloPavan/snipshare_api/internal/telemetry"
)

func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		logServerError(r, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	status := statusFromKind(appErr.Kind)
	if status >= http.StatusInternalServerError {
		logServerError(r, err)
	}
	http.Error(w, errorMessage(appErr), status)
}

func logServerError(r *http.Request, err error) {
	if r == nil {
		return
	}
	attrs := append(telemetry.LogErr(err),
		telemetry.LogEvent("http.error"),
		telemetry.LogString("http.target", r.URL.Path),
	)
	telemetry.LogError(r.Context(), "request failed", attrs...)
}

func statusFromKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindInvalidInput:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(appErr *apperrors.Error) string {
	if appErr == nil {
		return "internal error"
	}
	if appErr.Kind == apperrors.KindStorage {
		return "storage error"
	}
	if appErr.Message != "" {
		return appErr.Message
	}
	switch appErr.Kind {
	case apperrors.KindNotFound:
		return "not found"
	case apperrors.KindPayloadTooLarge:
		return "request too large"
	case apperrors.KindInvalidInput:
		return "invalid request"
	default:
		return "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
