package handler

import (
	"errors"
	"io"
	"net/http"

	"portfolio-relay/internal/domain"
)

const maxBodyBytes = 1 << 20

// ServeHTTP serves the same contract as Handle for a plain HTTP server.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	corrID := correlationID(map[string]string{correlationHeader: r.Header.Get(correlationHeader)})
	w.Header().Set(correlationHeader, corrID)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, domain.Failure("method not allowed"))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, domain.Failure("request body too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, domain.Failure("could not read request body"))
		return
	}

	status, env := h.relay(r.Context(), body, corrID)
	writeJSON(w, status, env)
}

func writeJSON(w http.ResponseWriter, status int, env domain.ReplyEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(mustMarshal(env))
}
