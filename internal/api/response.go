package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/UNI2-TrabajoSocial/Chatbot-MedicAI/internal/models"
)

// internalErrorBody is written when a response cannot be encoded.
var internalErrorBody = mustMarshal(models.Error("Internal server error"))

func mustMarshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic("api: cannot marshal fixed response: " + err.Error())
	}
	return b
}

// writeJSONResponse encodes response before touching the headers, so an
// encoding failure still produces a well-formed 500.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	body, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: encode failed", "status", statusCode, "error", err)
		body, statusCode = internalErrorBody, http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		slog.Debug("Server.writeJSONResponse: client went away", "error", err)
	}
}

// writeTextResponse answers with a plain UTF-8 body. Meta's verification
// handshake expects the bare challenge, not JSON.
func writeTextResponse(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	if _, err := io.WriteString(w, body); err != nil {
		slog.Debug("Server.writeTextResponse: client went away", "error", err)
	}
}
