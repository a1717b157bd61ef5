package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/Ashenafi-pixel/gamecrafter-game-host/game"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/session"
)

// APIError is the standard error response for the API.
type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, code int, errMsg, codeStr string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(APIError{
		Error:   errMsg,
		Code:    codeStr,
		Message: errMsg,
	})
}

// writeFailure maps domain errors onto HTTP statuses.
func writeFailure(w http.ResponseWriter, op string, err error) {
	var ve *game.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error(), "VALIDATION_FAILED")
	case errors.Is(err, game.ErrNotFound):
		writeError(w, http.StatusNotFound, "game not found", "GAME_NOT_FOUND")
	case errors.Is(err, session.ErrWorkspaceNotFound):
		writeError(w, http.StatusNotFound, "workspace not found", "WORKSPACE_NOT_FOUND")
	case errors.Is(err, session.ErrWorkspaceLimit), errors.Is(err, session.ErrSessionLimit):
		writeError(w, http.StatusTooManyRequests, err.Error(), "LIMIT_REACHED")
	case game.IsStoreError(err):
		log.Printf("%s: %v", op, err)
		writeError(w, http.StatusBadGateway, "content store unavailable", "STORE_ERROR")
	default:
		log.Printf("%s: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal error", "INTERNAL")
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads an optional JSON body into v. An empty body leaves v as is.
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return &game.ValidationError{Field: "body", Msg: "invalid JSON body"}
	}
	return nil
}
