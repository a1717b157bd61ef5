package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
)

// importZipResponse mirrors the builder's import contract.
type importZipResponse struct {
	OK       bool   `json:"ok"`
	GameID   string `json:"game_id,omitempty"`
	Title    string `json:"title,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Message  string `json:"message,omitempty"`
}

// handleImportZip accepts a ZIP exported from the builder (index.html, an
// optional game.json or game.yaml manifest and an optional cover image).
//
// Request:
//
//	POST /api/games/import
//	Content-Type: application/zip (body is the ZIP bytes)
func (s *Server) handleImportZip(w http.ResponseWriter, r *http.Request) {
	limits := s.publisher.Limits()
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxHTMLBytes+limits.MaxImageBytes+multipartOverhead)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("bundle exceeds %d bytes", tooLarge.Limit), "VALIDATION_FAILED")
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read body: %v", err), "VALIDATION_FAILED")
		return
	}

	rec, err := s.publisher.Import(r.Context(), body)
	if err != nil {
		writeFailure(w, "import", err)
		return
	}
	log.Printf("import: game_id=%s title=%q bundle_bytes=%d", rec.ID, rec.Title, len(body))
	writeJSON(w, http.StatusCreated, importZipResponse{
		OK:       true,
		GameID:   rec.ID,
		Title:    rec.Title,
		ImageURL: rec.ImageRef,
		Message:  "bundle imported",
	})
}
