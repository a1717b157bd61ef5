package server

import (
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Ashenafi-pixel/gamecrafter-game-host/game"
	"github.com/Ashenafi-pixel/gamecrafter-game-host/publish"
)

// multipartOverhead covers form fields and boundaries on top of the file caps.
const multipartOverhead = 1 << 20

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	list, err := s.games.ListGames(r.Context())
	if err != nil {
		writeFailure(w, "list games", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleGallery is the landing page: every game, newest first, linking to
// its player.
func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	list, err := s.games.ListGames(r.Context())
	if err != nil {
		writeFailure(w, "gallery", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, galleryHTML(list))
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	rec, err := s.games.GetGame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, "get game", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleCreateGame accepts the upload form:
//
//	POST /api/games
//	Content-Type: multipart/form-data
//	title, description, html_file, image_file | image_url
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	limits := s.publisher.Limits()
	if !s.parseMultipart(w, r, limits.MaxHTMLBytes+limits.MaxImageBytes) {
		return
	}
	htmlFile, err := formFile(r, "html_file")
	if err != nil {
		writeFailure(w, "create game", err)
		return
	}
	imageFile, err := formFile(r, "image_file")
	if err != nil {
		writeFailure(w, "create game", err)
		return
	}
	rec, err := s.publisher.Publish(r.Context(), publish.Submission{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		HTML:        htmlFile,
		Image:       imageFile,
		ImageURL:    r.FormValue("image_url"),
		OwnerRef:    r.FormValue("user_id"),
	})
	if err != nil {
		writeFailure(w, "create game", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec.Summary())
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := s.publisher.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeFailure(w, "delete game", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type imageResponse struct {
	ImageURL string `json:"image_url"`
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	if !s.parseMultipart(w, r, s.publisher.Limits().MaxImageBytes) {
		return
	}
	f, err := formFile(r, "image_file")
	if err != nil {
		writeFailure(w, "upload image", err)
		return
	}
	ref, err := s.publisher.UploadImage(r.Context(), f, r.FormValue("game_id"))
	if err != nil {
		writeFailure(w, "upload image", err)
		return
	}
	writeJSON(w, http.StatusCreated, imageResponse{ImageURL: ref})
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	var req imageResponse
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, "delete image", err)
		return
	}
	if err := s.publisher.DeleteImage(r.Context(), req.ImageURL); err != nil {
		writeFailure(w, "delete image", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseMultipart caps the body at payload plus form overhead and parses it.
// It writes the error response itself and reports whether to continue.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request, payload int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, payload+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request exceeds %d bytes", tooLarge.Limit), "VALIDATION_FAILED")
			return false
		}
		writeError(w, http.StatusBadRequest, "expected multipart/form-data", "VALIDATION_FAILED")
		return false
	}
	return true
}

// formFile returns the named upload, or nil when the field is absent.
func formFile(r *http.Request, field string) (*publish.File, error) {
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, &game.ValidationError{Field: field, Msg: err.Error()}
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, &game.ValidationError{Field: field, Msg: fmt.Sprintf("read upload: %v", err)}
	}
	return &publish.File{
		Name:        hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// handlePlayPage is the single-game viewer. Restart bumps ?g= so the frame
// URL changes and the browser builds a fresh document.
func (s *Server) handlePlayPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.games.GetGame(r.Context(), id)
	if errors.Is(err, game.ErrNotFound) {
		s.writeNotFoundPage(w)
		return
	}
	if err != nil {
		writeFailure(w, "play game", err)
		return
	}
	gen, _ := strconv.Atoi(r.URL.Query().Get("g"))
	if gen < 0 {
		gen = 0
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", "frame-ancestors 'self' "+s.cfg.PlatformURL)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, playPageHTML(rec, gen, s.surfaces.Policy()))
}

// handlePlayFrame serves the game markup itself under the sandbox policy.
func (s *Server) handlePlayFrame(w http.ResponseWriter, r *http.Request) {
	rec, err := s.games.GetGame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, game.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		writeFailure(w, "play frame", err)
		return
	}
	s.surfaces.Write(w, rec.Content)
}

func (s *Server) writeNotFoundPage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = io.WriteString(w, `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Game not found</title>
<style>body{font-family:system-ui,sans-serif;background:#0c0f17;color:#f5f5f4;display:flex;align-items:center;justify-content:center;min-height:100vh;margin:0}a{color:#e8b923}</style>
</head>
<body><div><h1>Game not found</h1><p>This game does not exist or was removed.</p><p><a href="/">Back to the gallery</a></p></div></body>
</html>`)
}

// playPageHTML renders the viewer. Every record field is escaped.
func playPageHTML(rec game.Record, gen int, policy string) string {
	id := html.EscapeString(rec.ID)
	title := html.EscapeString(rec.Title)
	desc := html.EscapeString(rec.Description)
	frameSrc := fmt.Sprintf("/games/%s/frame?g=%d", id, gen)
	restart := fmt.Sprintf("/games/%s/play?g=%d", id, gen+1)
	return `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>` + title + `</title>
  <style>
    * { box-sizing: border-box; }
    body { font-family: system-ui, sans-serif; margin: 0; background: #0c0f17; color: #f5f5f4; display: flex; flex-direction: column; height: 100vh; }
    header { display: flex; align-items: center; gap: 12px; padding: 8px 16px; border-bottom: 1px solid rgba(232,185,35,0.2); }
    header h1 { font-size: 1rem; margin: 0; flex: 1; color: #e8b923; }
    header p { margin: 0; color: #a8a29e; font-size: 0.85rem; }
    a.btn, button { background: #e8b923; color: #0c0f17; border: none; border-radius: 999px; padding: 6px 14px; font-size: 0.9rem; font-weight: 600; cursor: pointer; text-decoration: none; }
    #stage { flex: 1; }
    iframe { border: 0; width: 100%; height: 100%; background: #fff; }
  </style>
</head>
<body>
  <header>
    <h1>` + title + `</h1>
    <p>` + desc + `</p>
    <a class="btn" href="` + restart + `">Restart</a>
    <button id="btn-fullscreen" type="button">Fullscreen</button>
  </header>
  <div id="stage">
    <iframe id="game-frame" title="` + title + `" src="` + frameSrc + `" sandbox="` + html.EscapeString(policy) + `" allow="fullscreen; autoplay; gamepad"></iframe>
  </div>
  <script>
    document.getElementById("btn-fullscreen").addEventListener("click", function() {
      var stage = document.getElementById("stage");
      if (document.fullscreenElement) { document.exitFullscreen(); } else if (stage.requestFullscreen) { stage.requestFullscreen(); }
    });
  </script>
</body>
</html>`
}

// galleryHTML renders the game list. Covers are only linked when they are
// http(s) URLs.
func galleryHTML(list []game.Record) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Games</title>
  <style>
    body { font-family: system-ui, sans-serif; margin: 0; padding: 24px; background: #0c0f17; color: #f5f5f4; }
    h1 { color: #e8b923; }
    ul { list-style: none; padding: 0; display: grid; grid-template-columns: repeat(auto-fill, minmax(220px, 1fr)); gap: 16px; }
    li { border: 1px solid rgba(232,185,35,0.2); border-radius: 12px; padding: 12px; }
    li img { width: 100%; aspect-ratio: 16 / 9; object-fit: cover; border-radius: 8px; }
    li h2 { font-size: 1rem; margin: 8px 0 4px; }
    li p { color: #a8a29e; font-size: 0.85rem; margin: 0 0 8px; }
    a { color: #e8b923; }
  </style>
</head>
<body>
  <h1>Games</h1>
`)
	if len(list) == 0 {
		b.WriteString("  <p>No games yet.</p>\n")
	} else {
		b.WriteString("  <ul>\n")
		for _, rec := range list {
			play := html.EscapeString("/games/" + url.PathEscape(rec.ID) + "/play")
			title := html.EscapeString(rec.Title)
			b.WriteString("    <li>")
			if isWebURL(rec.ImageRef) {
				b.WriteString(`<img src="` + html.EscapeString(rec.ImageRef) + `" alt="` + title + `">`)
			}
			b.WriteString(`<h2>` + title + `</h2><p>` + html.EscapeString(rec.Description) + `</p><a href="` + play + `">Play</a></li>` + "\n")
		}
		b.WriteString("  </ul>\n")
	}
	b.WriteString("</body>\n</html>")
	return b.String()
}

func isWebURL(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://")
}
