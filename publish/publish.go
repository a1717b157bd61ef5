// Package publish turns user uploads into stored games. All validation runs
// before any store is touched, and a failed step undoes the earlier ones.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/Ashenafi-pixel/gamecrafter-game-host/game"
)

const (
	DefaultMaxHTMLBytes  = 5 << 20
	DefaultMaxImageBytes = 5 << 20
)

// File is one uploaded file.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Submission is the upload form: title and HTML file are required, the cover
// is optional and may be a file or a URL (the file wins when both are set).
type Submission struct {
	Title       string
	Description string
	HTML        *File
	Image       *File
	ImageURL    string
	OwnerRef    string
}

// Limits caps payload sizes. Zero values use the defaults.
type Limits struct {
	MaxHTMLBytes  int64
	MaxImageBytes int64
}

// Service publishes and removes games.
type Service struct {
	games  game.Gateway
	images game.ImageStore
	limits Limits
	newID  func() string
}

func NewService(games game.Gateway, images game.ImageStore, limits Limits) *Service {
	if limits.MaxHTMLBytes <= 0 {
		limits.MaxHTMLBytes = DefaultMaxHTMLBytes
	}
	if limits.MaxImageBytes <= 0 {
		limits.MaxImageBytes = DefaultMaxImageBytes
	}
	return &Service{
		games:  games,
		images: images,
		limits: limits,
		newID:  uuid.NewString,
	}
}

// Limits returns the effective payload caps.
func (s *Service) Limits() Limits {
	return s.limits
}

// Validate checks a submission without touching any store.
func (s *Service) Validate(sub Submission) error {
	if strings.TrimSpace(sub.Title) == "" {
		return &game.ValidationError{Field: "title", Msg: "title is required"}
	}
	if sub.HTML == nil || len(sub.HTML.Data) == 0 {
		return &game.ValidationError{Field: "html_file", Msg: "an HTML file is required"}
	}
	if !isHTML(sub.HTML) {
		return &game.ValidationError{Field: "html_file", Msg: "only HTML files (.html) are accepted"}
	}
	if int64(len(sub.HTML.Data)) > s.limits.MaxHTMLBytes {
		return &game.ValidationError{Field: "html_file", Msg: fmt.Sprintf("HTML file exceeds %d bytes", s.limits.MaxHTMLBytes)}
	}
	if sub.Image != nil {
		if len(sub.Image.Data) == 0 {
			return &game.ValidationError{Field: "image_file", Msg: "image file is empty"}
		}
		if !isImage(sub.Image) {
			return &game.ValidationError{Field: "image_file", Msg: "only image files are accepted"}
		}
		if int64(len(sub.Image.Data)) > s.limits.MaxImageBytes {
			return &game.ValidationError{Field: "image_file", Msg: fmt.Sprintf("image exceeds %d bytes", s.limits.MaxImageBytes)}
		}
		return nil
	}
	if u := strings.TrimSpace(sub.ImageURL); u != "" && !validImageURL(u) {
		return &game.ValidationError{Field: "image_url", Msg: "image url must be an absolute http(s) URL"}
	}
	return nil
}

// Publish validates sub, uploads its cover and creates the game record. If
// the cover upload fails nothing is created; if the record cannot be created
// the uploaded cover is deleted again.
func (s *Service) Publish(ctx context.Context, sub Submission) (game.Record, error) {
	if err := s.Validate(sub); err != nil {
		return game.Record{}, err
	}
	id := s.newID()

	imageRef := strings.TrimSpace(sub.ImageURL)
	uploaded := false
	if sub.Image != nil {
		ref, err := s.images.UploadImage(ctx, sub.Image.Data, sub.Image.Name, id)
		if err != nil {
			return game.Record{}, fmt.Errorf("upload image: %w", asStoreError("upload image", err))
		}
		imageRef = ref
		uploaded = true
	}

	rec, err := s.games.CreateGame(ctx, game.NewRecord{
		ID:          id,
		Title:       sub.Title,
		Description: sub.Description,
		Content:     string(sub.HTML.Data),
		ImageRef:    imageRef,
		OwnerRef:    sub.OwnerRef,
	})
	if err != nil {
		if uploaded {
			// The request context may already be done; cleanup must still run.
			if derr := s.images.DeleteImage(context.WithoutCancel(ctx), imageRef); derr != nil {
				log.Printf("publish: game_id=%s rollback image %s: %v", id, imageRef, derr)
			}
		}
		return game.Record{}, fmt.Errorf("create game: %w", asStoreError("create game", err))
	}
	log.Printf("publish: game_id=%s title=%q image=%t", rec.ID, rec.Title, rec.ImageRef != "")
	return rec, nil
}

// Delete removes a game and, when this host stored it, its cover image.
func (s *Service) Delete(ctx context.Context, id string) error {
	rec, err := s.games.GetGame(ctx, id)
	if err != nil {
		return err
	}
	if err := s.games.DeleteGame(ctx, id); err != nil {
		return err
	}
	if rec.ImageRef != "" && s.ownsImage(rec.ImageRef) {
		if err := s.images.DeleteImage(ctx, rec.ImageRef); err != nil {
			log.Printf("publish: game_id=%s delete image %s: %v", id, rec.ImageRef, err)
		}
	}
	log.Printf("publish: deleted game_id=%s", id)
	return nil
}

// UploadImage stores a standalone cover for gameID after validating it.
func (s *Service) UploadImage(ctx context.Context, f *File, gameID string) (string, error) {
	if strings.TrimSpace(gameID) == "" {
		return "", &game.ValidationError{Field: "game_id", Msg: "game id is required"}
	}
	if f == nil || len(f.Data) == 0 {
		return "", &game.ValidationError{Field: "image_file", Msg: "an image file is required"}
	}
	if !isImage(f) {
		return "", &game.ValidationError{Field: "image_file", Msg: "only image files are accepted"}
	}
	if int64(len(f.Data)) > s.limits.MaxImageBytes {
		return "", &game.ValidationError{Field: "image_file", Msg: fmt.Sprintf("image exceeds %d bytes", s.limits.MaxImageBytes)}
	}
	ref, err := s.images.UploadImage(ctx, f.Data, f.Name, gameID)
	if err != nil {
		return "", asStoreError("upload image", err)
	}
	return ref, nil
}

// DeleteImage removes a stored cover by its public reference.
func (s *Service) DeleteImage(ctx context.Context, imageRef string) error {
	if strings.TrimSpace(imageRef) == "" {
		return &game.ValidationError{Field: "image_url", Msg: "image url is required"}
	}
	return asStoreError("delete image", s.images.DeleteImage(ctx, imageRef))
}

func (s *Service) ownsImage(ref string) bool {
	o, ok := s.images.(interface{ Owns(string) bool })
	return !ok || o.Owns(ref)
}

// asStoreError keeps validation, not-found and existing store errors as they
// are and classifies anything else from a store as a StoreError.
func asStoreError(op string, err error) error {
	if err == nil || game.IsStoreError(err) || game.IsValidation(err) || errors.Is(err, game.ErrNotFound) {
		return err
	}
	return game.NewStoreError(op, err)
}

func mediaType(f *File) string {
	if f.ContentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(f.ContentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}

func isHTML(f *File) bool {
	switch mediaType(f) {
	case "text/html":
		return true
	case "", "application/octet-stream":
		ext := strings.ToLower(filepath.Ext(f.Name))
		return ext == ".html" || ext == ".htm"
	default:
		return false
	}
}

// isImage accepts raster images only. SVG can carry script and covers are
// served from this origin.
func isImage(f *File) bool {
	if strings.EqualFold(filepath.Ext(f.Name), ".svg") {
		return false
	}
	switch mt := mediaType(f); {
	case mt == "image/svg+xml":
		return false
	case strings.HasPrefix(mt, "image/"):
		return true
	case mt == "" || mt == "application/octet-stream":
		return strings.HasPrefix(http.DetectContentType(f.Data), "image/")
	default:
		return false
	}
}

func validImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
