package game

import (
	"context"
	"strings"
	"time"
)

// Record is one uploaded HTML game. Records are never mutated after creation.
type Record struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Content     string    `json:"html_content,omitempty"`
	ImageRef    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	OwnerRef    string    `json:"user_id,omitempty"`
}

// Anonymous reports whether the game has no owner.
func (r Record) Anonymous() bool {
	return r.OwnerRef == ""
}

// Summary returns a copy without the markup payload, for gallery listings.
func (r Record) Summary() Record {
	r.Content = ""
	return r
}

// NewRecord is the input to Gateway.CreateGame. ID may be preassigned so that
// uploaded assets can be keyed by it before the record exists.
type NewRecord struct {
	ID          string
	Title       string
	Description string
	Content     string
	ImageRef    string
	OwnerRef    string
}

// Validate checks the fields a store requires before attempting a write.
func (n NewRecord) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return &ValidationError{Field: "title", Msg: "title is required"}
	}
	if n.Content == "" {
		return &ValidationError{Field: "html_file", Msg: "html content is required"}
	}
	return nil
}

// Gateway is the content store for game records.
type Gateway interface {
	CreateGame(ctx context.Context, rec NewRecord) (Record, error)
	GetGame(ctx context.Context, id string) (Record, error)
	// ListGames returns every record without Content, newest CreatedAt first.
	ListGames(ctx context.Context) ([]Record, error)
	DeleteGame(ctx context.Context, id string) error
}

// ImageStore is binary object storage for cover images.
type ImageStore interface {
	// UploadImage stores data and returns a publicly resolvable reference.
	UploadImage(ctx context.Context, data []byte, filename, gameID string) (string, error)
	DeleteImage(ctx context.Context, imageRef string) error
}
