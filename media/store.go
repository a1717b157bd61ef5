// Package media stores cover images on the local filesystem and serves them
// under a public URL prefix.
package media

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Ashenafi-pixel/gamecrafter-game-host/game"
)

// Prefix is the URL path under which stored images are served.
const Prefix = "/media/"

const folder = "games"

// Store implements game.ImageStore on a directory tree.
type Store struct {
	root    string
	baseURL string
	now     func() time.Time
}

// NewStore returns a store writing under root and issuing references that
// start with baseURL + Prefix.
func NewStore(root, baseURL string) *Store {
	if root == "" {
		root = "media"
	}
	return &Store{
		root:    root,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		now:     time.Now,
	}
}

// UploadImage writes data as games/<gameID>-<millis>.<ext> and returns its public URL.
func (s *Store) UploadImage(ctx context.Context, data []byte, filename, gameID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", game.NewStoreError("upload image", fmt.Errorf("empty image"))
	}
	gameID = sanitizeName(gameID)
	if gameID == "" {
		return "", game.NewStoreError("upload image", fmt.Errorf("game id required"))
	}
	name := fmt.Sprintf("%s-%d.%s", gameID, s.now().UnixMilli(), extension(filename))
	dir := filepath.Join(s.root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", game.NewStoreError("upload image", err)
	}
	dest := filepath.Join(dir, name)
	// O_EXCL: never overwrite an existing object.
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", game.NewStoreError("upload image", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(dest)
		return "", game.NewStoreError("upload image", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dest)
		return "", game.NewStoreError("upload image", err)
	}
	return s.baseURL + Prefix + folder + "/" + name, nil
}

// DeleteImage removes the object referenced by imageRef. Missing objects are
// treated as already deleted.
func (s *Store) DeleteImage(ctx context.Context, imageRef string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := objectKey(imageRef)
	if err != nil {
		return game.NewStoreError("delete image", err)
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return game.NewStoreError("delete image", err)
	}
	return nil
}

// Owns reports whether imageRef was issued by this store. External cover URLs
// supplied by users are not ours to delete.
func (s *Store) Owns(imageRef string) bool {
	return imageRef != "" && strings.HasPrefix(imageRef, s.baseURL+Prefix)
}

// objectKey extracts "games/<file>" from the last two path segments of ref.
func objectKey(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid image url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", fmt.Errorf("invalid image url %q", ref)
	}
	dir, file := parts[len(parts)-2], sanitizeName(parts[len(parts)-1])
	if dir != folder || file == "" {
		return "", fmt.Errorf("image url %q is outside the %s folder", ref, folder)
	}
	return path.Join(dir, file), nil
}

// ServeHTTP serves stored objects; mount it under Prefix.
func (s *Store) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, Prefix)
	parts := strings.Split(strings.Trim(rel, "/"), "/")
	if len(parts) != 2 || parts[0] != folder || sanitizeName(parts[1]) != parts[1] || parts[1] == "" {
		http.NotFound(w, r)
		return
	}
	fpath := filepath.Join(s.root, folder, parts[1])
	f, err := os.Open(fpath)
	if err != nil {
		if os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	// Objects share the app origin, so nothing served here may run script.
	w.Header().Set("Content-Type", contentType(info.Name()))
	w.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

func extension(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	ext = sanitizeName(ext)
	if ext == "" {
		return "bin"
	}
	return ext
}

// sanitizeName keeps a single path segment made of safe characters.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "." || out == ".." || strings.HasPrefix(out, "..") {
		return ""
	}
	return out
}
