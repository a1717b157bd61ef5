package publish

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Ashenafi-pixel/gamecrafter-game-host/game"
)

const defaultBundleTitle = "Imported Game"

// manifest is game.json or game.yaml at the bundle root. JSON is parsed by
// the YAML decoder as well.
//
//	title: Snake
//	description: Eat the apples
//	image: assets/cover.png
//	image_url: https://cdn.example.com/snake.png
type manifest struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Image       string `yaml:"image"`
	ImageURL    string `yaml:"image_url"`
}

var manifestNames = []string{"game.json", "game.yaml", "game.yml"}

var coverNames = []string{"cover.png", "cover.jpg", "cover.jpeg", "cover.webp", "thumbnail.png", "thumbnail.jpg"}

var titleTag = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// Import publishes a zip bundle holding index.html, an optional manifest and
// an optional cover image.
func (s *Service) Import(ctx context.Context, zipBytes []byte) (game.Record, error) {
	sub, err := s.bundleSubmission(zipBytes)
	if err != nil {
		return game.Record{}, err
	}
	return s.Publish(ctx, sub)
}

func (s *Service) bundleSubmission(zipBytes []byte) (Submission, error) {
	if len(zipBytes) == 0 {
		return Submission{}, &game.ValidationError{Field: "bundle", Msg: "empty request body"}
	}
	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return Submission{}, &game.ValidationError{Field: "bundle", Msg: fmt.Sprintf("invalid zip: %v", err)}
	}
	files := make(map[string]*zip.File)
	var index string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := sanitizeBundlePath(f.Name)
		if name == "" {
			continue
		}
		files[name] = f
		// Prefer the shallowest index.html (bundles are often zipped with a top folder).
		if path.Base(name) == "index.html" && (index == "" || strings.Count(name, "/") < strings.Count(index, "/")) {
			index = name
		}
	}
	if index == "" {
		return Submission{}, &game.ValidationError{Field: "html_file", Msg: "index.html not found in bundle"}
	}
	root := path.Dir(index)
	at := func(name string) string {
		if root == "." {
			return name
		}
		return root + "/" + name
	}

	htmlData, err := readZipFile(files[index], s.limits.MaxHTMLBytes)
	if err != nil {
		return Submission{}, err
	}
	sub := Submission{
		HTML: &File{Name: "index.html", ContentType: "text/html", Data: htmlData},
	}

	var m manifest
	for _, name := range manifestNames {
		f, ok := files[at(name)]
		if !ok {
			continue
		}
		data, err := readZipFile(f, 1<<20)
		if err != nil {
			return Submission{}, err
		}
		if err := yaml.Unmarshal(data, &m); err != nil {
			return Submission{}, &game.ValidationError{Field: "manifest", Msg: fmt.Sprintf("parse %s: %v", name, err)}
		}
		break
	}
	sub.Title = strings.TrimSpace(m.Title)
	if sub.Title == "" {
		sub.Title = htmlTitle(htmlData)
	}
	if sub.Title == "" {
		sub.Title = defaultBundleTitle
	}
	sub.Description = strings.TrimSpace(m.Description)
	sub.ImageURL = strings.TrimSpace(m.ImageURL)

	coverPath := ""
	if img := sanitizeBundlePath(m.Image); img != "" {
		coverPath = at(img)
	} else {
		for _, name := range coverNames {
			if _, ok := files[at(name)]; ok {
				coverPath = at(name)
				break
			}
		}
	}
	if coverPath != "" {
		f, ok := files[coverPath]
		if !ok {
			return Submission{}, &game.ValidationError{Field: "manifest", Msg: fmt.Sprintf("image %q not found in bundle", m.Image)}
		}
		data, err := readZipFile(f, s.limits.MaxImageBytes)
		if err != nil {
			return Submission{}, err
		}
		sub.Image = &File{Name: path.Base(coverPath), Data: data}
	}
	return sub, nil
}

func readZipFile(f *zip.File, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, &game.ValidationError{Field: "bundle", Msg: fmt.Sprintf("open %s: %v", f.Name, err)}
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, &game.ValidationError{Field: "bundle", Msg: fmt.Sprintf("read %s: %v", f.Name, err)}
	}
	if int64(len(data)) > limit {
		return nil, &game.ValidationError{Field: "bundle", Msg: fmt.Sprintf("%s exceeds %d bytes", f.Name, limit)}
	}
	return data, nil
}

func htmlTitle(data []byte) string {
	m := titleTag.FindSubmatch(data)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(string(m[1])))
}

// sanitizeBundlePath normalises a zip entry name to a safe relative path.
func sanitizeBundlePath(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	clean := path.Clean("/" + name)
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." || strings.HasPrefix(clean, "__MACOSX/") {
		return ""
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg == ".." {
			return ""
		}
	}
	return clean
}
