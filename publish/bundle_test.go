package publish

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ashenafi-pixel/gamecrafter-game-host/game"
)

func buildZip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestImportWithJSONManifest(t *testing.T) {
	svc, _, imgs := newTestService(t)
	data := buildZip(t, map[string][]byte{
		"snake/index.html":       []byte("<html><title>ignored</title></html>"),
		"snake/game.json":        []byte(`{"title":"Snake","description":"classic","image":"assets/c.png"}`),
		"snake/assets/c.png":     pngBytes,
		"__MACOSX/snake/._index": []byte("junk"),
	})
	rec, err := svc.Import(context.Background(), data)
	require.NoError(t, err)
	require.Equal(t, "Snake", rec.Title)
	require.Equal(t, "classic", rec.Description)
	require.Len(t, imgs.uploads, 1)
	require.Equal(t, imgs.uploads[0], rec.ImageRef)
}

func TestImportWithYAMLManifest(t *testing.T) {
	svc, _, _ := newTestService(t)
	data := buildZip(t, map[string][]byte{
		"index.html": []byte("<html></html>"),
		"game.yaml":  []byte("title: Pong\nimage_url: https://cdn.example.com/pong.png\n"),
	})
	rec, err := svc.Import(context.Background(), data)
	require.NoError(t, err)
	require.Equal(t, "Pong", rec.Title)
	require.Equal(t, "https://cdn.example.com/pong.png", rec.ImageRef)
}

func TestImportFallbacks(t *testing.T) {
	svc, _, imgs := newTestService(t)

	rec, err := svc.Import(context.Background(), buildZip(t, map[string][]byte{
		"index.html": []byte("<html><head><title> Tetris &amp; Co </title></head></html>"),
		"cover.png":  pngBytes,
	}))
	require.NoError(t, err)
	require.Equal(t, "Tetris & Co", rec.Title)
	require.Len(t, imgs.uploads, 1)

	rec, err = svc.Import(context.Background(), buildZip(t, map[string][]byte{
		"index.html": []byte("<html></html>"),
	}))
	require.NoError(t, err)
	require.Equal(t, defaultBundleTitle, rec.Title)
}

func TestImportRejects(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Import(ctx, nil)
	require.True(t, game.IsValidation(err))

	_, err = svc.Import(ctx, []byte("not a zip"))
	require.True(t, game.IsValidation(err))

	_, err = svc.Import(ctx, buildZip(t, map[string][]byte{"readme.txt": []byte("hi")}))
	require.True(t, game.IsValidation(err))

	_, err = svc.Import(ctx, buildZip(t, map[string][]byte{
		"index.html": []byte("<html></html>"),
		"game.json":  []byte(`{"image":"missing.png"}`),
	}))
	require.True(t, game.IsValidation(err))
}

func TestSanitizeBundlePath(t *testing.T) {
	cases := map[string]string{
		"index.html":           "index.html",
		"./a/b.png":            "a/b.png",
		"a\\b.png":             "a/b.png",
		"/abs/x.html":          "abs/x.html",
		"../escape.html":       "escape.html",
		"__MACOSX/x":           "",
		"":                     "",
		"a/../../b":            "b",
		"dir/./sub/index.html": "dir/sub/index.html",
	}
	for in, want := range cases {
		require.Equal(t, want, sanitizeBundlePath(in), "input %q", in)
	}
}
