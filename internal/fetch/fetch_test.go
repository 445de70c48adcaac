package fetch

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/fpcurate/internal/infra/cache"
	"github.com/John-Robertt/fpcurate/internal/infra/fsx"
)

func newServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/portal/view/218014", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`<html><head><title>Interactive Buddy</title></head><body></body></html>`))
	})
	mux.HandleFunc("/218000/218014_DAbuddy_latest.swf", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("FWS"))
	})
	mux.HandleFunc("/icon.gif", func(w http.ResponseWriter, r *http.Request) {
		img := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.Black, color.White})
		_ = gif.Encode(w, img, nil)
	})
	mux.HandleFunc("/referer", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("Referer")))
	})
	mux.HandleFunc("/missing.swf", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestDocument_BlankURL(t *testing.T) {
	c := &Client{HTTP: http.DefaultClient}
	doc, err := c.Document(context.Background(), "  ")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestDocument_UsesPageCache(t *testing.T) {
	srv, hits := newServer(t)
	pages, err := cache.New(t.TempDir(), false)
	require.NoError(t, err)
	c := &Client{HTTP: srv.Client(), Pages: pages}

	for i := 0; i < 2; i++ {
		doc, err := c.Document(context.Background(), srv.URL+"/portal/view/218014")
		require.NoError(t, err)
		assert.Equal(t, "Interactive Buddy", doc.Find("title").Text())
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestRead_StatusError(t *testing.T) {
	srv, _ := newServer(t)
	c := &Client{HTTP: srv.Client()}

	_, err := c.Read(context.Background(), srv.URL+"/missing.swf")
	var se *HTTPStatusError
	require.True(t, errors.As(err, &se), "期望 HTTPStatusError，实际 %v", err)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestRead_Spoof(t *testing.T) {
	srv, _ := newServer(t)
	c := &Client{HTTP: srv.Client(), Spoof: true}

	b, err := c.Read(context.Background(), srv.URL+"/referer")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/referer", string(b))
}

func TestDownload_DefaultName(t *testing.T) {
	srv, _ := newServer(t)
	c := &Client{HTTP: srv.Client()}
	dir := filepath.Join(t.TempDir(), "content")

	p, err := c.Download(context.Background(), srv.URL+"/218000/218014_DAbuddy_latest.swf", dir, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "218014_DAbuddy_latest.swf"), p)
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "FWS", string(b))
}

func TestDownloadImage_ConvertsToPNG(t *testing.T) {
	srv, _ := newServer(t)
	c := &Client{HTTP: srv.Client()}
	dir := t.TempDir()

	p, err := c.DownloadImage(context.Background(), srv.URL+"/icon.gif", dir, "logo.png")
	require.NoError(t, err)
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("\x89PNG\r\n\x1a\n")))

	p, err = c.DownloadImage(context.Background(), srv.URL+"/icon.gif", dir, "")
	require.NoError(t, err)
	assert.Equal(t, "icon.png", filepath.Base(p))
}

func TestDownloadAll_MirrorsAndCollectsFailures(t *testing.T) {
	srv, _ := newServer(t)
	c := &Client{HTTP: srv.Client()}
	dir := t.TempDir()

	failures, err := c.DownloadAll(context.Background(), []string{
		srv.URL + "/218000/218014_DAbuddy_latest.swf",
		srv.URL + "/missing.swf",
	}, dir, MirrorOptions{})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.True(t, strings.HasSuffix(failures[0].URL, "/missing.swf"))

	host := strings.ReplaceAll(strings.TrimPrefix(srv.URL, "http://"), ":", "_")
	b, err := os.ReadFile(filepath.Join(dir, host, "218000", "218014_DAbuddy_latest.swf"))
	require.NoError(t, err)
	assert.Equal(t, "FWS", string(b))
}

func TestDownloadAll_RejectsPathsOutsideDir(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("FWS"))
	}))
	defer srv.Close()
	c := &Client{HTTP: srv.Client()}
	base := t.TempDir()
	dir := filepath.Join(base, "x", "content")

	failures, err := c.DownloadAll(context.Background(), []string{srv.URL + "/a/../../../escaped.swf"}, dir, MirrorOptions{})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	var bad *fsx.InvalidCharacterError
	assert.ErrorAs(t, failures[0].Err, &bad)
	assert.Zero(t, hits.Load())
	assert.NoFileExists(t, filepath.Join(base, "x", "escaped.swf"))
}

func TestDownloadAll_Cancelled(t *testing.T) {
	srv, _ := newServer(t)
	c := &Client{HTTP: srv.Client()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.DownloadAll(ctx, []string{srv.URL + "/218000/218014_DAbuddy_latest.swf"}, t.TempDir(), MirrorOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
