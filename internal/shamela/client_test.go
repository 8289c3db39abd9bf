package shamela

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchBookMetadata(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"major_release": 5,
			"major_release_url": "http://cdn.example.com/book/26592/5.zip",
			"minor_release": 7,
			"minor_release_url": "https://cdn.example.com/book/26592/5-7.zip"
		}`))
	}))
	defer srv.Close()

	c := NewClient(Options{APIKey: "secret", BooksEndpoint: srv.URL + "/books/"})
	meta, err := c.FetchBookMetadata(context.Background(), 26592, Versions{Major: 1})
	require.NoError(t, err)

	assert.Equal(t, "/books/26592", gotPath)
	assert.Contains(t, gotQuery, "api_key=secret")
	assert.Contains(t, gotQuery, "major_release=1")
	assert.Contains(t, gotQuery, "minor_release=0")

	assert.Equal(t, 5, meta.MajorRelease)
	assert.Equal(t, "https://cdn.example.com/book/26592/5.zip", meta.MajorReleaseURL)
	assert.Equal(t, 7, meta.MinorRelease)
	assert.Equal(t, "https://cdn.example.com/book/26592/5-7.zip", meta.MinorReleaseURL)
	assert.True(t, meta.HasPatch())
}

func TestFetchBookMetadataWithoutPatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"major_release": 1, "major_release_url": "https://cdn.example.com/1.zip"}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BooksEndpoint: srv.URL})
	meta, err := c.FetchBookMetadata(context.Background(), 1, Versions{})
	require.NoError(t, err)
	assert.False(t, meta.HasPatch())
	assert.Empty(t, meta.MinorReleaseURL)
}

func TestFetchBookMetadataMissingURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"major_release": 1}`))
	}))
	defer srv.Close()

	c := NewClient(Options{BooksEndpoint: srv.URL})
	_, err := c.FetchBookMetadata(context.Background(), 1, Versions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no major release url")
}

func TestFetchBookMetadataStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(Options{APIKey: "secret", BooksEndpoint: srv.URL})
	_, err := c.FetchBookMetadata(context.Background(), 3, Versions{})
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.NotContains(t, err.Error(), "secret")
	assert.Contains(t, statusErr.URL, "api_key=REDACTED")
}

func TestTransportErrorRedactsKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL + "/books"
	srv.Close()

	c := NewClient(Options{APIKey: "SECRET-KEY", BooksEndpoint: endpoint, MasterEndpoint: endpoint})
	_, err := c.FetchBookMetadata(context.Background(), 7, Versions{})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-KEY")
	assert.Contains(t, err.Error(), "api_key=REDACTED")

	var urlErr *url.Error
	require.True(t, errors.As(err, &urlErr))

	_, err = c.FetchMasterMetadata(context.Background(), 1)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-KEY")

	_, err = c.Download(context.Background(), endpoint+"/1.zip?api_key=SECRET-KEY", &bytes.Buffer{})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-KEY")
}

func TestFetchBookMetadataBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	c := NewClient(Options{BooksEndpoint: srv.URL})
	_, err := c.FetchBookMetadata(context.Background(), 3, Versions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestFetchMasterMetadata(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"patch_url": "http://cdn.example.com/master/12.zip", "version": 12}`))
	}))
	defer srv.Close()

	c := NewClient(Options{APIKey: "k", MasterEndpoint: srv.URL + "/master"})
	meta, err := c.FetchMasterMetadata(context.Background(), 0)
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "version=0")
	assert.Contains(t, gotQuery, "api_key=k")
	assert.Equal(t, "https://cdn.example.com/master/12.zip", meta.URL)
	assert.Equal(t, 12, meta.Version)
}

func TestEndpointsRequired(t *testing.T) {
	c := NewClient(Options{})
	_, err := c.FetchBookMetadata(context.Background(), 1, Versions{})
	assert.Error(t, err)
	_, err = c.FetchMasterMetadata(context.Background(), 0)
	assert.Error(t, err)
}

func TestDownload(t *testing.T) {
	payload := bytes.Repeat([]byte("shamela"), 1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/archive.zip" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	c := NewClient(Options{})
	var buf bytes.Buffer
	n, err := c.Download(context.Background(), srv.URL+"/archive.zip", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, buf.Bytes())

	_, err = c.Download(context.Background(), srv.URL+"/missing.zip", &buf)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestDownloadHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(Options{})
	_, err := c.Download(ctx, srv.URL, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSecureURL(t *testing.T) {
	assert.Equal(t, "https://a.example/x", secureURL("http://a.example/x"))
	assert.Equal(t, "https://a.example/x", secureURL("https://a.example/x"))
	assert.Equal(t, "", secureURL(""))
}

func TestRedact(t *testing.T) {
	got := redact("https://api.example/books/1?api_key=topsecret&version=2")
	assert.False(t, strings.Contains(got, "topsecret"))
	assert.Contains(t, got, "version=2")
	assert.Equal(t, "https://api.example/x", redact("https://api.example/x"))
}
