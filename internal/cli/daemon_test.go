package cli

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lherron/shamela/internal/domain"
	"github.com/lherron/shamela/internal/logging"
	"github.com/lherron/shamela/internal/shamela"
)

type fakeLibrary struct {
	bookErr    error
	gotID      int
	gotMajor   int
	gotVersion int
}

func (f *fakeLibrary) GetBook(ctx context.Context, id int, v shamela.Versions) (*domain.BookData, *shamela.BookMetadata, error) {
	f.gotID, f.gotMajor = id, v.Major
	if f.bookErr != nil {
		return nil, nil, f.bookErr
	}
	return &domain.BookData{
		Pages:  []domain.Page{{ID: 1, Content: "بسم الله"}},
		Titles: []domain.Title{},
	}, &shamela.BookMetadata{MajorRelease: 3, MajorReleaseURL: "https://cdn/3.zip"}, nil
}

func (f *fakeLibrary) GetMaster(ctx context.Context, version int) (*domain.MasterData, *shamela.MasterMetadata, error) {
	f.gotVersion = version
	return &domain.MasterData{
		Authors:    []domain.Author{{ID: 1, Name: "Ibn Kathir"}},
		Books:      []domain.Book{},
		Categories: []domain.Category{},
	}, &shamela.MasterMetadata{URL: "https://cdn/m.zip", Version: 9}, nil
}

func newTestDaemon(t *testing.T, lib bookLibrary, token string) *httptest.Server {
	t.Helper()
	s := &daemonServer{lib: lib, log: logging.Discard(), token: token}
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, req *http.Request, dst interface{}) *http.Response {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if dst != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	}
	return resp
}

func TestDaemon_Health(t *testing.T) {
	srv := newTestDaemon(t, &fakeLibrary{}, "")

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/health", nil)
	var body map[string]interface{}
	resp := getJSON(t, req, &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestDaemon_Auth(t *testing.T) {
	srv := newTestDaemon(t, &fakeLibrary{}, "s3cret")

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/health", nil)
	resp := getJSON(t, req, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	for _, wrong := range []string{"s3cre", "s3cret!", "S3CRET"} {
		req, _ = http.NewRequest(http.MethodGet, srv.URL+"/v1/health", nil)
		req.Header.Set("Authorization", "Bearer "+wrong)
		resp = getJSON(t, req, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, wrong)
	}

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/v1/health", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	resp = getJSON(t, req, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/v1/health", nil)
	req.Header.Set("X-Shamelad-Token", "s3cret")
	req.Header.Set("X-Request-Id", "req-1")
	resp = getJSON(t, req, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-1", resp.Header.Get("X-Request-Id"))
}

func TestDaemon_Book(t *testing.T) {
	lib := &fakeLibrary{}
	srv := newTestDaemon(t, lib, "")

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/books/26592?major=2", nil)
	var body bookResponse
	resp := getJSON(t, req, &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 26592, lib.gotID)
	assert.Equal(t, 2, lib.gotMajor)
	assert.Equal(t, 26592, body.ID)
	assert.Equal(t, 3, body.Release.MajorRelease)
	require.Len(t, body.Pages, 1)
	assert.Equal(t, "بسم الله", body.Pages[0].Content)
}

func TestDaemon_BookErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		err    error
		status int
	}{
		{"bad id", "/v1/books/abc", nil, http.StatusBadRequest},
		{"zero id", "/v1/books/0", nil, http.StatusBadRequest},
		{"bad major", "/v1/books/1?major=x", nil, http.StatusBadRequest},
		{"upstream 404", "/v1/books/1", &shamela.StatusError{StatusCode: 404, Status: "404 Not Found"}, http.StatusNotFound},
		{"upstream 500", "/v1/books/1", &shamela.StatusError{StatusCode: 500, Status: "500"}, http.StatusBadGateway},
		{"no database", "/v1/books/1", fmt.Errorf("book 1: %w", domain.ErrSourceUnavailable), http.StatusBadGateway},
		{"malformed", "/v1/books/1", &domain.MalformedCellError{Table: "page", Column: "id"}, http.StatusBadGateway},
		{"other", "/v1/books/1", fmt.Errorf("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestDaemon(t, &fakeLibrary{bookErr: tt.err}, "")

			req, _ := http.NewRequest(http.MethodGet, srv.URL+tt.path, nil)
			var body map[string]interface{}
			resp := getJSON(t, req, &body)

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestDaemon_MethodNotAllowed(t *testing.T) {
	srv := newTestDaemon(t, &fakeLibrary{}, "")

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/books/1", nil)
	resp := getJSON(t, req, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestDaemon_Master(t *testing.T) {
	lib := &fakeLibrary{}
	srv := newTestDaemon(t, lib, "")

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/master?version=4", nil)
	var body masterResponse
	resp := getJSON(t, req, &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 4, lib.gotVersion)
	assert.Equal(t, 9, body.Release.Version)
	require.Len(t, body.Authors, 1)
	assert.Equal(t, "Ibn Kathir", body.Authors[0].Name)

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/v1/master?version=-1", nil)
	resp = getJSON(t, req, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
