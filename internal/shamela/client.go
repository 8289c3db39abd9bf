// Package shamela is a client for the library's release API. It resolves
// download URLs for book and catalog archives and streams the archives.
package shamela

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

const defaultTimeout = 60 * time.Second

// BookMetadata describes the downloadable releases of one book. The major
// release is the base database; the minor release, when present, is the
// patch applied on top of it.
type BookMetadata struct {
	MajorRelease    int    `json:"major_release" yaml:"major_release"`
	MajorReleaseURL string `json:"major_release_url" yaml:"major_release_url"`
	MinorRelease    int    `json:"minor_release,omitempty" yaml:"minor_release,omitempty"`
	MinorReleaseURL string `json:"minor_release_url,omitempty" yaml:"minor_release_url,omitempty"`
}

// HasPatch reports whether a minor release is available.
func (m BookMetadata) HasPatch() bool {
	return m.MinorReleaseURL != ""
}

// MasterMetadata describes the catalog archive.
type MasterMetadata struct {
	URL     string `json:"patch_url" yaml:"url"`
	Version int    `json:"version" yaml:"version"`
}

// Versions selects which releases the API should report. Zero means "the
// latest".
type Versions struct {
	Major int
	Minor int
}

// StatusError is returned for non-2xx API responses.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request %s failed: %s", e.URL, e.Status)
}

// Options configures a Client.
type Options struct {
	APIKey         string
	BooksEndpoint  string
	MasterEndpoint string
	Timeout        time.Duration
	HTTPClient     *http.Client
	Logger         logrus.FieldLogger
}

// Client talks to the release API.
type Client struct {
	http           *http.Client
	apiKey         string
	booksEndpoint  string
	masterEndpoint string
	log            logrus.FieldLogger
}

// NewClient creates a client. The HTTP client's timeout covers metadata
// requests and archive downloads alike.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}

	return &Client{
		http:           httpClient,
		apiKey:         opts.APIKey,
		booksEndpoint:  strings.TrimRight(opts.BooksEndpoint, "/"),
		masterEndpoint: opts.MasterEndpoint,
		log:            log,
	}
}

// FetchBookMetadata resolves the release URLs of book id.
func (c *Client) FetchBookMetadata(ctx context.Context, id int, v Versions) (*BookMetadata, error) {
	if c.booksEndpoint == "" {
		return nil, fmt.Errorf("books endpoint not configured")
	}

	endpoint := fmt.Sprintf("%s/%d", c.booksEndpoint, id)
	query := url.Values{}
	query.Set("major_release", strconv.Itoa(v.Major))
	query.Set("minor_release", strconv.Itoa(v.Minor))

	var meta BookMetadata
	if err := c.getJSON(ctx, endpoint, query, &meta); err != nil {
		return nil, fmt.Errorf("book %d metadata: %w", id, err)
	}
	if meta.MajorReleaseURL == "" {
		return nil, fmt.Errorf("book %d metadata: no major release url", id)
	}

	meta.MajorReleaseURL = secureURL(meta.MajorReleaseURL)
	meta.MinorReleaseURL = secureURL(meta.MinorReleaseURL)
	return &meta, nil
}

// FetchMasterMetadata resolves the catalog archive URL for a version.
func (c *Client) FetchMasterMetadata(ctx context.Context, version int) (*MasterMetadata, error) {
	if c.masterEndpoint == "" {
		return nil, fmt.Errorf("master endpoint not configured")
	}

	query := url.Values{}
	query.Set("version", strconv.Itoa(version))

	var meta MasterMetadata
	if err := c.getJSON(ctx, c.masterEndpoint, query, &meta); err != nil {
		return nil, fmt.Errorf("master metadata: %w", err)
	}
	if meta.URL == "" {
		return nil, fmt.Errorf("master metadata: no patch url")
	}

	meta.URL = secureURL(meta.URL)
	return &meta, nil
}

// Download streams the resource at rawURL into w and returns the byte count.
func (c *Client) Download(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download failed: %w", redactError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, URL: redact(rawURL)}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download interrupted after %d bytes: %w", n, err)
	}

	c.log.WithFields(logrus.Fields{"url": redact(rawURL), "bytes": n}).Debug("downloaded")
	return n, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, dst interface{}) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", redactError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, URL: redact(u.String())}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	c.log.WithField("url", redact(u.String())).Debug("fetched metadata")
	return nil
}

// secureURL upgrades http download links to https.
func secureURL(raw string) string {
	if strings.HasPrefix(raw, "http://") {
		return "https://" + strings.TrimPrefix(raw, "http://")
	}
	return raw
}

// redactError strips the api_key from the URL a transport error carries.
func redactError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = redact(ue.URL)
	}
	return err
}

// redact hides the api_key query parameter.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
