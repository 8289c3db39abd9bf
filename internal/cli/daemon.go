package cli

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lherron/shamela/internal/config"
	"github.com/lherron/shamela/internal/domain"
	"github.com/lherron/shamela/internal/library"
	"github.com/lherron/shamela/internal/logging"
	"github.com/lherron/shamela/internal/shamela"
)

// DaemonOptions configures the shamelad daemon.
type DaemonOptions struct {
	Addr  string
	Unix  string
	Token string
}

// bookLibrary is the part of *library.Library the daemon serves.
type bookLibrary interface {
	GetBook(ctx context.Context, id int, v shamela.Versions) (*domain.BookData, *shamela.BookMetadata, error)
	GetMaster(ctx context.Context, version int) (*domain.MasterData, *shamela.MasterMetadata, error)
}

// ServeDaemon starts the shamelad daemon and blocks until ctx is cancelled
// or the listener fails.
func ServeDaemon(ctx context.Context, opts DaemonOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.RequireRemote(); err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}

	client := shamela.NewClient(shamela.Options{
		APIKey:         cfg.APIKey,
		BooksEndpoint:  cfg.BooksEndpoint,
		MasterEndpoint: cfg.MasterEndpoint,
		Timeout:        cfg.HTTPTimeout(),
		Logger:         log,
	})
	server := &daemonServer{
		lib: library.New(client, library.Options{
			WorkDir:  cfg.WorkDir,
			Driver:   cfg.Driver,
			Sentinel: cfg.Sentinel,
			Logger:   log,
		}),
		log:   log,
		token: opts.Token,
	}

	mux := http.NewServeMux()
	server.registerRoutes(mux)

	// Assembling a large book can take minutes.
	httpServer := &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
	}

	var listener net.Listener
	if opts.Unix != "" {
		_ = os.Remove(opts.Unix)
		listener, err = net.Listen("unix", opts.Unix)
		if err != nil {
			return fmt.Errorf("failed to listen on unix socket: %w", err)
		}
	} else {
		addr := opts.Addr
		if addr == "" {
			addr = "127.0.0.1:7272"
		}
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", listener.Addr().String()).Info("shamelad listening")
	if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type daemonServer struct {
	lib   bookLibrary
	log   logrus.FieldLogger
	token string
}

func (s *daemonServer) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/health", s.withAuth(s.handleHealth))
	mux.HandleFunc("/v1/books/{id}", s.withAuth(s.handleBook))
	mux.HandleFunc("/v1/master", s.withAuth(s.handleMaster))
}

type requestLoggerKey struct{}

func (s *daemonServer) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)

		log := s.log.WithFields(logrus.Fields{"request_id": requestID, "path": r.URL.Path})
		r = r.WithContext(context.WithValue(r.Context(), requestLoggerKey{}, log))

		if s.token != "" {
			token := r.Header.Get("Authorization")
			if strings.HasPrefix(token, "Bearer ") {
				token = strings.TrimPrefix(token, "Bearer ")
			}
			if token == "" {
				token = r.Header.Get("X-Shamelad-Token")
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
				s.writeError(w, r, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
				return
			}
		}

		start := time.Now()
		next(w, r)
		log.WithField("elapsed", time.Since(start).String()).Debug("request served")
	}
}

func (s *daemonServer) requestLog(r *http.Request) logrus.FieldLogger {
	if log, ok := r.Context().Value(requestLoggerKey{}).(logrus.FieldLogger); ok {
		return log
	}
	return s.log
}

func (s *daemonServer) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func (s *daemonServer) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= 500 {
		s.requestLog(r).WithError(err).Error("request failed")
	}
	s.writeJSON(w, status, map[string]interface{}{
		"message": err.Error(),
	})
}

// statusFor maps an assembly error to an HTTP status.
func statusFor(err error) int {
	var statusErr *shamela.StatusError
	switch {
	case errors.As(err, &statusErr):
		if statusErr.StatusCode == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrSourceUnavailable), errors.Is(err, domain.ErrMalformedCell):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *daemonServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, r, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"time": time.Now().UTC().Format(time.RFC3339),
	})
}

type bookResponse struct {
	ID       int                   `json:"id"`
	Release  *shamela.BookMetadata `json:"release"`
	Pages    []domain.Page         `json:"pages"`
	Titles   []domain.Title        `json:"titles"`
	Duration string                `json:"duration"`
}

func (s *daemonServer) handleBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, r, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}

	id, err := domain.ParseBookID(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	var versions shamela.Versions
	if versions.Major, err = queryInt(r, "major"); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if versions.Minor, err = queryInt(r, "minor"); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	data, meta, err := s.lib.GetBook(r.Context(), id, versions)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, bookResponse{
		ID:       id,
		Release:  meta,
		Pages:    data.Pages,
		Titles:   data.Titles,
		Duration: time.Since(start).String(),
	})
}

type masterResponse struct {
	Release    *shamela.MasterMetadata `json:"release"`
	Authors    []domain.Author         `json:"authors"`
	Books      []domain.Book           `json:"books"`
	Categories []domain.Category       `json:"categories"`
}

func (s *daemonServer) handleMaster(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, r, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}

	version, err := queryInt(r, "version")
	if err == nil {
		err = domain.ValidateVersion(version)
	}
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	data, meta, err := s.lib.GetMaster(r.Context(), version)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, masterResponse{
		Release:    meta,
		Authors:    data.Authors,
		Books:      data.Books,
		Categories: data.Categories,
	})
}

// queryInt reads an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", name, raw)
	}
	return n, nil
}
