// Package api exposes the metadata service and its supporting actions
// over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"dbmeta/internal/db"
	"dbmeta/internal/logger"
	"dbmeta/internal/metadata"
	"dbmeta/internal/session"
	"dbmeta/internal/weberr"
	"dbmeta/pkg/config"
)

// MetadataService is the metadata contract plus access to the catalog
// handle of a session, which the navigator actions need.
type MetadataService interface {
	metadata.Service
	Handle(ctx context.Context, sess *session.Session) (*db.Handle, error)
	Release(h *db.Handle)
}

// Config holds the HTTP-facing settings.
type Config struct {
	Defaults       config.DBConfig // used when POST /api/session has no body
	CookieName     string
	ConnectTimeout int // seconds
}

// Server wires sessions, the metadata service and the action table to routes.
type Server struct {
	sessions       *session.Manager
	meta           MetadataService
	defaults       config.DBConfig
	cookie         string
	connectTimeout int
	actions        map[string]Action
}

func NewServer(sessions *session.Manager, meta MetadataService, cfg Config) *Server {
	if cfg.CookieName == "" {
		cfg.CookieName = "dbmeta_session"
	}
	s := &Server{
		sessions:       sessions,
		meta:           meta,
		defaults:       cfg.Defaults,
		cookie:         cfg.CookieName,
		connectTimeout: cfg.ConnectTimeout,
	}
	s.actions = s.actionTable()
	return s
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/dialects", s.handleDialects)
		r.Get("/connection/defaults", s.handleDefaults)
		r.Get("/actions", s.handleActionList)
		r.Post("/session", s.handleOpenSession)
		r.Delete("/session", s.handleCloseSession)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Post("/actions/{action}", s.handleAction)
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeResult(w, map[string]string{"status": "ok"})
}

func (s *Server) handleDialects(w http.ResponseWriter, r *http.Request) {
	writeResult(w, db.RegisteredDialects())
}

func (s *Server) handleActionList(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.ActionNames())
}

// handleDefaults returns the configured database with the password masked.
func (s *Server) handleDefaults(w http.ResponseWriter, r *http.Request) {
	d := s.defaults
	d.Type = config.NormalizeDriver(d.Type)
	if d.Password != "" {
		d.Password = "***"
	}
	if d.DSN != "" {
		d.DSN = logger.Mask(d.DSN)
	}
	writeResult(w, d)
}

type sessionResult struct {
	Token     string    `json:"token"`
	SessionID string    `json:"sessionId"`
	Dialect   string    `json:"dialect"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// handleOpenSession connects to the posted database (or the configured
// default on an empty body) and returns a session token.
func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	dbReq := s.defaults
	if r.Body != nil {
		var posted config.DBConfig
		err := json.NewDecoder(r.Body).Decode(&posted)
		switch {
		case errors.Is(err, io.EOF):
		case err != nil:
			writeError(w, r, weberr.Wrap(weberr.BadRequest, "invalid json", err))
			return
		default:
			dbReq = posted
		}
	}

	driver, dsn, err := config.BuildDriverAndDSN(dbReq)
	if err != nil {
		writeError(w, r, weberr.Wrap(weberr.BadRequest, err.Error(), err))
		return
	}

	conn := session.ConnectionInfo{Driver: driver, DSN: dsn, Timeout: s.connectTimeout}
	sess, token, err := s.sessions.Open(r.Context(), conn, r.RemoteAddr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// the session is only handed out once its database answers
	h, err := s.meta.Handle(r.Context(), sess)
	if err != nil {
		if cerr := s.sessions.Close(r.Context(), token); cerr != nil {
			writeError(w, r, cerr)
			return
		}
		writeError(w, r, err)
		return
	}
	s.meta.Release(h)

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})
	writeResult(w, sessionResult{Token: token, SessionID: sess.ID, Dialect: driver, ExpiresAt: sess.ExpiresAt})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(r.Context(), s.token(r)); err != nil {
		if session.IsInvalid(err) {
			err = weberr.Wrap(weberr.SessionInvalid, "session is missing, unknown or expired", err)
		}
		writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: s.cookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	writeResult(w, map[string]bool{"closed": true})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "action")
	act, ok := s.actions[name]
	if !ok {
		writeError(w, r, weberr.Newf(weberr.UnknownAction, "unknown action %q", name))
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, weberr.Wrap(weberr.BadRequest, "cannot read body", err))
		return
	}

	result, err := act(r.Context(), SessionFrom(r.Context()), json.RawMessage(raw))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResult(w, result)
}
