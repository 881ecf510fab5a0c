package server

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"shippingbox/internal/box"
	"shippingbox/internal/kv"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	sessionName     = "shippingbox"
	draftSessionKey = "draft"
)

// Deps are the collaborators a Server renders and persists through. Zero
// values get in-memory defaults.
type Deps struct {
	Controller *box.Controller
	Cache      *box.ViewCache
	Drafts     *box.Drafts
	Sessions   sessions.Store
	Logger     *zap.Logger
}

type Server struct {
	ctrl     *box.Controller
	cache    *box.ViewCache
	drafts   *box.Drafts
	sessions sessions.Store
	log      *zap.Logger
	tmpl     *template.Template
}

// New builds the router for the form and list pages and the JSON API.
func New(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Controller == nil {
		d.Controller = box.NewController(box.NewBlobRepository(kv.NewMemory()), nil)
	}
	if d.Cache == nil {
		d.Cache = box.NewViewCache(d.Controller, d.Logger)
	}
	if d.Drafts == nil {
		d.Drafts = box.NewDrafts(box.DefaultHealDelay, d.Logger)
	}
	if d.Sessions == nil {
		d.Sessions = NewSessionStore(nil)
	}
	s := &Server{
		ctrl:     d.Controller,
		cache:    d.Cache,
		drafts:   d.Drafts,
		sessions: d.Sessions,
		log:      d.Logger,
		tmpl:     template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")),
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/", s.handleForm)
	r.Post("/boxes", s.handleSubmit)
	r.Get("/list", s.handleList)

	r.Route("/api", func(r chi.Router) {
		r.Get("/rates", s.handleGetRates)
		r.Get("/boxes", s.handleListBoxes)
		r.Post("/boxes", s.handleCreateBox)
		r.Get("/boxes/{id}", s.handleGetBox)
		r.Get("/draft", s.handleGetDraft)
		r.Put("/draft/weight", s.handlePutDraftWeight)
	})
	return r
}

// NewSessionStore returns a cookie store signed with key. A nil key gets a
// random one, which invalidates sessions on restart.
func NewSessionStore(key []byte) *sessions.CookieStore {
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
	}
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// session returns the visitor's session; a cookie that no longer decodes
// yields a fresh session instead of an error.
func (s *Server) session(r *http.Request) *sessions.Session {
	sess, err := s.sessions.Get(r, sessionName)
	if err != nil {
		s.log.Debug("discarding unreadable session", zap.Error(err))
	}
	return sess
}

func (s *Server) saveSession(w http.ResponseWriter, r *http.Request, sess *sessions.Session) {
	if err := sess.Save(r, w); err != nil {
		s.log.Warn("failed to save session", zap.Error(err))
	}
}

// draftKey identifies the visitor's form draft. The second result is true
// when a key was just assigned and the session needs saving.
func draftKey(sess *sessions.Session) (string, bool) {
	if key, ok := sess.Values[draftSessionKey].(string); ok && key != "" {
		return key, false
	}
	key := uuid.NewString()
	sess.Values[draftSessionKey] = key
	return key, true
}

// writeErrorJSON writes a standardized JSON error response:
// {"error": {"code": string, "message": string}}
func writeErrorJSON(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

func writeValidationJSON(w http.ResponseWriter, fields box.FieldErrors) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error": map[string]any{
			"code":    "validation_failed",
			"message": "validation failed",
			"fields":  fields,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestIDMiddleware ensures X-Request-ID is set on the response.
// If provided in the request header, it is propagated; otherwise a UUID is generated.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if rid == "" {
			rid = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r)
	})
}
