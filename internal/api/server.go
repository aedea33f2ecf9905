package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"qaboard/internal/ai"
	"qaboard/internal/maintenance"
	"qaboard/internal/session"
	"qaboard/internal/store"
	"qaboard/pkg/types"
)

// Broadcaster is the hub surface the API needs: fan-out after mutations
// plus membership introspection.
type Broadcaster interface {
	Broadcast(event types.Event)
	Count() int
	Members() []types.Member
}

// Server exposes the HTTP API. Pure transport: request parsing, status
// mapping and JSON serialization; all behavior lives in the components.
type Server struct {
	store    *store.Store
	sessions *session.Manager
	maint    *maintenance.Machine
	hub      Broadcaster
	gen      ai.Generator
	log      zerolog.Logger
	router   chi.Router
}

// NewServer wires the API routes.
func NewServer(st *store.Store, sessions *session.Manager, maint *maintenance.Machine, hub Broadcaster, gen ai.Generator, log zerolog.Logger) *Server {
	s := &Server{
		store:    st,
		sessions: sessions,
		maint:    maint,
		hub:      hub,
		gen:      gen,
		log:      log.With().Str("component", "api").Logger(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(s.requestLogger)

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/questions", s.listQuestions)
		r.Post("/questions", s.createQuestion)
		r.Post("/questions/{id}/replies", s.createReply)
		r.Get("/members/count", s.memberCount)
		r.Post("/admin/login", s.login)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Delete("/questions", s.clearQuestions)
			r.Delete("/questions/{id}", s.deleteQuestion)
			r.Delete("/questions/{id}/replies/{rid}", s.deleteReply)
			r.Get("/admin/maintenance", s.getMaintenance)
			r.Post("/admin/maintenance", s.setMaintenance)
			r.Put("/admin/maintenance", s.setMaintenance)
			r.Delete("/admin/maintenance", s.disableMaintenance)
			r.Get("/admin/members", s.listMembers)
			r.Post("/admin/logout", s.logout)
		})
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Request/response types.

type postContentRequest struct {
	Text   string `json:"text"`
	Author string `json:"author,omitempty"`
	UseAI  bool   `json:"useAI,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type setMaintenanceRequest struct {
	Message         string `json:"message,omitempty"`
	LogoURL         string `json:"logoUrl,omitempty"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
}

type errorResponse struct {
	Error       string                   `json:"error"`
	Code        int                      `json:"code"`
	Maintenance *types.MaintenanceStatus `json:"maintenance,omitempty"`
}

// Handlers.

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (s *Server) listQuestions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.List())
}

func (s *Server) createQuestion(w http.ResponseWriter, r *http.Request) {
	if s.rejectDuringMaintenance(w) {
		return
	}

	var req postContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	q, err := s.store.CreateQuestion(req.Text, req.Author)
	if err != nil {
		s.mapError(w, err)
		return
	}

	s.hub.Broadcast(types.Event{Type: types.EventQuestionCreated, Payload: q})
	s.writeJSON(w, http.StatusCreated, q)

	if req.UseAI {
		go s.generateReply(q.ID, q.Text)
	}
}

func (s *Server) createReply(w http.ResponseWriter, r *http.Request) {
	if s.rejectDuringMaintenance(w) {
		return
	}

	var req postContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	questionID := chi.URLParam(r, "id")
	reply, err := s.store.AppendReply(questionID, req.Text, req.Author)
	if err != nil {
		s.mapError(w, err)
		return
	}

	s.hub.Broadcast(types.Event{
		Type:    types.EventReplyAdded,
		Payload: map[string]any{"questionId": questionID, "reply": reply},
	})
	s.writeJSON(w, http.StatusCreated, reply)

	if req.UseAI {
		go s.generateReply(questionID, reply.Text)
	}
}

// generateReply runs the second, best-effort phase of an AI-assisted
// write: generate, append and broadcast independently of the already
// committed response. Ordering relative to the primary broadcast is not
// guaranteed, and a question deleted in the meantime drops the answer.
func (s *Server) generateReply(questionID, prompt string) {
	answer := s.gen.Generate(context.Background(), prompt)

	reply, err := s.store.AppendReply(questionID, answer, types.AIAuthor)
	if err != nil {
		s.log.Debug().Err(err).Str("question", questionID).Msg("generated reply dropped")
		return
	}

	s.hub.Broadcast(types.Event{
		Type:    types.EventReplyAdded,
		Payload: map[string]any{"questionId": questionID, "reply": reply},
	})
}

func (s *Server) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q, err := s.store.DeleteQuestion(id)
	if err != nil {
		s.mapError(w, err)
		return
	}

	s.hub.Broadcast(types.Event{
		Type:    types.EventQuestionDeleted,
		Payload: map[string]string{"id": id},
	})
	s.writeJSON(w, http.StatusOK, q)
}

func (s *Server) deleteReply(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "id")
	replyID := chi.URLParam(r, "rid")

	reply, err := s.store.DeleteReply(questionID, replyID)
	if err != nil {
		s.mapError(w, err)
		return
	}

	s.hub.Broadcast(types.Event{
		Type:    types.EventReplyDeleted,
		Payload: map[string]string{"questionId": questionID, "replyId": replyID},
	})
	s.writeJSON(w, http.StatusOK, reply)
}

func (s *Server) clearQuestions(w http.ResponseWriter, r *http.Request) {
	s.store.Clear()
	s.hub.Broadcast(types.Event{Type: types.EventQuestionsCleared})
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "board cleared"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	token, err := s.sessions.Login(req.Username, req.Password)
	if err != nil {
		s.mapError(w, err)
		return
	}

	s.log.Info().Str("username", req.Username).Msg("admin logged in")
	s.writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Revoke(bearerToken(r))
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) getMaintenance(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.maint.Status())
}

func (s *Server) setMaintenance(w http.ResponseWriter, r *http.Request) {
	var req setMaintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	duration := time.Duration(req.DurationMinutes) * time.Minute
	status := s.maint.Enable(req.Message, req.LogoURL, duration)

	s.log.Info().Int("durationMinutes", req.DurationMinutes).Msg("maintenance enabled")
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) disableMaintenance(w http.ResponseWriter, r *http.Request) {
	status := s.maint.Disable()
	s.log.Info().Msg("maintenance disabled")
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) memberCount(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]int{"count": s.hub.Count()})
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.hub.Members())
}

// Middleware.

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.sendError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if err := s.sessions.Validate(token); err != nil {
			s.sendError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// Helpers.

// rejectDuringMaintenance answers 503 with the current snapshot when the
// board is in maintenance. Write endpoints call it before touching the
// store.
func (s *Server) rejectDuringMaintenance(w http.ResponseWriter) bool {
	if !s.maint.Active() {
		return false
	}
	status := s.maint.Status()
	s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{
		Error:       "service is under maintenance",
		Code:        http.StatusServiceUnavailable,
		Maintenance: &status,
	})
	return true
}

// mapError translates component sentinels into HTTP status codes.
func (s *Server) mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrEmptyText):
		s.sendError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrQuestionNotFound), errors.Is(err, store.ErrReplyNotFound):
		s.sendError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrInvalidCredentials),
		errors.Is(err, session.ErrInvalidSession),
		errors.Is(err, session.ErrSessionExpired):
		s.sendError(w, http.StatusUnauthorized, err.Error())
	default:
		s.log.Error().Err(err).Msg("unexpected error")
		s.sendError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) sendError(w http.ResponseWriter, code int, message string) {
	s.writeJSON(w, code, errorResponse{Error: message, Code: code})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug().Err(err).Msg("response encoding failed")
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, prefix))
}
