package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fieldbook/api/internal/questionnaire"
	"github.com/rs/zerolog"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	log        zerolog.Logger
}

func NewHTTPServer(service *Service, corsOrigin string, log zerolog.Logger) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin, log: log}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		s.handleReady(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		writeJSON(w, http.StatusOK, s.service.Search(r.URL.Query().Get("q"), limit, offset))
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) >= 2 && parts[0] == "api" && parts[1] == "questionnaires" {
		s.handleQuestionnaires(w, r, parts)
		return
	}

	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "editor" && parts[2] == "sessions" {
		s.handleSessions(w, r, parts)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
		"drafts":   map[string]any{"status": "ok"},
	}

	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}
	if err := s.service.DraftsPing(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["drafts"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleQuestionnaires(w http.ResponseWriter, r *http.Request, parts []string) {
	actor := actorName(r)

	if len(parts) == 2 {
		switch r.Method {
		case http.MethodGet:
			items, err := s.service.ListQuestionnaires(r.Context())
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": items})
		case http.MethodPost:
			var body CreateQuestionnaireInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			doc, err := s.service.CreateQuestionnaire(r.Context(), actor, body)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, doc)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	id := parts[2]

	if len(parts) == 4 && parts[3] == "history" && r.Method == http.MethodGet {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		items, err := s.service.History(r.Context(), id, limit)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
		return
	}

	if len(parts) != 3 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}

	switch r.Method {
	case http.MethodGet:
		doc, err := s.service.GetQuestionnaire(r.Context(), id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case http.MethodPut:
		var body questionnaire.DocumentPatch
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		doc, err := s.service.UpdateQuestionnaire(r.Context(), actor, id, body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case http.MethodDelete:
		if err := s.service.DeleteQuestionnaire(r.Context(), actor, id); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

type pathBody struct {
	Path       string `json:"path"`
	ParentPath string `json:"parentPath"`
	Index      int    `json:"index"`
}

func (s *HTTPServer) handleSessions(w http.ResponseWriter, r *http.Request, parts []string) {
	ctx := r.Context()

	if len(parts) == 3 {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		var body StartSessionInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		view, err := s.service.StartSession(ctx, actorName(r), body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, view)
		return
	}

	sessionID := parts[3]
	action := strings.Join(parts[4:], "/")

	var (
		view SessionView
		err  error
	)
	switch {
	case action == "" && r.Method == http.MethodGet:
		view, err = s.service.GetSession(ctx, sessionID)
	case action == "" && r.Method == http.MethodDelete:
		if err := s.service.CloseSession(ctx, sessionID); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	case action == "questions" && r.Method == http.MethodPost:
		var body pathBody
		parent, ok := decodePath(w, r, &body, func() string { return body.ParentPath })
		if !ok {
			return
		}
		view, err = s.service.AddQuestion(ctx, sessionID, parent)
	case action == "questions" && r.Method == http.MethodPatch:
		var body struct {
			Path  string              `json:"path"`
			Patch questionnaire.Patch `json:"patch"`
		}
		path, ok := decodePath(w, r, &body, func() string { return body.Path })
		if !ok {
			return
		}
		view, err = s.service.UpdateQuestion(ctx, sessionID, path, body.Patch)
	case action == "questions" && r.Method == http.MethodDelete:
		path, perr := questionnaire.ParsePath(r.URL.Query().Get("path"))
		if perr != nil {
			writeError(w, http.StatusBadRequest, "INVALID_PATH", perr.Error(), nil)
			return
		}
		view, err = s.service.RemoveQuestion(ctx, sessionID, path)
	case action == "duplicate" && r.Method == http.MethodPost:
		var body pathBody
		path, ok := decodePath(w, r, &body, func() string { return body.Path })
		if !ok {
			return
		}
		view, err = s.service.DuplicateQuestion(ctx, sessionID, path)
	case action == "expand" && r.Method == http.MethodPost:
		var body struct {
			Key string `json:"key"`
		}
		if derr := decodeBody(r, &body); derr != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", derr.Error(), nil)
			return
		}
		view, err = s.service.ToggleExpanded(ctx, sessionID, body.Key)
	case action == "drag/start" && r.Method == http.MethodPost:
		var body pathBody
		parent, ok := decodePath(w, r, &body, func() string { return body.ParentPath })
		if !ok {
			return
		}
		view, err = s.service.BeginDrag(ctx, sessionID, parent, body.Index)
	case action == "drag/drop" && r.Method == http.MethodPost:
		var body pathBody
		parent, ok := decodePath(w, r, &body, func() string { return body.ParentPath })
		if !ok {
			return
		}
		view, err = s.service.Drop(ctx, sessionID, parent, body.Index)
	case action == "drag/end" && r.Method == http.MethodPost:
		view, err = s.service.EndDrag(ctx, sessionID)
	case action == "meta" && r.Method == http.MethodPut:
		var body UpdateMetaInput
		if derr := decodeBody(r, &body); derr != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", derr.Error(), nil)
			return
		}
		view, err = s.service.UpdateMeta(ctx, sessionID, body)
	case action == "save" && r.Method == http.MethodPost:
		view, err = s.service.SaveSession(ctx, actorName(r), sessionID)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}

	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// decodePath decodes the body into target and parses the path key returned
// by field. It writes the 400 response itself and reports false on failure.
func decodePath(w http.ResponseWriter, r *http.Request, target any, field func() string) (questionnaire.Path, bool) {
	if err := decodeBody(r, target); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return nil, false
	}
	path, err := questionnaire.ParsePath(field())
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PATH", err.Error(), nil)
		return nil, false
	}
	return path, true
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("request_id", requestID(r)).Str("code", code).Msg("request failed")
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", writer.status).
			Int64("duration_ms", time.Since(started).Milliseconds()).
			Msg("request")
	})
}

type requestIDKey struct{}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, X-User-Name")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) || errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

// actorName identifies who made a change. Authentication lives outside this
// service, so the caller passes the name through.
func actorName(r *http.Request) string {
	return actorOrDefault(r.Header.Get("X-User-Name"))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
