package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/ymgch/anisync/internal/models"
	"github.com/ymgch/anisync/internal/repositories"
	"github.com/ymgch/anisync/internal/shared"
	"github.com/ymgch/anisync/internal/tasks"
)

// ImportRunner is the subset of the import engine the API needs.
type ImportRunner interface {
	Run(ctx context.Context, progress chan<- tasks.ProgressUpdate, statuses []string) (*tasks.ImportRunResult, error)
	Tracker() *tasks.Tracker
}

// SourceAuthenticator reports whether the watch-history source holds a
// usable credential. A nil authenticator disables the pre-flight check.
type SourceAuthenticator interface {
	Authenticated() bool
}

// WorkLister lists imported works with their theme songs.
type WorkLister interface {
	ListWithThemes(userID string) ([]repositories.WorkRow, error)
}

// UserDirectory resolves the default user for single-user deployments.
type UserDirectory interface {
	First() (string, error)
}

// APIHandler serves the import API: run triggering, progress polling and
// work listings.
type APIHandler struct {
	engine   ImportRunner
	source   SourceAuthenticator
	works    WorkLister
	users    UserDirectory
	statuses []string
	logger   *log.Logger
}

// NewAPIHandler creates the API handler.
//
// statuses is the default watch-status filter set used when a run request
// does not name its own.
func NewAPIHandler(engine ImportRunner, source SourceAuthenticator, works WorkLister, users UserDirectory, statuses []string, logger *log.Logger) *APIHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &APIHandler{
		engine:   engine,
		source:   source,
		works:    works,
		users:    users,
		statuses: statuses,
		logger:   logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *APIHandler) Routes() []string {
	return []string{"/api/import", "/api/progress", "/api/works", "/health"}
}

// ServeHTTP dispatches to the endpoint handlers.
func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/import":
		h.handleImport(w, r)
	case "/api/progress":
		h.handleProgress(w, r)
	case "/api/works":
		h.handleWorks(w, r)
	case "/health":
		h.handleHealth(w, r)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

type importRequest struct {
	Statuses []string `json:"statuses"`
	Async    bool     `json:"async"`
}

// handleImport runs an import and replies with the run result.
//
// The default mode is synchronous so the response carries the full result
// payload. Clients that prefer polling the progress endpoint instead opt in
// with "async": true and get a 202 back immediately.
func (h *APIHandler) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req importRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			req = importRequest{}
		}
	}

	statuses := h.statuses
	if len(req.Statuses) > 0 {
		statuses = req.Statuses
	}

	for _, status := range statuses {
		if !models.ValidStatus(status) {
			writeError(w, http.StatusBadRequest, "invalid watch status: "+status)
			return
		}
	}
	if len(statuses) == 0 {
		writeError(w, http.StatusBadRequest, "no watch statuses given")
		return
	}

	if h.source != nil && !h.source.Authenticated() {
		writeError(w, http.StatusUnauthorized, "annict authentication required, connect your account first")
		return
	}

	if h.engine.Tracker().Running() {
		writeError(w, http.StatusConflict, "an import is already running")
		return
	}

	if req.Async {
		go func() {
			if _, err := h.engine.Run(context.Background(), nil, statuses); err != nil {
				h.logger.Error("import run failed", "error", err)
			}
		}()

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]any{
			"status":   "started",
			"statuses": statuses,
		})
		return
	}

	result, err := h.engine.Run(r.Context(), nil, statuses)
	if err != nil {
		h.logger.Error("import run failed", "error", err)
		writeError(w, importErrorStatus(err), err.Error())
		return
	}

	json.NewEncoder(w).Encode(result)
}

// importErrorStatus maps run failures onto HTTP status codes. Missing or
// rejected credentials read as 401, upstream source failures as 502.
func importErrorStatus(err error) int {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrMissingCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrSourceFetch):
		return http.StatusBadGateway
	case errors.Is(err, shared.ErrJobRunning):
		return http.StatusConflict
	case errors.Is(err, shared.ErrInvalidStatus):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleProgress reports the live state of the current or last run.
func (h *APIHandler) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	json.NewEncoder(w).Encode(h.engine.Tracker().Snapshot())
}

// handleWorks lists imported works with their theme songs.
func (h *APIHandler) handleWorks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID := r.URL.Query().Get("user")
	if userID == "" {
		id, err := h.users.First()
		if err != nil {
			if errors.Is(err, shared.ErrUserNotFound) {
				json.NewEncoder(w).Encode(map[string]any{"works": []repositories.WorkRow{}})
				return
			}
			h.logger.Error("user lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to resolve user")
			return
		}
		userID = id
	}

	works, err := h.works.ListWithThemes(userID)
	if err != nil {
		h.logger.Error("work listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list works")
		return
	}
	if works == nil {
		works = []repositories.WorkRow{}
	}

	json.NewEncoder(w).Encode(map[string]any{"works": works})
}

// handleHealth reports service liveness.
func (h *APIHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

var _ Handler = (*APIHandler)(nil)
