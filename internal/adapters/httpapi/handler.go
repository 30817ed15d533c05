// Package httpapi exposes program rollups and the scheduler's progress
// mutations over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"obscore/internal/archive"
	"obscore/internal/core"
	"obscore/pkg/domain"
)

// ProgramService is the subset of core.Service the API calls.
type ProgramService interface {
	PutProgram(ctx context.Context, p domain.Program) (domain.Program, domain.Result, error)
	DeleteProgram(ctx context.Context, id domain.ProgramID) (domain.Result, error)
	GetProgram(ctx context.Context, id domain.ProgramID) (domain.Program, error)
	ListPrograms(ctx context.Context) []domain.Program
	MarkAtomObserved(ctx context.Context, programID domain.ProgramID, obsID domain.ObservationID, atomID string, qa domain.QAState) (domain.Program, domain.Result, error)
	SetPrevious(ctx context.Context, programID domain.ProgramID, groupID domain.GroupID, index int) (domain.Program, domain.Result, error)
	ClearPrevious(ctx context.Context, programID domain.ProgramID, groupID domain.GroupID) (domain.Program, domain.Result, error)
	SetObservationStatus(ctx context.Context, programID domain.ProgramID, obsID domain.ObservationID, status domain.ObservationStatus, active bool) (domain.Program, domain.Result, error)
	Rollup(ctx context.Context, id domain.ProgramID) (core.ProgramRollup, error)
	ArchiveRollup(ctx context.Context, id domain.ProgramID) (archive.Info, core.ProgramRollup, error)
}

var _ ProgramService = (*core.Service)(nil)

const maxBodyBytes = 8 << 20

// Handler serves the program API.
type Handler struct {
	svc      ProgramService
	log      *slog.Logger
	gatherer prometheus.Gatherer
	access   io.Writer
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for failures and recovered panics.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithGatherer serves /metrics from g instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *Handler) { h.gatherer = g }
}

// WithAccessLog writes an Apache combined log line per request to w.
func WithAccessLog(w io.Writer) Option {
	return func(h *Handler) { h.access = w }
}

// New constructs the API handler.
func New(svc ProgramService, opts ...Option) *Handler {
	h := &Handler{svc: svc, log: slog.New(slog.DiscardHandler), gatherer: prometheus.DefaultGatherer}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router builds the route table wrapped in panic recovery and, when
// configured, access logging.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.Handle("/debug/vars", expvar.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/programs", h.listPrograms).Methods(http.MethodGet)
	api.HandleFunc("/programs/{program}", h.getProgram).Methods(http.MethodGet)
	api.HandleFunc("/programs/{program}", h.putProgram).Methods(http.MethodPut)
	api.HandleFunc("/programs/{program}", h.deleteProgram).Methods(http.MethodDelete)
	api.HandleFunc("/programs/{program}/rollup", h.rollup).Methods(http.MethodGet)
	api.HandleFunc("/programs/{program}/rollup/archive", h.archiveRollup).Methods(http.MethodPost)
	api.HandleFunc("/programs/{program}/observations/{observation}/atoms/{atom}/observed", h.markObserved).Methods(http.MethodPost)
	api.HandleFunc("/programs/{program}/observations/{observation}/status", h.setStatus).Methods(http.MethodPut)
	api.HandleFunc("/programs/{program}/groups/{group}/previous", h.setPrevious).Methods(http.MethodPut)
	api.HandleFunc("/programs/{program}/groups/{group}/previous", h.clearPrevious).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	var out http.Handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{h.log}),
		handlers.PrintRecoveryStack(false),
	)(r)
	if h.access != nil {
		out = handlers.CombinedLoggingHandler(h.access, out)
	}
	return out
}

type recoveryLogger struct{ log *slog.Logger }

func (l recoveryLogger) Println(args ...any) {
	l.log.Error("handler panic", "panic", fmt.Sprint(args...))
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func programID(r *http.Request) domain.ProgramID {
	return domain.ProgramID(mux.Vars(r)["program"])
}

func (h *Handler) listPrograms(w http.ResponseWriter, r *http.Request) {
	programs := h.svc.ListPrograms(r.Context())
	type summary struct {
		ID          domain.ProgramID `json:"id"`
		Band        domain.Band      `json:"band"`
		Groups      int              `json:"groups"`
		ProgramUsed string           `json:"program_used"`
		PartnerUsed string           `json:"partner_used"`
	}
	out := make([]summary, 0, len(programs))
	for _, p := range programs {
		groups := 0
		for range p.GroupIDs() {
			groups++
		}
		used, err := p.TimeUsed()
		if err != nil {
			h.fail(w, err)
			return
		}
		out = append(out, summary{
			ID:          p.ID,
			Band:        p.Band,
			Groups:      groups,
			ProgramUsed: used.ProgramUsed.String(),
			PartnerUsed: used.PartnerUsed.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"programs": out})
}

func (h *Handler) getProgram(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProgram(r.Context(), programID(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) putProgram(w http.ResponseWriter, r *http.Request) {
	var p domain.Program
	if err := decode(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := programID(r)
	if p.ID == "" {
		p.ID = id
	}
	if p.ID != id {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("program id %q does not match path %q", p.ID, id))
		return
	}
	stored, res, err := h.svc.PutProgram(r.Context(), p)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Program: stored, Violations: violations(res)})
}

func (h *Handler) deleteProgram(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.DeleteProgram(r.Context(), programID(r)); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) rollup(w http.ResponseWriter, r *http.Request) {
	rollup, err := h.svc.Rollup(r.Context(), programID(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rollup)
}

func (h *Handler) archiveRollup(w http.ResponseWriter, r *http.Request) {
	info, rollup, err := h.svc.ArchiveRollup(r.Context(), programID(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"object": info, "rollup": rollup})
}

type markObservedRequest struct {
	QAState domain.QAState `json:"qa_state"`
}

func (h *Handler) markObserved(w http.ResponseWriter, r *http.Request) {
	req := markObservedRequest{QAState: domain.QAPass}
	if r.ContentLength != 0 {
		if err := decode(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	vars := mux.Vars(r)
	p, res, err := h.svc.MarkAtomObserved(r.Context(), programID(r), domain.ObservationID(vars["observation"]), vars["atom"], req.QAState)
	h.respondMutation(w, p, res, err)
}

type statusRequest struct {
	Status domain.ObservationStatus `json:"status"`
	Active *bool                    `json:"active"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	active := req.Status != domain.StatusInactive
	if req.Active != nil {
		active = *req.Active
	}
	obsID := domain.ObservationID(mux.Vars(r)["observation"])
	p, res, err := h.svc.SetObservationStatus(r.Context(), programID(r), obsID, req.Status, active)
	h.respondMutation(w, p, res, err)
}

type previousRequest struct {
	Index *int `json:"index"`
}

func (h *Handler) setPrevious(w http.ResponseWriter, r *http.Request) {
	var req previousRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Index == nil {
		writeError(w, http.StatusBadRequest, "index required")
		return
	}
	groupID := domain.GroupID(mux.Vars(r)["group"])
	p, res, err := h.svc.SetPrevious(r.Context(), programID(r), groupID, *req.Index)
	h.respondMutation(w, p, res, err)
}

func (h *Handler) clearPrevious(w http.ResponseWriter, r *http.Request) {
	groupID := domain.GroupID(mux.Vars(r)["group"])
	p, res, err := h.svc.ClearPrevious(r.Context(), programID(r), groupID)
	h.respondMutation(w, p, res, err)
}

type violationJSON struct {
	Rule     string          `json:"rule"`
	Severity domain.Severity `json:"severity"`
	Message  string          `json:"message"`
	Subject  string          `json:"subject,omitempty"`
}

func violations(res domain.Result) []violationJSON {
	out := make([]violationJSON, 0, len(res.Violations))
	for _, v := range res.Violations {
		out = append(out, violationJSON{Rule: v.Rule, Severity: v.Severity, Message: v.Message, Subject: v.Subject})
	}
	return out
}

type mutationResponse struct {
	Program    domain.Program  `json:"program"`
	Violations []violationJSON `json:"violations"`
}

func (h *Handler) respondMutation(w http.ResponseWriter, p domain.Program, res domain.Result, err error) {
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Program: p, Violations: violations(res)})
}

// fail maps service errors onto status codes.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	var rv domain.RuleViolationError
	switch {
	case errors.As(err, &rv):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error(), "violations": violations(rv.Result)})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDataIntegrity):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrNoArchive):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
