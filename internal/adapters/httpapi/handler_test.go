package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"obscore/internal/archive"
	"obscore/internal/core"
	"obscore/pkg/domain"
	"obscore/testutil"
)

func newServer(t *testing.T, opts ...core.Option) (http.Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	rec, err := core.NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine(nil), append([]core.Option{core.WithMetricsRecorder(rec)}, opts...)...)
	if _, _, err := svc.PutProgram(context.Background(), testutil.Program("P")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return New(svc, WithGatherer(reg)).Router(), reg
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHealthAndMetrics(t *testing.T) {
	h, _ := newServer(t)
	if w := do(t, h, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200 health, got %d", w.Code)
	}
	w := do(t, h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "obscore_operation_total") {
		t.Fatalf("expected operation metrics, got %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `obscore_program_time_used_seconds{category="program",program="P"} 1200`) {
		t.Fatalf("expected program time gauge, got %s", w.Body.String())
	}
	if w := do(t, h, http.MethodGet, "/debug/vars", ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "memstats") {
		t.Fatalf("expected expvar output, got %d", w.Code)
	}
}

func TestProgramCRUD(t *testing.T) {
	h, _ := newServer(t)

	w := do(t, h, http.MethodGet, "/api/v1/programs", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"program_used":"20m0s"`) {
		t.Fatalf("unexpected list %d %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/api/v1/programs/P", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected program, got %d", w.Code)
	}
	var p domain.Program
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode program: %v", err)
	}
	p.ID = "Q"
	body, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if w := do(t, h, http.MethodPut, "/api/v1/programs/P", string(body)); w.Code != http.StatusBadRequest {
		t.Fatalf("expected id mismatch to be rejected, got %d", w.Code)
	}

	p.ID = "P"
	p.Band = domain.Band3
	body, _ = json.Marshal(p)
	if w := do(t, h, http.MethodPut, "/api/v1/programs/P", string(body)); w.Code != http.StatusOK {
		t.Fatalf("expected replace to succeed, got %d %s", w.Code, w.Body.String())
	}

	p.Root.ID = "top"
	body, _ = json.Marshal(p)
	w = do(t, h, http.MethodPut, "/api/v1/programs/P", string(body))
	if w.Code != http.StatusUnprocessableEntity || !strings.Contains(w.Body.String(), "program_metadata") {
		t.Fatalf("expected rule violation, got %d %s", w.Code, w.Body.String())
	}

	if w := do(t, h, http.MethodPut, "/api/v1/programs/P", "{"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected malformed body to be rejected, got %d", w.Code)
	}
	if w := do(t, h, http.MethodDelete, "/api/v1/programs/P", ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected delete, got %d", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/api/v1/programs/P", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestRollupEndpoints(t *testing.T) {
	store := archive.NewMemory()
	h, _ := newServer(t, core.WithArchive(store))

	w := do(t, h, http.MethodGet, "/api/v1/programs/P/rollup", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected rollup, got %d", w.Code)
	}
	var r core.ProgramRollup
	if err := json.Unmarshal(w.Body.Bytes(), &r); err != nil {
		t.Fatalf("decode rollup: %v", err)
	}
	if got := r.ExecTime.Duration().String(); got != "3h15m0s" {
		t.Fatalf("unexpected exec time %s", got)
	}

	w = do(t, h, http.MethodPost, "/api/v1/programs/P/rollup/archive", "")
	if w.Code != http.StatusCreated || !strings.Contains(w.Body.String(), `"key":"rollups/P/`) {
		t.Fatalf("expected archived rollup, got %d %s", w.Code, w.Body.String())
	}
	keys, err := store.List(context.Background(), "rollups/P/")
	if err != nil || len(keys) != 1 {
		t.Fatalf("expected one archived object, got %v %v", keys, err)
	}

	bare, _ := newServer(t)
	if w := do(t, bare, http.MethodPost, "/api/v1/programs/P/rollup/archive", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without archive, got %d", w.Code)
	}
	if w := do(t, bare, http.MethodGet, "/api/v1/programs/missing/rollup", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 rollup, got %d", w.Code)
	}
}

func TestProgressMutations(t *testing.T) {
	h, _ := newServer(t)

	w := do(t, h, http.MethodPost, "/api/v1/programs/P/observations/o-4/atoms/o-4-a1/observed", `{"qa_state":"USABLE"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected mark observed, got %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Program domain.Program `json:"program"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	o, err := resp.Program.GetObservation("o-4")
	if err != nil || !o.Sequence[0].Observed || o.Sequence[0].QAState != domain.QAUsable {
		t.Fatalf("unexpected atom state %+v %v", o.Sequence, err)
	}

	if w := do(t, h, http.MethodPost, "/api/v1/programs/P/observations/o-5/atoms/o-5-a1/observed", ""); w.Code != http.StatusOK {
		t.Fatalf("expected default QA state to be accepted, got %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/api/v1/programs/P/observations/o-5/atoms/x/observed", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected unknown atom 404, got %d", w.Code)
	}

	if w := do(t, h, http.MethodPut, "/api/v1/programs/P/groups/1/previous", `{"index":0}`); w.Code != http.StatusOK {
		t.Fatalf("expected set previous, got %d %s", w.Code, w.Body.String())
	}
	if w := do(t, h, http.MethodPut, "/api/v1/programs/P/groups/2/previous", `{"index":0}`); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected OR group progress to be rejected, got %d", w.Code)
	}
	if w := do(t, h, http.MethodPut, "/api/v1/programs/P/groups/1/previous", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected missing index to be rejected, got %d", w.Code)
	}
	if w := do(t, h, http.MethodDelete, "/api/v1/programs/P/groups/1/previous", ""); w.Code != http.StatusOK {
		t.Fatalf("expected clear previous, got %d", w.Code)
	}

	w = do(t, h, http.MethodPut, "/api/v1/programs/P/observations/o-3/status", `{"status":"INACTIVE"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status change, got %d %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if o, _ := resp.Program.GetObservation("o-3"); o.Status != domain.StatusInactive || o.Active {
		t.Fatalf("unexpected observation %+v", o)
	}
	if w := do(t, h, http.MethodPut, "/api/v1/programs/P/observations/o-3/status", `{"status":"BOGUS"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected unknown status to be rejected, got %d", w.Code)
	}
}

func TestRoutingErrors(t *testing.T) {
	h, _ := newServer(t)
	if w := do(t, h, http.MethodGet, "/nope", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := do(t, h, http.MethodPatch, "/api/v1/programs/P", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

type panicService struct{ ProgramService }

func (panicService) ListPrograms(context.Context) []domain.Program { panic("boom") }

func TestRecoveryAndAccessLog(t *testing.T) {
	var access bytes.Buffer
	h := New(panicService{}, WithAccessLog(&access), WithGatherer(prometheus.NewRegistry())).Router()
	w := do(t, h, http.MethodGet, "/api/v1/programs", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected recovered panic to be a 500, got %d", w.Code)
	}
	if !strings.Contains(access.String(), "GET /api/v1/programs") {
		t.Fatalf("expected access log line, got %q", access.String())
	}
}
