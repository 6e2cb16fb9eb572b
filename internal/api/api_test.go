package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"projinfo/internal/model"
	"projinfo/internal/report"
	"projinfo/internal/service/locator"
	"projinfo/internal/store"
	"projinfo/internal/updater"
)

type stubUpdater struct{}

func (stubUpdater) Update(f model.CandidateFile, _ model.UpdateRequest) model.FileOutcome {
	if strings.Contains(f.Path, "locked") {
		return model.Failed(f, model.ErrorKindLocked, os.ErrPermission)
	}
	return model.Updated(f, []string{"B5", "B6"})
}

type testEnv struct {
	router  *gin.Engine
	handler *Handler
	store   *store.Store
	root    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.New(filepath.Join(t.TempDir(), "projinfo.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	root := t.TempDir()
	for _, name := range []string{"MST-TS-100.xlsx", "MST-TS-locked.xlsx", "ES-Pumps.xlsx", "readme.txt"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	coord := updater.NewCoordinator(locator.New(true), stubUpdater{},
		updater.WithReporters(report.NewLogFile(filepath.Join(t.TempDir(), "logs")), st.Recorder()),
		updater.WithPolicies("keyword", "clear"))

	h := NewHandler(coord, st, Settings{Version: "test", Recursive: true, ESPolicy: "keyword", BlankPolicy: "clear"}, nil)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return &testEnv{router: r, handler: h, store: st, root: root}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func readEvents(t *testing.T, body string) []updater.ProgressEvent {
	t.Helper()
	var events []updater.ProgressEvent
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var evt updater.ProgressEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt); err != nil {
			t.Fatalf("bad event %q: %v", line, err)
		}
		events = append(events, evt)
	}
	return events
}

func TestGetStatus_Fresh(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Version != "test" || resp.ESPolicy != "keyword" || !resp.Recursive || !resp.HistoryOn {
		t.Fatalf("unexpected status: %+v", resp)
	}
	if resp.Running || resp.LastRequest != nil {
		t.Fatalf("fresh status should be idle without last request: %+v", resp)
	}
}

func TestLocate(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/locate", model.UpdateRequest{RootFolder: e.root, Categories: model.AllCategories})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp LocateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Total != 3 || resp.ByCategory[model.CategoryTechnicalSubmittal] != 2 || resp.ByCategory[model.CategoryEquipmentSchedule] != 1 {
		t.Fatalf("unexpected locate: %+v", resp)
	}
}

func TestLocate_BadRequests(t *testing.T) {
	e := newTestEnv(t)

	cases := []struct {
		name string
		body model.UpdateRequest
	}{
		{"no categories", model.UpdateRequest{RootFolder: e.root}},
		{"no root", model.UpdateRequest{Categories: model.AllCategories}},
		{"missing root", model.UpdateRequest{RootFolder: filepath.Join(e.root, "nope"), Categories: model.AllCategories}},
	}
	for _, tc := range cases {
		w := e.do(t, http.MethodPost, "/api/locate", tc.body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d body=%s", tc.name, w.Code, w.Body.String())
		}
	}
}

func TestRun_StreamsAndRecordsHistory(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/run", model.UpdateRequest{
		ProjectName:   "Harbour Tower",
		ProjectNumber: "24017",
		IssuedFor:     "For Approval",
		RootFolder:    e.root,
		Categories:    model.AllCategories,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content-type=%s", ct)
	}

	events := readEvents(t, w.Body.String())
	if len(events) != 5 {
		t.Fatalf("events=%d body=%s", len(events), w.Body.String())
	}
	if events[0].Type != updater.EventStart || events[4].Type != updater.EventDone {
		t.Fatalf("unexpected event order: %s ... %s", events[0].Type, events[4].Type)
	}
	if events[4].Message != "Updated 2/3 files" {
		t.Fatalf("done message=%q", events[4].Message)
	}

	// 历史记录
	w = e.do(t, http.MethodGet, "/api/runs", nil)
	var list struct {
		Items []*store.RunRecord `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal runs: %v", err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("runs=%d", len(list.Items))
	}
	run := list.Items[0]
	if run.Updated != 2 || run.Failed != 1 || run.Locked != 1 || run.Status != store.RunStatusCompleted {
		t.Fatalf("unexpected run: %+v", run)
	}

	w = e.do(t, http.MethodGet, "/api/runs/"+run.ID, nil)
	var detail RunDetailResponse
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("unmarshal detail: %v", err)
	}
	if len(detail.Files) != 3 {
		t.Fatalf("files=%d", len(detail.Files))
	}

	w = e.do(t, http.MethodGet, "/api/runs/"+run.ID+"/log", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("log status=%d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Project Name: Harbour Tower") {
		t.Fatalf("unexpected log body:\n%s", w.Body.String())
	}

	// 表单已保存，用于下次预填
	w = e.do(t, http.MethodGet, "/api/status", nil)
	var status StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.LastRequest == nil || status.LastRequest.ProjectNumber != "24017" || status.Running {
		t.Fatalf("unexpected status after run: %+v", status)
	}
}

func TestRun_NoMatchingFiles(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/run", model.UpdateRequest{RootFolder: t.TempDir(), Categories: model.AllCategories})
	events := readEvents(t, w.Body.String())
	if len(events) != 1 || events[0].Type != updater.EventNoFiles {
		t.Fatalf("unexpected events: %+v", events)
	}

	w = e.do(t, http.MethodGet, "/api/runs", nil)
	if strings.Contains(w.Body.String(), `"id"`) {
		t.Fatalf("no-files run should not be recorded: %s", w.Body.String())
	}
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	e := newTestEnv(t)
	e.handler.running.Store(true)

	w := e.do(t, http.MethodPost, "/api/run", model.UpdateRequest{RootFolder: e.root, Categories: model.AllCategories})
	if w.Code != http.StatusConflict {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestGetRun_NotFound(t *testing.T) {
	e := newTestEnv(t)

	for _, path := range []string{"/api/runs/missing", "/api/runs/missing/log"} {
		w := e.do(t, http.MethodGet, path, nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s: status=%d", path, w.Code)
		}
	}
}

func TestRuns_WithoutStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	coord := updater.NewCoordinator(locator.New(true), stubUpdater{})
	h := NewHandler(coord, nil, Settings{}, nil)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
}
