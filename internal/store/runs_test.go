package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"projinfo/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "data", "projinfo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestRunRecorder_Lifecycle(t *testing.T) {
	st := newTestStore(t)
	rec := st.Recorder()

	started := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	info := model.RunInfo{
		ID: "run-1",
		Request: model.UpdateRequest{
			ProjectName:   "Harbour Tower",
			ProjectNumber: "24017",
			RootFolder:    "/data/24017",
			Categories:    model.AllCategories,
		},
		Total:     3,
		StartedAt: started,
		ESPolicy:  "keyword",
		Blank:     "clear",
	}
	require.NoError(t, rec.Begin(info))

	ts := model.CandidateFile{Path: "/data/24017/MST-TS-1.xlsx", Category: model.CategoryTechnicalSubmittal}
	summary := &model.RunSummary{RunID: info.ID, Total: 3, StartedAt: started}
	outcomes := []model.FileOutcome{
		model.Updated(ts, []string{"B5", "B6"}),
		model.Failed(ts, model.ErrorKindLocked, errors.New("busy")),
		model.Skipped(ts, "no values to write"),
	}
	for i, o := range outcomes {
		o.Index = i + 1
		summary.Add(o)
		require.NoError(t, rec.Record(info, o))
	}
	summary.FinishedAt = started.Add(2 * time.Second)
	summary.LogPath = "/logs/UpdateLog_20260501_080000.txt"
	require.NoError(t, rec.End(info, summary))

	run, err := st.GetRun("run-1")
	require.NoError(t, err)
	require.Equal(t, RunStatusCompleted, run.Status)
	require.Equal(t, []string{"ts", "es"}, run.Categories)
	require.Equal(t, 3, run.Total)
	require.Equal(t, 1, run.Updated)
	require.Equal(t, 1, run.Skipped)
	require.Equal(t, 1, run.Failed)
	require.Equal(t, 1, run.Locked)
	require.Equal(t, summary.LogPath, run.LogPath)
	require.True(t, run.StartedAt.Equal(started))
	require.NotNil(t, run.FinishedAt)

	files, err := st.ListRunFiles("run-1")
	require.NoError(t, err)
	require.Len(t, files, 3)
	require.Equal(t, []string{"B5", "B6"}, files[0].Cells)
	require.Equal(t, "locked", files[1].ErrorKind)
	require.Equal(t, "busy", files[1].Message)
	require.Equal(t, "skipped", files[2].Outcome)
}

func TestListRuns_NewestFirst(t *testing.T) {
	st := newTestStore(t)
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, st.CreateRun(model.RunInfo{
			ID:        id,
			Request:   model.UpdateRequest{RootFolder: "/x", Categories: []model.Category{model.CategoryTechnicalSubmittal}},
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := st.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "c", runs[0].ID)
	require.Equal(t, "b", runs[1].ID)
	require.Equal(t, RunStatusRunning, runs[0].Status)
	require.Nil(t, runs[0].FinishedAt)
}

func TestGetRun_NotFound(t *testing.T) {
	st := newTestStore(t)
	_, err := st.GetRun("missing")
	require.ErrorIs(t, err, ErrRunNotFound)

	err = st.FinishRun(&model.RunSummary{RunID: "missing"})
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestLastRequest(t *testing.T) {
	st := newTestStore(t)

	_, ok, err := st.LastRequest()
	require.NoError(t, err)
	require.False(t, ok)

	req := model.UpdateRequest{
		ProjectName:   "Acme",
		ProjectNumber: "123",
		IssuedFor:     "For Approval",
		RootFolder:    "/data",
		Categories:    model.AllCategories,
	}
	require.NoError(t, st.SaveLastRequest(req))
	req.ProjectName = "Acme 2"
	require.NoError(t, st.SaveLastRequest(req))

	got, ok, err := st.LastRequest()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, req, got)
}
