package store

import "projinfo/internal/model"

// RunRecorder 将运行过程写入历史表
type RunRecorder struct {
	store *Store
}

// Recorder 返回运行历史报告端
func (s *Store) Recorder() *RunRecorder {
	return &RunRecorder{store: s}
}

func (r *RunRecorder) Begin(info model.RunInfo) error {
	return r.store.CreateRun(info)
}

func (r *RunRecorder) Record(info model.RunInfo, o model.FileOutcome) error {
	return r.store.AddRunFile(info.ID, o)
}

func (r *RunRecorder) End(_ model.RunInfo, summary *model.RunSummary) error {
	return r.store.FinishRun(summary)
}
