package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"projinfo/internal/model"
)

// 运行状态
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusCancelled = "cancelled"
)

// ErrRunNotFound 运行记录不存在
var ErrRunNotFound = errors.New("run not found")

// RunRecord 运行历史记录
type RunRecord struct {
	ID            string     `json:"id"`
	ProjectName   string     `json:"projectName"`
	ProjectNumber string     `json:"projectNumber"`
	IssuedFor     string     `json:"issuedFor"`
	RootFolder    string     `json:"rootFolder"`
	Categories    []string   `json:"categories"`
	ESPolicy      string     `json:"esPolicy"`
	BlankPolicy   string     `json:"blankPolicy"`
	Total         int        `json:"total"`
	Updated       int        `json:"updated"`
	Skipped       int        `json:"skipped"`
	Failed        int        `json:"failed"`
	Locked        int        `json:"locked"`
	Status        string     `json:"status"`
	LogPath       string     `json:"logPath"`
	StartedAt     time.Time  `json:"startedAt"`
	FinishedAt    *time.Time `json:"finishedAt,omitempty"`
}

// RunFileRecord 单个文件的处理记录
type RunFileRecord struct {
	Seq       int      `json:"seq"`
	Path      string   `json:"path"`
	Category  string   `json:"category"`
	Outcome   string   `json:"outcome"`
	Reason    string   `json:"reason,omitempty"`
	ErrorKind string   `json:"errorKind,omitempty"`
	Message   string   `json:"message,omitempty"`
	Cells     []string `json:"cells,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func joinCategories(cs []model.Category) string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, string(c))
	}
	return strings.Join(parts, ",")
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

// CreateRun 创建运行记录
func (s *Store) CreateRun(info model.RunInfo) error {
	req := info.Request
	_, err := s.db.Exec(`
		INSERT INTO runs (id, project_name, project_number, issued_for, root_folder, categories,
			es_policy, blank_policy, total_files, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, info.ID, req.ProjectName, req.ProjectNumber, req.IssuedFor, req.RootFolder, joinCategories(req.Categories),
		info.ESPolicy, info.Blank, info.Total, RunStatusRunning, formatTime(info.StartedAt))
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// AddRunFile 记录单个文件结果
func (s *Store) AddRunFile(runID string, o model.FileOutcome) error {
	_, err := s.db.Exec(`
		INSERT INTO run_files (run_id, seq, path, category, outcome, reason, error_kind, message, cells)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, o.Index, o.Path, string(o.Category), string(o.Kind), o.Reason, string(o.ErrorKind), o.Message,
		strings.Join(o.Cells, ","))
	if err != nil {
		return fmt.Errorf("failed to add run file: %w", err)
	}
	return nil
}

// FinishRun 完成运行记录
func (s *Store) FinishRun(summary *model.RunSummary) error {
	status := RunStatusCompleted
	if summary.Cancelled {
		status = RunStatusCancelled
	}
	res, err := s.db.Exec(`
		UPDATE runs SET
			total_files = ?,
			updated_files = ?,
			skipped_files = ?,
			failed_files = ?,
			locked_files = ?,
			status = ?,
			log_path = ?,
			finished_at = ?
		WHERE id = ?
	`, summary.Total, summary.Updated, len(summary.Skipped), len(summary.Failed), summary.LockedCount(),
		status, summary.LogPath, formatTime(summary.FinishedAt), summary.RunID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, summary.RunID)
	}
	return nil
}

const runColumns = `id, project_name, project_number, issued_for, root_folder, categories, es_policy, blank_policy,
	total_files, updated_files, skipped_files, failed_files, locked_files, status, log_path, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var (
		r                     RunRecord
		categories            string
		startedAt, finishedAt string
	)
	if err := row.Scan(&r.ID, &r.ProjectName, &r.ProjectNumber, &r.IssuedFor, &r.RootFolder, &categories,
		&r.ESPolicy, &r.BlankPolicy, &r.Total, &r.Updated, &r.Skipped, &r.Failed, &r.Locked,
		&r.Status, &r.LogPath, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	r.Categories = splitList(categories)

	started, err := parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	r.StartedAt = started
	if finishedAt != "" {
		finished, err := parseTime(finishedAt)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		r.FinishedAt = &finished
	}
	return &r, nil
}

// ListRuns 最近的运行记录（按开始时间倒序）
func (s *Store) ListRuns(limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs failed: %w", err)
	}
	defer rows.Close()

	out := []*RunRecord{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run failed: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs failed: %w", err)
	}
	return out, nil
}

// GetRun 获取运行记录
func (s *Store) GetRun(id string) (*RunRecord, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, err
	}
	return r, nil
}

// ListRunFiles 运行内的文件结果（按处理顺序）
func (s *Store) ListRunFiles(runID string) ([]*RunFileRecord, error) {
	rows, err := s.db.Query(`
		SELECT seq, path, category, outcome, reason, error_kind, message, cells
		FROM run_files WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run files failed: %w", err)
	}
	defer rows.Close()

	out := []*RunFileRecord{}
	for rows.Next() {
		var (
			f     RunFileRecord
			cells string
		)
		if err := rows.Scan(&f.Seq, &f.Path, &f.Category, &f.Outcome, &f.Reason, &f.ErrorKind, &f.Message, &cells); err != nil {
			return nil, fmt.Errorf("scan run file failed: %w", err)
		}
		if cells != "" {
			f.Cells = splitList(cells)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
