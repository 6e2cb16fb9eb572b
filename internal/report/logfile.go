package report

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"projinfo/internal/model"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	separator  = "=================================================="
)

// LogFile 每次运行写一个文本日志：UpdateLog_YYYYMMDD_HHMMSS.txt
type LogFile struct {
	dir string
	now func() time.Time

	mu   sync.Mutex
	runs map[string]*runLog
}

type runLog struct {
	path string
	file *os.File
	w    *bufio.Writer
}

// NewLogFile 创建日志文件报告端，dir 不存在时自动创建
func NewLogFile(dir string) *LogFile {
	return &LogFile{
		dir:  dir,
		now:  time.Now,
		runs: make(map[string]*runLog),
	}
}

// Dir 日志目录
func (l *LogFile) Dir() string {
	return l.dir
}

// Path 返回运行中的日志路径
func (l *LogFile) Path(runID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.runs[runID]
	if !ok {
		return "", false
	}
	return r.path, true
}

// Begin 创建日志文件并写入表头
func (l *LogFile) Begin(info model.RunInfo) error {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	started := info.StartedAt
	if started.IsZero() {
		started = l.now()
	}
	file, path, err := l.create(started, info.ID)
	if err != nil {
		return err
	}

	r := &runLog{path: path, file: file, w: bufio.NewWriter(file)}
	req := info.Request

	fmt.Fprintf(r.w, "Project Info Updater Log - %s\n", started.Format(timeLayout))
	fmt.Fprintf(r.w, "Run ID: %s\n", info.ID)
	fmt.Fprintf(r.w, "Project Name: %s\n", req.ProjectName)
	fmt.Fprintf(r.w, "Project Number: %s\n", req.ProjectNumber)
	if req.Enabled(model.CategoryEquipmentSchedule) {
		fmt.Fprintf(r.w, "Issued For: %s\n", req.IssuedFor)
	}
	fmt.Fprintf(r.w, "Root Folder: %s\n", req.RootFolder)
	fmt.Fprintf(r.w, "File Types: %s\n", categoryLabels(req.Categories))
	if info.ESPolicy != "" && req.Enabled(model.CategoryEquipmentSchedule) {
		fmt.Fprintf(r.w, "ES Cell Policy: %s\n", info.ESPolicy)
	}
	if info.Blank != "" {
		fmt.Fprintf(r.w, "Blank Fields: %s\n", info.Blank)
	}
	fmt.Fprintf(r.w, "Matching Files: %d\n", info.Total)
	fmt.Fprintf(r.w, "%s\n\n", separator)

	l.mu.Lock()
	l.runs[info.ID] = r
	l.mu.Unlock()

	return r.w.Flush()
}

// create 生成日志文件；同一秒内重复运行时追加运行 ID 前缀
func (l *LogFile) create(started time.Time, runID string) (*os.File, string, error) {
	base := "UpdateLog_" + started.Format("20060102_150405")
	names := []string{base + ".txt"}
	if len(runID) >= 8 {
		names = append(names, base+"_"+runID[:8]+".txt")
	}

	var lastErr error
	for _, name := range names {
		path := filepath.Join(l.dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, path, nil
		}
		lastErr = err
		if !errors.Is(err, os.ErrExist) {
			break
		}
	}
	return nil, "", fmt.Errorf("create log file: %w", lastErr)
}

// Record 写入单个文件结果
func (l *LogFile) Record(info model.RunInfo, o model.FileOutcome) error {
	r, ok := l.get(info.ID)
	if !ok {
		return fmt.Errorf("log for run %s not started", info.ID)
	}

	fmt.Fprintf(r.w, "%s %s\n", l.now().Format(timeLayout), FormatOutcome(o))
	return r.w.Flush()
}

// End 写入汇总并关闭文件，同时回填 summary.LogPath
func (l *LogFile) End(info model.RunInfo, s *model.RunSummary) error {
	l.mu.Lock()
	r, ok := l.runs[info.ID]
	delete(l.runs, info.ID)
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("log for run %s not started", info.ID)
	}

	s.LogPath = r.path

	fmt.Fprintf(r.w, "\n%s\n", separator)
	if s.Cancelled {
		fmt.Fprintf(r.w, "Run cancelled after %d of %d files.\n", s.Processed(), s.Total)
	}
	fmt.Fprintf(r.w, "Updated %d of %d files.\n", s.Updated, s.Total)
	if len(s.Skipped) > 0 {
		fmt.Fprintf(r.w, "Skipped %d files:\n", len(s.Skipped))
		for _, o := range s.Skipped {
			fmt.Fprintf(r.w, "   %s - %s\n", o.Path, o.Detail())
		}
	}
	if len(s.Failed) > 0 {
		fmt.Fprintf(r.w, "Failed %d files", len(s.Failed))
		if n := s.LockedCount(); n > 0 {
			fmt.Fprintf(r.w, " (%d in use/locked)", n)
		}
		fmt.Fprintf(r.w, ":\n")
		for _, o := range s.Failed {
			fmt.Fprintf(r.w, "   %s - %s\n", o.Path, o.Detail())
		}
	}
	fmt.Fprintf(r.w, "\nLog file saved at: %s\n", r.path)

	flushErr := r.w.Flush()
	closeErr := r.file.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

func (l *LogFile) get(runID string) (*runLog, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.runs[runID]
	return r, ok
}

// FormatOutcome 单行结果：TAG [category] path - detail
func FormatOutcome(o model.FileOutcome) string {
	tag := o.Tag()
	if o.Kind == model.OutcomeFailed && o.ErrorKind == model.ErrorKindLocked {
		tag += " (file in use/locked)"
	}
	line := fmt.Sprintf("%s [%s] %s", tag, o.Category, o.Path)
	if o.Kind == model.OutcomeUpdated {
		if len(o.Cells) > 0 {
			line += " (" + strings.Join(o.Cells, ", ") + ")"
		}
		return line
	}
	if d := o.Detail(); d != "" {
		line += " - " + d
	}
	return line
}

func categoryLabels(categories []model.Category) string {
	labels := make([]string, 0, len(categories))
	for _, c := range categories {
		labels = append(labels, c.Label())
	}
	return strings.Join(labels, ", ")
}
