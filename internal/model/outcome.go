package model

import "time"

// CandidateFile 待更新文件
type CandidateFile struct {
	Path     string   `json:"path"`
	Category Category `json:"category"`
}

// OutcomeKind 单个文件的处理结果
type OutcomeKind string

const (
	OutcomeUpdated OutcomeKind = "updated"
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeFailed  OutcomeKind = "failed"
)

// ErrorKind 失败原因分类
type ErrorKind string

const (
	ErrorKindNone      ErrorKind = ""
	ErrorKindLocked    ErrorKind = "locked"    // 文件被占用或无权限，需关闭后重试
	ErrorKindMalformed ErrorKind = "malformed" // 无法打开或解析
	ErrorKindWrite     ErrorKind = "write"     // 保存失败
)

// FileOutcome 单个文件的处理记录
type FileOutcome struct {
	Index     int         `json:"index"` // 从 1 开始
	Path      string      `json:"path"`
	Category  Category    `json:"category"`
	Kind      OutcomeKind `json:"kind"`
	Reason    string      `json:"reason,omitempty"`
	ErrorKind ErrorKind   `json:"errorKind,omitempty"`
	Message   string      `json:"message,omitempty"` // 错误文本（序列化用）
	Err       error       `json:"-"`
	Cells     []string    `json:"cells,omitempty"` // 实际写入的单元格
}

// Tag 日志标签
func (o FileOutcome) Tag() string {
	switch o.Kind {
	case OutcomeUpdated:
		return "SUCCESS"
	case OutcomeSkipped:
		return "SKIPPED"
	default:
		return "FAILED"
	}
}

// Detail 错误或跳过原因的文本描述
func (o FileOutcome) Detail() string {
	if o.Err != nil {
		return o.Err.Error()
	}
	if o.Message != "" {
		return o.Message
	}
	return o.Reason
}

// Updated 成功结果
func Updated(f CandidateFile, cells []string) FileOutcome {
	return FileOutcome{Path: f.Path, Category: f.Category, Kind: OutcomeUpdated, Cells: cells}
}

// Skipped 跳过结果
func Skipped(f CandidateFile, reason string) FileOutcome {
	return FileOutcome{Path: f.Path, Category: f.Category, Kind: OutcomeSkipped, Reason: reason}
}

// Failed 失败结果
func Failed(f CandidateFile, kind ErrorKind, err error) FileOutcome {
	reason := string(kind)
	if kind == ErrorKindLocked {
		reason = "file in use/locked"
	}
	out := FileOutcome{Path: f.Path, Category: f.Category, Kind: OutcomeFailed, Reason: reason, ErrorKind: kind, Err: err}
	if err != nil {
		out.Message = err.Error()
	}
	return out
}

// RunSummary 一次运行的汇总
type RunSummary struct {
	RunID           string        `json:"runId"`
	Total           int           `json:"total"`
	Updated         int           `json:"updated"`
	Skipped         []FileOutcome `json:"skipped"`
	Failed          []FileOutcome `json:"failed"`
	Outcomes        []FileOutcome `json:"outcomes"`
	NoMatchingFiles bool          `json:"noMatchingFiles"`
	Cancelled       bool          `json:"cancelled"`
	StartedAt       time.Time     `json:"startedAt"`
	FinishedAt      time.Time     `json:"finishedAt"`
	LogPath         string        `json:"logPath,omitempty"`
}

// Add 记录一个文件结果
func (s *RunSummary) Add(o FileOutcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Kind {
	case OutcomeUpdated:
		s.Updated++
	case OutcomeSkipped:
		s.Skipped = append(s.Skipped, o)
	case OutcomeFailed:
		s.Failed = append(s.Failed, o)
	}
}

// Processed 已处理文件数
func (s *RunSummary) Processed() int {
	return len(s.Outcomes)
}

// LockedCount 因占用失败的文件数
func (s *RunSummary) LockedCount() int {
	n := 0
	for _, o := range s.Failed {
		if o.ErrorKind == ErrorKindLocked {
			n++
		}
	}
	return n
}

// RunInfo 运行元信息，供报告端使用
type RunInfo struct {
	ID        string        `json:"id"`
	Request   UpdateRequest `json:"request"`
	Total     int           `json:"total"`
	StartedAt time.Time     `json:"startedAt"`
	ESPolicy  string        `json:"esPolicy"`
	Blank     string        `json:"blankPolicy"`
}
