package updater

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"projinfo/internal/model"
	"projinfo/internal/service/locator"
)

// ErrNoMatchingFiles 没有任何候选文件（整次运行提前结束，不同于全部失败）
var ErrNoMatchingFiles = errors.New("no matching Excel files found")

// FileUpdater 单文件更新
type FileUpdater interface {
	Update(f model.CandidateFile, req model.UpdateRequest) model.FileOutcome
}

// Reporter 报告端：日志文件、运行历史、通知等
// 报告端出错只记录日志，不影响运行
type Reporter interface {
	Begin(info model.RunInfo) error
	Record(info model.RunInfo, outcome model.FileOutcome) error
	End(info model.RunInfo, summary *model.RunSummary) error
}

// 事件类型
const (
	EventStart    = "start"
	EventFileDone = "file_done"
	EventNoFiles  = "no_files"
	EventDone     = "done"
	EventError    = "error"
)

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`      // start/file_done/no_files/done/error
	Message   string      `json:"message"`   // 事件消息
	Data      interface{} `json:"data"`      // 附加数据
	Timestamp time.Time   `json:"timestamp"` // 时间戳
}

// FileProgress file_done 事件数据
type FileProgress struct {
	Current int               `json:"current"`
	Total   int               `json:"total"`
	Outcome model.FileOutcome `json:"outcome"`
}

// Coordinator 运行协调器：定位文件，顺序更新，汇总结果
type Coordinator struct {
	locator   *locator.Locator
	updater   FileUpdater
	reporters []Reporter
	logger    *zap.Logger

	esPolicy    string
	blankPolicy string
}

// Option 协调器选项
type Option func(*Coordinator)

// WithReporters 追加报告端（按顺序调用）
func WithReporters(r ...Reporter) Option {
	return func(c *Coordinator) { c.reporters = append(c.reporters, r...) }
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPolicies 记录本次使用的策略（仅用于报告）
func WithPolicies(esPolicy, blankPolicy string) Option {
	return func(c *Coordinator) {
		c.esPolicy = esPolicy
		c.blankPolicy = blankPolicy
	}
}

// NewCoordinator 创建运行协调器
func NewCoordinator(loc *locator.Locator, upd FileUpdater, opts ...Option) *Coordinator {
	c := &Coordinator{
		locator: loc,
		updater: upd,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Locate 仅定位候选文件（预览，不写入）
func (c *Coordinator) Locate(req model.UpdateRequest) ([]model.CandidateFile, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return c.locator.Locate(req.RootFolder, req.Categories)
}

// Start 异步执行，返回进度通道；通道在终止事件（done/no_files/error）之后关闭
// 调用方需读完通道，或取消 ctx
func (c *Coordinator) Start(ctx context.Context, req model.UpdateRequest) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		send := func(e ProgressEvent) { c.sendProgress(ctx, progressChan, e) }
		if _, err := c.Execute(ctx, req, send); err != nil && !errors.Is(err, ErrNoMatchingFiles) {
			c.logger.Warn("run failed", zap.Error(err))
		}
	}()

	return progressChan
}

// Execute 同步执行一次运行；每处理完一个文件回调一次进度
// 零候选时返回 NoMatchingFiles=true 的汇总与 ErrNoMatchingFiles，不会调用更新器
func (c *Coordinator) Execute(ctx context.Context, req model.UpdateRequest, progress func(ProgressEvent)) (*model.RunSummary, error) {
	if progress == nil {
		progress = func(ProgressEvent) {}
	}
	startTime := time.Now()

	req = req.Normalize()
	if err := req.Validate(); err != nil {
		progress(ProgressEvent{Type: EventError, Message: err.Error(), Timestamp: time.Now()})
		return nil, err
	}

	files, err := c.locator.Locate(req.RootFolder, req.Categories)
	if err != nil {
		err = fmt.Errorf("locate files: %w", err)
		progress(ProgressEvent{Type: EventError, Message: err.Error(), Timestamp: time.Now()})
		return nil, err
	}

	info := model.RunInfo{
		ID:        uuid.New().String(),
		Request:   req,
		Total:     len(files),
		StartedAt: startTime,
		ESPolicy:  c.esPolicy,
		Blank:     c.blankPolicy,
	}
	summary := &model.RunSummary{
		RunID:     info.ID,
		Total:     len(files),
		Skipped:   []model.FileOutcome{},
		Failed:    []model.FileOutcome{},
		Outcomes:  []model.FileOutcome{},
		StartedAt: startTime,
	}
	logger := c.logger.With(zap.String("run_id", info.ID))

	if len(files) == 0 {
		summary.NoMatchingFiles = true
		summary.FinishedAt = time.Now()
		logger.Info("no matching files", zap.String("root", req.RootFolder))
		progress(ProgressEvent{
			Type:      EventNoFiles,
			Message:   ErrNoMatchingFiles.Error(),
			Data:      summary,
			Timestamp: time.Now(),
		})
		return summary, ErrNoMatchingFiles
	}

	for _, r := range c.reporters {
		if err := r.Begin(info); err != nil {
			logger.Warn("reporter begin failed", zap.Error(err))
		}
	}

	progress(ProgressEvent{
		Type:    EventStart,
		Message: fmt.Sprintf("Found %d matching files", len(files)),
		Data: map[string]interface{}{
			"runId": info.ID,
			"total": len(files),
		},
		Timestamp: time.Now(),
	})
	logger.Info("run started", zap.String("root", req.RootFolder), zap.Int("total", len(files)))

	for i, f := range files {
		if ctx.Err() != nil {
			summary.Cancelled = true
			logger.Warn("run cancelled", zap.Int("processed", i), zap.Int("total", len(files)))
			break
		}

		outcome := c.updater.Update(f, req)
		outcome.Index = i + 1
		summary.Add(outcome)
		c.logOutcome(logger, outcome)

		for _, r := range c.reporters {
			if err := r.Record(info, outcome); err != nil {
				logger.Warn("reporter record failed", zap.Error(err))
			}
		}

		progress(ProgressEvent{
			Type:      EventFileDone,
			Message:   fmt.Sprintf("Updated %d/%d files", i+1, len(files)),
			Data:      FileProgress{Current: i + 1, Total: len(files), Outcome: outcome},
			Timestamp: time.Now(),
		})
	}

	summary.FinishedAt = time.Now()
	for _, r := range c.reporters {
		if err := r.End(info, summary); err != nil {
			logger.Warn("reporter end failed", zap.Error(err))
		}
	}

	logger.Info("run finished",
		zap.Int("total", summary.Total),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", len(summary.Skipped)),
		zap.Int("failed", len(summary.Failed)),
		zap.Bool("cancelled", summary.Cancelled),
		zap.Duration("duration", summary.FinishedAt.Sub(startTime)))

	progress(ProgressEvent{
		Type:      EventDone,
		Message:   fmt.Sprintf("Updated %d/%d files", summary.Updated, summary.Total),
		Data:      summary,
		Timestamp: time.Now(),
	})
	return summary, nil
}

func (c *Coordinator) logOutcome(logger *zap.Logger, o model.FileOutcome) {
	fields := []zap.Field{
		zap.Int("index", o.Index),
		zap.String("path", o.Path),
		zap.String("category", string(o.Category)),
	}
	switch o.Kind {
	case model.OutcomeUpdated:
		logger.Debug("file updated", append(fields, zap.Strings("cells", o.Cells))...)
	case model.OutcomeSkipped:
		logger.Info("file skipped", append(fields, zap.String("reason", o.Reason))...)
	default:
		logger.Warn("file failed", append(fields, zap.String("kind", string(o.ErrorKind)), zap.Error(o.Err))...)
	}
}

// sendProgress 发送进度事件；ctx 取消且通道已满时丢弃
func (c *Coordinator) sendProgress(ctx context.Context, ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
		return
	default:
	}
	select {
	case ch <- event:
	case <-ctx.Done():
	}
}
