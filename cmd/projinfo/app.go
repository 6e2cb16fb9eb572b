package main

import (
	"go.uber.org/zap"

	"projinfo/internal/config"
	"projinfo/internal/notify"
	"projinfo/internal/report"
	"projinfo/internal/service/excel"
	"projinfo/internal/service/locator"
	"projinfo/internal/store"
	"projinfo/internal/updater"
)

// app 组装好的运行组件
type app struct {
	cfg         *config.AppConfig
	store       *store.Store // 打开失败时为 nil，不记录历史
	logs        *report.LogFile
	coordinator *updater.Coordinator
}

// newApp 按配置组装定位器、更新器与报告端
func newApp(cfg *config.AppConfig, logger *zap.Logger) (*app, error) {
	esPolicy, err := excel.ParseESPolicy(cfg.Updater.ESPolicy)
	if err != nil {
		return nil, err
	}
	blankPolicy, err := excel.ParseBlankPolicy(cfg.Updater.BlankPolicy)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logs: report.NewLogFile(config.LogDir(cfg))}
	reporters := []updater.Reporter{a.logs}

	if _, err := config.EnsureDataDir(cfg); err != nil {
		logger.Warn("create data dir failed, run history disabled", zap.Error(err))
	} else if st, err := store.New(config.DBPath(cfg)); err != nil {
		logger.Warn("open run history failed, run history disabled", zap.String("path", config.DBPath(cfg)), zap.Error(err))
	} else {
		a.store = st
		reporters = append(reporters, st.Recorder())
	}

	if cfg.Notify.Enabled {
		reporters = append(reporters, notify.NewEmailNotifier(notify.EmailConfig{
			SMTPServer: cfg.Notify.SMTPServer,
			SMTPPort:   cfg.Notify.SMTPPort,
			SMTPUser:   cfg.Notify.SMTPUser,
			SMTPPass:   cfg.Notify.SMTPPass,
			FromEmail:  cfg.Notify.From,
			ToEmail:    cfg.Notify.To,
			Enabled:    true,
		}, logger.Named("notify")))
	}

	upd := excel.NewUpdater(excel.Options{
		ESPolicy:    esPolicy,
		BlankPolicy: blankPolicy,
		Logger:      logger.Named("excel"),
	})
	a.coordinator = updater.NewCoordinator(locator.New(cfg.Updater.Recursive), upd,
		updater.WithReporters(reporters...),
		updater.WithLogger(logger.Named("updater")),
		updater.WithPolicies(string(esPolicy), string(blankPolicy)))

	return a, nil
}

// Close 关闭数据库
func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
