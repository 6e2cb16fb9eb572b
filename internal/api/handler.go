package api

import (
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projinfo/internal/store"
	"projinfo/internal/updater"
)

// Settings 只读的运行配置，供状态接口展示
type Settings struct {
	Version     string `json:"version"`
	Recursive   bool   `json:"recursive"`
	ESPolicy    string `json:"esPolicy"`
	BlankPolicy string `json:"blankPolicy"`
	LogDir      string `json:"logDir"`
}

// Handler API 处理器
type Handler struct {
	coordinator *updater.Coordinator
	store       *store.Store // 可为 nil，此时不提供历史记录
	settings    Settings
	logger      *zap.Logger

	running atomic.Bool // 同一时间只允许一次运行
}

// NewHandler 创建 API 处理器
func NewHandler(coordinator *updater.Coordinator, st *store.Store, settings Settings, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		coordinator: coordinator,
		store:       st,
		settings:    settings,
		logger:      logger,
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)

	// 预览与执行
	router.POST("/locate", h.Locate)
	router.POST("/run", h.Run)

	// 运行历史
	router.GET("/runs", h.ListRuns)
	router.GET("/runs/:id", h.GetRun)
	router.GET("/runs/:id/log", h.GetRunLog)
}
