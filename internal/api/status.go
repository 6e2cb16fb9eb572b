package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projinfo/internal/model"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Settings
	Running     bool                 `json:"running"`     // 是否有运行进行中
	HistoryOn   bool                 `json:"historyOn"`   // 是否记录运行历史
	LastRequest *model.UpdateRequest `json:"lastRequest"` // 上次提交的表单，用于预填
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	resp := StatusResponse{
		Settings:  h.settings,
		Running:   h.running.Load(),
		HistoryOn: h.store != nil,
	}

	if h.store != nil {
		last, ok, err := h.store.LastRequest()
		if err != nil {
			h.logger.Warn("load last request failed", zap.Error(err))
		} else if ok {
			resp.LastRequest = &last
		}
	}

	c.JSON(http.StatusOK, resp)
}
