package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projinfo/internal/model"
	"projinfo/internal/service/locator"
)

// LocateResponse 预览响应
type LocateResponse struct {
	Total      int                    `json:"total"`
	ByCategory map[model.Category]int `json:"byCategory"`
	Files      []model.CandidateFile  `json:"files"`
}

// bindRequest 解析并校验表单；失败时已写出 400
func (h *Handler) bindRequest(c *gin.Context) (model.UpdateRequest, bool) {
	var req model.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return req, false
	}
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, false
	}
	return req, true
}

// Locate 预览匹配的文件，不写入
// POST /api/locate
func (h *Handler) Locate(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	files, err := h.coordinator.Locate(req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, os.ErrNotExist) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, LocateResponse{
		Total:      len(files),
		ByCategory: locator.CountByCategory(files),
		Files:      files,
	})
}

// Run 执行更新 (SSE 流式响应)
// POST /api/run
func (h *Handler) Run(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	if !h.running.CompareAndSwap(false, true) {
		c.JSON(http.StatusConflict, gin.H{"error": "an update is already running, try again when it finishes"})
		return
	}
	defer h.running.Store(false)

	if h.store != nil {
		if err := h.store.SaveLastRequest(req); err != nil {
			h.logger.Warn("save last request failed", zap.Error(err))
		}
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// 客户端断开时取消运行（在文件之间生效）
	progressChan := h.coordinator.Start(c.Request.Context(), req)

	for event := range progressChan {
		eventData, err := json.Marshal(event)
		if err != nil {
			continue
		}

		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}
