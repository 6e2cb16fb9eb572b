package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"projinfo/internal/store"
)

// RunDetailResponse 单次运行详情
type RunDetailResponse struct {
	Run   *store.RunRecord       `json:"run"`
	Files []*store.RunFileRecord `json:"files"`
}

func (h *Handler) requireStore(c *gin.Context) bool {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history is not available"})
		return false
	}
	return true
}

// ListRuns 运行历史列表（新的在前）
// GET /api/runs?limit=20
func (h *Handler) ListRuns(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	runs, err := h.store.ListRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": runs})
}

// GetRun 单次运行详情
// GET /api/runs/:id
func (h *Handler) GetRun(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	run, err := h.store.GetRun(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	files, err := h.store.ListRunFiles(run.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, RunDetailResponse{Run: run, Files: files})
}

// GetRunLog 下载运行日志文件
// GET /api/runs/:id/log
func (h *Handler) GetRunLog(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	run, err := h.store.GetRun(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if run.LogPath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "run has no log file"})
		return
	}
	if _, err := os.Stat(run.LogPath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "log file no longer exists"})
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.FileAttachment(run.LogPath, filepath.Base(run.LogPath))
}
