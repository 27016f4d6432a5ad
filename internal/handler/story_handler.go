package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/coupleup/internal/logger"
	"github.com/coupleup/internal/service"
	"github.com/gin-gonic/gin"
)

// FunLevel 与 Comments 为指针以区分"未提交"和"提交了零值"：
// 重复提交同一页时，缺省字段沿用已有记录的值。
type storyProgressRequest struct {
	PageNumber int     `json:"page_number"`
	FunLevel   *int    `json:"fun_level"`
	Comments   *string `json:"comments"`
}

// StartStory 开启 Couple 的故事，只允许一次。
func (a *API) StartStory(c *gin.Context) {
	coupleID, ok := a.currentCoupleID(c)
	if !ok {
		return
	}

	couple, err := a.story.Start(coupleID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrStoryAlreadyStarted):
			respondError(c, http.StatusConflict, "story already started")
		case errors.Is(err, service.ErrCoupleNotFound):
			respondError(c, http.StatusNotFound, "couple not found")
		default:
			logger.Error("start story failed", "couple_id", coupleID, "error", err)
			respondError(c, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"started_at":      couple.StoryStartedAt.Format(time.RFC3339),
		"current_page":    couple.StoryCurrentPage,
		"completed_pages": []service.CompletedPage{},
	})
}

// GetStoryStatus 返回当前页与全部已完成页面。
func (a *API) GetStoryStatus(c *gin.Context) {
	coupleID, ok := a.currentCoupleID(c)
	if !ok {
		return
	}

	status, err := a.story.Status(coupleID)
	if err != nil {
		if errors.Is(err, service.ErrCoupleNotFound) {
			respondError(c, http.StatusNotFound, "couple not found")
			return
		}
		logger.Error("story status failed", "couple_id", coupleID, "error", err)
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	var startedAt interface{}
	if status.StartedAt != nil {
		startedAt = status.StartedAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, gin.H{
		"current_page":    status.CurrentPage,
		"started_at":      startedAt,
		"completed_pages": status.CompletedPages,
	})
}

// RecordStoryProgress 按页写入完成记录，同一页重复提交走更新。
func (a *API) RecordStoryProgress(c *gin.Context) {
	var req storyProgressRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}

	coupleID, ok := a.currentCoupleID(c)
	if !ok {
		return
	}

	progress, err := a.story.RecordProgress(coupleID, req.PageNumber, req.FunLevel, req.Comments)
	if err != nil {
		switch {
		case isValidationError(err):
			respondError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrCoupleNotFound):
			respondError(c, http.StatusNotFound, "couple not found")
		default:
			logger.Error("record story progress failed", "couple_id", coupleID, "error", err)
			respondError(c, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"completed_at": progress.CompletedAt.Format(time.RFC3339)})
}
