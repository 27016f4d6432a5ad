package handler

import (
	"errors"
	"net/http"

	"github.com/coupleup/internal/logger"
	"github.com/coupleup/internal/service"
	"github.com/gin-gonic/gin"
)

// GetCouple 返回调用者所属 Couple 的概要视图。
func (a *API) GetCouple(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	view, err := a.couples.View(userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "user not found")
		case errors.Is(err, service.ErrCoupleNotFound):
			respondError(c, http.StatusNotFound, "couple not found")
		default:
			logger.Error("couple view failed", "user_id", userID, "error", err)
			respondError(c, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"couple_name":     view.Name,
		"level":           view.Level,
		"points":          view.Points,
		"invitation_code": view.InvitationCode,
		"users":           view.Members,
	})
}

// DeleteUser 删除调用者账号；若其为 Couple 最后一名成员则级联清理全部共享状态。
func (a *API) DeleteUser(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := a.couples.RemoveUser(userID); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "user not found")
			return
		}
		logger.Error("account deletion failed", "user_id", userID, "error", err)
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "account deleted successfully"})
}

// Health 检查存储连通性。
func (a *API) Health(c *gin.Context) {
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
