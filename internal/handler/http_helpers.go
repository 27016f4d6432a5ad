package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/coupleup/internal/service"
	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		// 分块请求没有 Content-Length，超限到读取时才暴露
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "request too large")
			return false
		}
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || len(raw) > 5 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

func isValidationError(err error) bool {
	return service.IsValidationError(err)
}

// currentUserID 读取 AuthRequired 中间件写入的用户 ID。
func currentUserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(userIDContextKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}

// currentCoupleID 解析调用者所属的 Couple。
func (a *API) currentCoupleID(c *gin.Context) (uint, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return 0, false
	}

	coupleID, err := a.couples.CoupleIDOf(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "user not found")
		} else {
			respondError(c, http.StatusInternalServerError, "internal server error")
		}
		return 0, false
	}
	return coupleID, true
}

// requireCouple 校验路径里的 coupleID 属于调用者；不属于时一律 403，
// 不泄露目标资源是否存在。
func (a *API) requireCouple(c *gin.Context) (uint, bool) {
	coupleID, err := parseUintParam(c, "coupleID")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid couple id")
		return 0, false
	}

	callerCoupleID, ok := a.currentCoupleID(c)
	if !ok {
		return 0, false
	}
	if callerCoupleID != coupleID {
		respondError(c, http.StatusForbidden, "not a member of this couple")
		return 0, false
	}
	return coupleID, true
}
