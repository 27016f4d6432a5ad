package handler

import (
	"errors"
	"net/http"

	"github.com/coupleup/internal/logger"
	"github.com/coupleup/internal/service"
	"github.com/gin-gonic/gin"
)

type createMissionRequest struct {
	Content  string `json:"content"`
	Category string `json:"category"`
}

type acceptMissionRequest struct {
	MissionID int `json:"mission_id"`
}

// GetMissions 返回对调用者可见的任务及接受标记。
func (a *API) GetMissions(c *gin.Context) {
	coupleID, ok := a.currentCoupleID(c)
	if !ok {
		return
	}

	items, err := a.missions.List(coupleID)
	if err != nil {
		logger.Error("list missions failed", "couple_id", coupleID, "error", err)
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	c.JSON(http.StatusOK, items)
}

// CreateMission 为调用者的 Couple 新建任务。
func (a *API) CreateMission(c *gin.Context) {
	var req createMissionRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}

	coupleID, ok := a.currentCoupleID(c)
	if !ok {
		return
	}

	mission, err := a.missions.Create(coupleID, req.Content, req.Category)
	if err != nil {
		switch {
		case isValidationError(err):
			respondError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrQuotaExceeded):
			respondError(c, http.StatusForbidden, "maximum number of missions created (5) reached")
		default:
			logger.Error("create mission failed", "couple_id", coupleID, "error", err)
			respondError(c, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	c.JSON(http.StatusCreated, service.MissionItem{
		ID:           mission.ID,
		Content:      mission.Content,
		Category:     mission.Category,
		IsPrecreated: mission.IsPrecreated,
		CreatedBy:    mission.CreatedBy,
		Accepted:     false,
	})
}

// DeleteMission 删除调用者 Couple 自建的任务。
func (a *API) DeleteMission(c *gin.Context) {
	missionID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid mission id")
		return
	}

	coupleID, ok := a.currentCoupleID(c)
	if !ok {
		return
	}

	if err := a.missions.Delete(missionID, coupleID); err != nil {
		switch {
		case errors.Is(err, service.ErrItemNotFound):
			respondError(c, http.StatusNotFound, "mission not found")
		case errors.Is(err, service.ErrNotOwner):
			respondError(c, http.StatusForbidden, "mission not owned by your couple")
		default:
			logger.Error("delete mission failed", "couple_id", coupleID, "error", err)
			respondError(c, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "mission deleted"})
}

// AcceptMission 记录 Couple 接受某任务。
func (a *API) AcceptMission(c *gin.Context) {
	coupleID, ok := a.requireCouple(c)
	if !ok {
		return
	}

	var req acceptMissionRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}
	if err := service.ValidateID(req.MissionID, "mission id"); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.missions.Accept(coupleID, uint(req.MissionID)); err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			respondError(c, http.StatusNotFound, "mission not found")
			return
		}
		logger.Error("accept mission failed", "couple_id", coupleID, "error", err)
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "mission accepted"})
}

// UnacceptMission 取消接受记录。
func (a *API) UnacceptMission(c *gin.Context) {
	coupleID, ok := a.requireCouple(c)
	if !ok {
		return
	}

	missionID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid mission id")
		return
	}

	if err := a.missions.Unaccept(coupleID, missionID); err != nil {
		if errors.Is(err, service.ErrAcceptanceNotFound) {
			respondError(c, http.StatusNotFound, "entry not found")
			return
		}
		logger.Error("unaccept mission failed", "couple_id", coupleID, "error", err)
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "mission unaccepted"})
}
