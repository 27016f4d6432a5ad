package handler

import (
	"errors"
	"net/http"

	"github.com/coupleup/internal/logger"
	"github.com/coupleup/internal/service"
	"github.com/gin-gonic/gin"
)

type createScenarioRequest struct {
	Setting string   `json:"setting"`
	Roles   []string `json:"roles"`
	Prompt  string   `json:"prompt"`
	Time    string   `json:"time"`
}

type acceptScenarioRequest struct {
	ScenarioID int `json:"scenario_id"`
}

// GetScenarios 返回对调用者可见的场景及接受标记。
func (a *API) GetScenarios(c *gin.Context) {
	coupleID, ok := a.currentCoupleID(c)
	if !ok {
		return
	}

	items, err := a.scenarios.List(coupleID)
	if err != nil {
		logger.Error("list scenarios failed", "couple_id", coupleID, "error", err)
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	c.JSON(http.StatusOK, items)
}

// CreateScenario 为调用者的 Couple 新建场景。
func (a *API) CreateScenario(c *gin.Context) {
	var req createScenarioRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}

	coupleID, ok := a.currentCoupleID(c)
	if !ok {
		return
	}

	scenario, err := a.scenarios.Create(coupleID, req.Setting, req.Roles, req.Prompt, req.Time)
	if err != nil {
		switch {
		case isValidationError(err), errors.Is(err, service.ErrInvalidRoles):
			respondError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrQuotaExceeded):
			respondError(c, http.StatusForbidden, "maximum number of scenarios created (5) reached")
		default:
			logger.Error("create scenario failed", "couple_id", coupleID, "error", err)
			respondError(c, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":            scenario.ID,
		"setting":       scenario.Setting,
		"roles":         req.Roles,
		"prompt":        scenario.Prompt,
		"time":          scenario.Time,
		"is_precreated": scenario.IsPrecreated,
		"created_by":    scenario.CreatedBy,
		"accepted":      false,
	})
}

// DeleteScenario 删除调用者 Couple 自建的场景。
func (a *API) DeleteScenario(c *gin.Context) {
	scenarioID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid scenario id")
		return
	}

	coupleID, ok := a.currentCoupleID(c)
	if !ok {
		return
	}

	if err := a.scenarios.Delete(scenarioID, coupleID); err != nil {
		switch {
		case errors.Is(err, service.ErrItemNotFound):
			respondError(c, http.StatusNotFound, "scenario not found")
		case errors.Is(err, service.ErrNotOwner):
			respondError(c, http.StatusForbidden, "scenario not owned by your couple")
		default:
			logger.Error("delete scenario failed", "couple_id", coupleID, "error", err)
			respondError(c, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "scenario deleted"})
}

// AcceptScenario 记录 Couple 接受某场景。
func (a *API) AcceptScenario(c *gin.Context) {
	coupleID, ok := a.requireCouple(c)
	if !ok {
		return
	}

	var req acceptScenarioRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}
	if err := service.ValidateID(req.ScenarioID, "scenario id"); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.scenarios.Accept(coupleID, uint(req.ScenarioID)); err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			respondError(c, http.StatusNotFound, "scenario not found")
			return
		}
		logger.Error("accept scenario failed", "couple_id", coupleID, "error", err)
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "scenario accepted"})
}

// UnacceptScenario 取消接受记录。
func (a *API) UnacceptScenario(c *gin.Context) {
	coupleID, ok := a.requireCouple(c)
	if !ok {
		return
	}

	scenarioID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid scenario id")
		return
	}

	if err := a.scenarios.Unaccept(coupleID, scenarioID); err != nil {
		if errors.Is(err, service.ErrAcceptanceNotFound) {
			respondError(c, http.StatusNotFound, "entry not found")
			return
		}
		logger.Error("unaccept scenario failed", "couple_id", coupleID, "error", err)
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "scenario unaccepted"})
}
