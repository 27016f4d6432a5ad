package handler

import (
	"errors"
	"net/http"

	"github.com/coupleup/internal/logger"
	"github.com/coupleup/internal/service"
	"github.com/gin-gonic/gin"
)

type createChallengeRequest struct {
	Content  string `json:"content"`
	Category string `json:"category"`
}

type acceptChallengeRequest struct {
	ChallengeID int `json:"challenge_id"`
}

// GetChallenges 返回对调用者可见的挑战及接受标记。
func (a *API) GetChallenges(c *gin.Context) {
	coupleID, ok := a.currentCoupleID(c)
	if !ok {
		return
	}

	items, err := a.challenges.List(coupleID)
	if err != nil {
		logger.Error("list challenges failed", "couple_id", coupleID, "error", err)
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	c.JSON(http.StatusOK, items)
}

// CreateChallenge 为调用者的 Couple 新建挑战。
func (a *API) CreateChallenge(c *gin.Context) {
	var req createChallengeRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}

	coupleID, ok := a.currentCoupleID(c)
	if !ok {
		return
	}

	challenge, err := a.challenges.Create(coupleID, req.Content, req.Category)
	if err != nil {
		switch {
		case isValidationError(err):
			respondError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrQuotaExceeded):
			respondError(c, http.StatusForbidden, "maximum number of challenges created (5) reached")
		default:
			logger.Error("create challenge failed", "couple_id", coupleID, "error", err)
			respondError(c, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	c.JSON(http.StatusCreated, service.ChallengeItem{
		ID:           challenge.ID,
		Content:      challenge.Content,
		Category:     challenge.Category,
		IsPrecreated: challenge.IsPrecreated,
		CreatedBy:    challenge.CreatedBy,
		Accepted:     false,
	})
}

// DeleteChallenge 删除调用者 Couple 自建的挑战。
func (a *API) DeleteChallenge(c *gin.Context) {
	challengeID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid challenge id")
		return
	}

	coupleID, ok := a.currentCoupleID(c)
	if !ok {
		return
	}

	if err := a.challenges.Delete(challengeID, coupleID); err != nil {
		switch {
		case errors.Is(err, service.ErrItemNotFound):
			respondError(c, http.StatusNotFound, "challenge not found")
		case errors.Is(err, service.ErrNotOwner):
			respondError(c, http.StatusForbidden, "challenge not owned by your couple")
		default:
			logger.Error("delete challenge failed", "couple_id", coupleID, "error", err)
			respondError(c, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "challenge deleted"})
}

// AcceptChallenge 记录 Couple 接受某挑战。
func (a *API) AcceptChallenge(c *gin.Context) {
	coupleID, ok := a.requireCouple(c)
	if !ok {
		return
	}

	var req acceptChallengeRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}
	if err := service.ValidateID(req.ChallengeID, "challenge id"); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.challenges.Accept(coupleID, uint(req.ChallengeID)); err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			respondError(c, http.StatusNotFound, "challenge not found")
			return
		}
		logger.Error("accept challenge failed", "couple_id", coupleID, "error", err)
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "challenge accepted"})
}

// UnacceptChallenge 取消接受记录。
func (a *API) UnacceptChallenge(c *gin.Context) {
	coupleID, ok := a.requireCouple(c)
	if !ok {
		return
	}

	challengeID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid challenge id")
		return
	}

	if err := a.challenges.Unaccept(coupleID, challengeID); err != nil {
		if errors.Is(err, service.ErrAcceptanceNotFound) {
			respondError(c, http.StatusNotFound, "entry not found")
			return
		}
		logger.Error("unaccept challenge failed", "couple_id", coupleID, "error", err)
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "challenge unaccepted"})
}
