package handler

import (
	"errors"
	"net/http"

	"github.com/coupleup/internal/service"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	Name           string `json:"name"`
	InvitationCode string `json:"invitation_code"`
	CoupleName     string `json:"couple_name"`
}

type googleAuthRequest struct {
	Token          string `json:"token"`
	Name           string `json:"name"`
	InvitationCode string `json:"invitation_code"`
	CoupleName     string `json:"couple_name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register 处理本地凭据注册。
func (a *API) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}

	result, err := a.auth.Register(service.RegisterInput{
		Username:       req.Username,
		Password:       req.Password,
		Name:           req.Name,
		InvitationCode: req.InvitationCode,
		CoupleName:     req.CoupleName,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, authResponse(result))
}

// Login 处理本地凭据登录。
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}

	result, err := a.auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, "invalid username or password")
			return
		}
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}

	c.JSON(http.StatusOK, authResponse(result))
}

// GoogleRegister 处理联合身份注册。
func (a *API) GoogleRegister(c *gin.Context) {
	var req googleAuthRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}

	result, err := a.auth.GoogleRegister(c.Request.Context(), req.Token, service.RegisterInput{
		Name:           req.Name,
		InvitationCode: req.InvitationCode,
		CoupleName:     req.CoupleName,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, authResponse(result))
}

// GoogleLogin 处理联合身份登录。
func (a *API) GoogleLogin(c *gin.Context) {
	var req googleAuthRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}

	result, err := a.auth.GoogleLogin(c.Request.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrIdentityRejected):
			respondError(c, http.StatusUnauthorized, "invalid identity token")
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "user not registered")
		default:
			respondError(c, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	c.JSON(http.StatusOK, authResponse(result))
}

// Refresh 用刷新令牌换发新的访问令牌。
func (a *API) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req, "invalid request body") {
		return
	}

	access, err := a.tokens.Refresh(req.RefreshToken)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": access})
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserExists):
		respondError(c, http.StatusConflict, "user already exists")
	case errors.Is(err, service.ErrInvitationNotFound):
		respondError(c, http.StatusNotFound, "invalid invitation code")
	case errors.Is(err, service.ErrCoupleFull):
		respondError(c, http.StatusConflict, "couple is full")
	case errors.Is(err, service.ErrCoupleNameRequired):
		respondError(c, http.StatusBadRequest, "couple name required for new couples")
	case errors.Is(err, service.ErrIdentityRejected):
		respondError(c, http.StatusUnauthorized, "invalid identity token")
	case isValidationError(err):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "internal server error")
	}
}

func authResponse(result *service.AuthResult) gin.H {
	return gin.H{
		"access_token":    result.AccessToken,
		"refresh_token":   result.RefreshToken,
		"user_id":         result.UserID,
		"couple_id":       result.CoupleID,
		"couple_name":     result.CoupleName,
		"invitation_code": result.InvitationCode,
	}
}
