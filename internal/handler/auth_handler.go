package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carecircle/internal/apperr"
	"carecircle/internal/service/auth"
	"carecircle/pkg/util"
)

type AuthHandler struct {
	svc       *auth.Service
	validator *util.Validator
	logger    *zap.Logger
}

func NewAuthHandler(svc *auth.Service, validator *util.Validator, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, validator: validator, logger: logger}
}

type signUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
	Role     string `json:"role" validate:"omitempty,oneof=user caregiver"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if !bind(c, h.validator, &req) {
		return
	}

	p, err := h.svc.SignUp(c.Request.Context(), auth.SignUpInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"profile": p})
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if !bind(c, h.validator, &req) {
		return
	}

	session, err := h.svc.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Info("Sign in rejected", zap.String("client_ip", c.ClientIP()))
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *AuthHandler) SignOut(c *gin.Context) {
	claims := CurrentClaims(c)
	if claims == nil {
		apperr.Respond(c, apperr.Unauthorized("user not authenticated"))
		return
	}
	if err := h.svc.SignOut(c.Request.Context(), claims); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Session 返回当前登录用户的资料
func (h *AuthHandler) Session(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	p, err := h.svc.Profile(c.Request.Context(), userID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}
