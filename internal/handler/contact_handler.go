package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carecircle/internal/apperr"
	"carecircle/internal/service/contact"
	"carecircle/pkg/util"
)

type ContactHandler struct {
	svc       *contact.Service
	validator *util.Validator
	logger    *zap.Logger
}

func NewContactHandler(svc *contact.Service, validator *util.Validator, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{svc: svc, validator: validator, logger: logger}
}

type contactRequest struct {
	ContactName string `json:"contact_name" validate:"required,max=100"`
	Number      string `json:"number" validate:"required,phone"`
}

func (h *ContactHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.svc.List(c.Request.Context(), userID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": list})
}

func (h *ContactHandler) Add(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req contactRequest
	if !bind(c, h.validator, &req) {
		return
	}

	ct, err := h.svc.Add(c.Request.Context(), userID, req.ContactName, req.Number)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"contact": ct})
}

func (h *ContactHandler) Remove(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Remove(c.Request.Context(), userID, id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PatientContacts 照护者查看各患者的紧急联系人
func (h *ContactHandler) PatientContacts(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	groups, err := h.svc.ForCaregiver(c.Request.Context(), userID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patients": groups})
}
