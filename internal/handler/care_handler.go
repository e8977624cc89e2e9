package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"carecircle/internal/apperr"
	"carecircle/internal/service/careplan"
	"carecircle/pkg/rbac"
	"carecircle/pkg/util"
)

type CareHandler struct {
	svc       *careplan.Service
	validator *util.Validator
	logger    *zap.Logger
}

func NewCareHandler(svc *careplan.Service, validator *util.Validator, logger *zap.Logger) *CareHandler {
	return &CareHandler{svc: svc, validator: validator, logger: logger}
}

type assignTaskRequest struct {
	Description string      `json:"description" validate:"required,max=500"`
	PatientIDs  []uuid.UUID `json:"patient_ids" validate:"required,min=1"`
	StartTime   time.Time   `json:"start_time" validate:"required"`
	EndTime     time.Time   `json:"end_time" validate:"required,gtfield=StartTime"`
}

type completeTaskRequest struct {
	Completed *bool `json:"completed"`
}

type reminderRequest struct {
	Description string    `json:"description" validate:"required,max=500"`
	PatientID   uuid.UUID `json:"patient_id" validate:"required"`
	Time        time.Time `json:"time" validate:"required"`
}

func isCaregiver(c *gin.Context) bool {
	claims := CurrentClaims(c)
	return claims != nil && claims.Role == rbac.RoleCaregiver
}

// ListTasks 照护者看自己分配的任务，患者看自己的任务
func (h *CareHandler) ListTasks(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var (
		tasks any
		err   error
	)
	if isCaregiver(c) {
		tasks, err = h.svc.CaregiverTasks(c.Request.Context(), userID)
	} else {
		tasks, err = h.svc.PatientTasks(c.Request.Context(), userID)
	}
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *CareHandler) AssignTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req assignTaskRequest
	if !bind(c, h.validator, &req) {
		return
	}

	tasks, err := h.svc.AssignTask(c.Request.Context(), userID, careplan.AssignInput{
		Description: req.Description,
		PatientIDs:  req.PatientIDs,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tasks": tasks})
}

// CompleteTask body 为空时视为完成
func (h *CareHandler) CompleteTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	completed := true
	if c.Request.ContentLength > 0 {
		var req completeTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperr.Respond(c, apperr.Validation("invalid request body"))
			return
		}
		if req.Completed != nil {
			completed = *req.Completed
		}
	}

	t, err := h.svc.SetCompleted(c.Request.Context(), taskID, userID, completed)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": t})
}

func (h *CareHandler) ListReminders(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var (
		reminders any
		err       error
	)
	if isCaregiver(c) {
		reminders, err = h.svc.CaregiverReminders(c.Request.Context(), userID)
	} else {
		reminders, err = h.svc.PatientReminders(c.Request.Context(), userID)
	}
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminders": reminders})
}

func (h *CareHandler) CreateReminder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req reminderRequest
	if !bind(c, h.validator, &req) {
		return
	}

	m, err := h.svc.CreateReminder(c.Request.Context(), userID, req.PatientID, req.Description, req.Time)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reminder": m})
}
