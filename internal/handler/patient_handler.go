package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carecircle/internal/apperr"
	"carecircle/internal/service/patient"
	"carecircle/internal/service/proximity"
	"carecircle/pkg/geo"
	"carecircle/pkg/util"
)

type PatientHandler struct {
	patients  *patient.Service
	proximity *proximity.Service
	validator *util.Validator
	logger    *zap.Logger
}

func NewPatientHandler(patients *patient.Service, prox *proximity.Service, validator *util.Validator, logger *zap.Logger) *PatientHandler {
	return &PatientHandler{patients: patients, proximity: prox, validator: validator, logger: logger}
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

func (h *PatientHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.patients.Patients(c.Request.Context(), userID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patients": list})
}

// Search GET /patients/search?q=&limit=
func (h *PatientHandler) Search(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	list, err := h.patients.Search(c.Request.Context(), userID, c.Query("q"), limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patients": list})
}

func (h *PatientHandler) Link(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	patientID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.patients.Link(c.Request.Context(), userID, patientID); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "linked"})
}

func (h *PatientHandler) Caregivers(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.patients.Caregivers(c.Request.Context(), userID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"caregivers": list})
}

func (h *PatientHandler) Nearby(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := h.proximity.Nearby(c.Request.Context(), userID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UpdateLocation PUT /profile/location
func (h *PatientHandler) UpdateLocation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req locationRequest
	if !bind(c, h.validator, &req) {
		return
	}

	p := geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude}
	if err := h.proximity.UpdateLocation(c.Request.Context(), userID, p); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
