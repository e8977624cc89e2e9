package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carecircle/internal/apperr"
	"carecircle/internal/service/forum"
	"carecircle/internal/service/reaction"
	"carecircle/pkg/util"
)

type ForumHandler struct {
	forum     *forum.Service
	reactions *reaction.Service
	validator *util.Validator
	logger    *zap.Logger
}

func NewForumHandler(forumSvc *forum.Service, reactions *reaction.Service, validator *util.Validator, logger *zap.Logger) *ForumHandler {
	return &ForumHandler{forum: forumSvc, reactions: reactions, validator: validator, logger: logger}
}

type askRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

type commentRequest struct {
	Content string `json:"content" validate:"required"`
}

type reactRequest struct {
	ReactionType string `json:"reaction_type" validate:"required,oneof=like dislike"`
}

func (h *ForumHandler) ListQuestions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.forum.ListQuestions(c.Request.Context(), limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": list})
}

func (h *ForumHandler) Ask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req askRequest
	if !bind(c, h.validator, &req) {
		return
	}

	q, err := h.forum.Ask(c.Request.Context(), userID, req.Title, req.Content)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"question": q})
}

// GetQuestion 详情 + 评论
func (h *ForumHandler) GetQuestion(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	detail, comments, err := h.forum.Question(c.Request.Context(), id, userID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"question": detail, "comments": comments})
}

func (h *ForumHandler) ListComments(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	comments, err := h.forum.Comments(c.Request.Context(), id, userID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (h *ForumHandler) AddComment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if !bind(c, h.validator, &req) {
		return
	}

	comment, err := h.forum.AddComment(c.Request.Context(), id, userID, req.Content)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// React POST /reactions/:subject/:id
func (h *ForumHandler) React(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req reactRequest
	if !bind(c, h.validator, &req) {
		return
	}

	state, err := h.reactions.Toggle(c.Request.Context(), c.Param("subject"), id, userID, req.ReactionType)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// Reactions GET /reactions/:subject/:id
func (h *ForumHandler) Reactions(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	state, err := h.reactions.State(c.Request.Context(), c.Param("subject"), id, userID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}
