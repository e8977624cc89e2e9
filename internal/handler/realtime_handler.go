package handler

import (
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"carecircle/internal/apperr"
	"carecircle/internal/realtime"
	"carecircle/pkg/logger"
)

// 可以订阅的表。值为空的是公开表（论坛）；
// 其余是按人归属的表，必须用 <列>=eq.<自己的 id> 订阅，列为其中之一
var feedTables = map[string][]string{
	"questions":          nil,
	"comments":           nil,
	"question_reactions": nil,
	"comment_reactions":  nil,
	"notifications":      {"user_id"},
	"tasks":              {"user", "caregiver"},
	"medical_reminders":  {"user", "caregiver"},
	"contacts":           {"user"},
	"patient_caretaker":  {"patient_id", "caretaker_id"},
}

// ownFilter 过滤条件是否只会匹配调用者自己的行
func ownFilter(owners []string, filter realtime.Filter, userID uuid.UUID) bool {
	if filter.Op != realtime.OpEq || filter.Value != userID.String() {
		return false
	}
	return slices.Contains(owners, filter.Column)
}

type RealtimeHandler struct {
	hub       *realtime.Hub
	keepAlive time.Duration
	logger    *zap.Logger
}

func NewRealtimeHandler(hub *realtime.Hub, keepAlive time.Duration, logger *zap.Logger) *RealtimeHandler {
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	return &RealtimeHandler{hub: hub, keepAlive: keepAlive, logger: logger}
}

// Stream GET /realtime/:table?filter=column=eq.value，以 SSE 推送变更事件
func (h *RealtimeHandler) Stream(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	table := c.Param("table")
	owners, known := feedTables[table]
	if !known {
		apperr.Respond(c, apperr.NotFound("unknown table "+table))
		return
	}
	filter, err := realtime.ParseFilter(c.Query("filter"))
	if err != nil {
		apperr.Respond(c, apperr.Validation(err.Error()))
		return
	}
	if owners != nil && !ownFilter(owners, filter, userID) {
		apperr.Respond(c, apperr.Forbidden(table+" feed must be filtered by "+owners[0]+"=eq.<your id>"))
		return
	}

	sub := h.hub.Subscribe(table, filter)
	defer h.hub.Unsubscribe(sub)

	log := logger.WithTrace(c.Request.Context(), h.logger).With(
		zap.String("table", table),
		zap.String("filter", filter.String()),
		zap.String("user_id", userID.String()),
	)
	log.Debug("Change feed subscribed")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent("subscribed", gin.H{"table": table, "filter": filter.String()})
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-sub.Events():
			if !ok {
				return false
			}
			c.SSEvent("change", ev)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
	log.Debug("Change feed closed")
}
