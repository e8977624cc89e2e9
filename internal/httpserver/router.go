package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"carecircle/internal/handler"
	"carecircle/pkg/otel"
	"carecircle/pkg/rbac"
)

// Pinger 就绪检查依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc 把普通函数适配为 Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Handlers struct {
	Auth          *handler.AuthHandler
	Forum         *handler.ForumHandler
	Notifications *handler.NotificationHandler
	Care          *handler.CareHandler
	Contacts      *handler.ContactHandler
	Patients      *handler.PatientHandler
	Realtime      *handler.RealtimeHandler
}

type Router struct {
	Engine *gin.Engine
}

// NewHealthRouter 只带健康检查与指标，worker 也使用
func NewHealthRouter(checks map[string]Pinger, logger *zap.Logger) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otel.GinMiddleware(), MetricsMiddleware(), RequestLogger(logger))

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Router{Engine: r}
}

func NewRouter(h Handlers, auth Authenticator, checks map[string]Pinger, logger *zap.Logger) *Router {
	r := NewHealthRouter(checks, logger).Engine

	// Public
	r.POST("/auth/signup", h.Auth.SignUp)
	r.POST("/auth/signin", h.Auth.SignIn)

	// Protected
	api := r.Group("/")
	api.Use(AuthMiddleware(auth))
	{
		api.POST("/auth/signout", h.Auth.SignOut)
		api.GET("/auth/session", h.Auth.Session)
		api.PUT("/profile/location", h.Patients.UpdateLocation)

		// 论坛
		api.GET("/questions", h.Forum.ListQuestions)
		api.POST("/questions", RequirePermission(rbac.PermissionPostForum), h.Forum.Ask)
		api.GET("/questions/:id", h.Forum.GetQuestion)
		api.GET("/questions/:id/comments", h.Forum.ListComments)
		api.POST("/questions/:id/comments", RequirePermission(rbac.PermissionPostForum), h.Forum.AddComment)
		api.GET("/reactions/:subject/:id", h.Forum.Reactions)
		api.POST("/reactions/:subject/:id", RequirePermission(rbac.PermissionReact), h.Forum.React)

		// 通知
		notifications := api.Group("/notifications", RequirePermission(rbac.PermissionReadNotice))
		notifications.GET("", h.Notifications.List)
		notifications.GET("/unread-count", h.Notifications.UnreadCount)
		notifications.POST("/read-all", h.Notifications.MarkAllAsRead)
		notifications.POST("/:id/read", h.Notifications.MarkAsRead)

		// 任务与提醒
		api.GET("/tasks", RequirePermission(rbac.PermissionReadTask), h.Care.ListTasks)
		api.POST("/tasks", RequirePermission(rbac.PermissionAssignTask), h.Care.AssignTask)
		api.POST("/tasks/:id/complete", RequirePermission(rbac.PermissionCompleteTask), h.Care.CompleteTask)
		api.GET("/reminders", RequirePermission(rbac.PermissionReadReminder), h.Care.ListReminders)
		api.POST("/reminders", RequirePermission(rbac.PermissionCreateReminder), h.Care.CreateReminder)

		// 紧急联系人
		api.GET("/contacts", RequirePermission(rbac.PermissionManageContacts), h.Contacts.List)
		api.POST("/contacts", RequirePermission(rbac.PermissionManageContacts), h.Contacts.Add)
		api.DELETE("/contacts/:id", RequirePermission(rbac.PermissionManageContacts), h.Contacts.Remove)

		// 患者关联
		api.GET("/patients", RequirePermission(rbac.PermissionSearchPatients), h.Patients.List)
		api.GET("/patients/search", RequirePermission(rbac.PermissionSearchPatients), h.Patients.Search)
		api.GET("/patients/nearby", RequirePermission(rbac.PermissionNearbyPatients), h.Patients.Nearby)
		api.GET("/patients/contacts", RequirePermission(rbac.PermissionPatientContact), h.Contacts.PatientContacts)
		api.POST("/patients/:id/link", RequirePermission(rbac.PermissionLinkPatient), h.Patients.Link)
		api.GET("/caregivers", RequirePermission(rbac.PermissionListCaregivers), h.Patients.Caregivers)

		// 变更订阅
		api.GET("/realtime/:table", h.Realtime.Stream)
	}

	return &Router{Engine: r}
}

// Server 供 main 做优雅关闭；SSE 连接是长连接，不设置 WriteTimeout
func (r *Router) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
