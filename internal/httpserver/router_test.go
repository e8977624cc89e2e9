package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	mqcontracts "carecircle/contracts/mq"
	"carecircle/internal/apperr"
	"carecircle/internal/handler"
	"carecircle/internal/model"
	"carecircle/internal/realtime"
	"carecircle/internal/repository"
	"carecircle/internal/service/notification"
	"carecircle/pkg/rbac"
	"carecircle/pkg/util"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// tokenAuth 把 token 直接映射到 claims
type tokenAuth map[string]*util.Claims

func (a tokenAuth) Authenticate(ctx context.Context, token string) (*util.Claims, error) {
	if c, ok := a[token]; ok {
		return c, nil
	}
	return nil, apperr.Unauthorized("invalid token")
}

type notificationRows struct {
	rows []*model.Notification
}

func (s *notificationRows) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.NotificationView, error) {
	var out []model.NotificationView
	for _, r := range s.rows {
		if r.UserID == userID {
			out = append(out, model.NotificationView{Notification: *r, Destination: r.Destination()})
		}
	}
	return out, nil
}

func (s *notificationRows) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	for _, r := range s.rows {
		if r.UserID == userID && !r.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *notificationRows) MarkAsRead(ctx context.Context, userID uuid.UUID, id int64) (bool, error) {
	for _, r := range s.rows {
		if r.ID == id && r.UserID == userID {
			flipped := !r.IsRead
			r.IsRead = true
			return flipped, nil
		}
	}
	return false, repository.ErrNotFound
}

func (s *notificationRows) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	for _, r := range s.rows {
		if r.UserID == userID && !r.IsRead {
			r.IsRead = true
			n++
		}
	}
	return n, nil
}

type noCache struct{}

func (noCache) Get(ctx context.Context, userID uuid.UUID) (notification.CacheEntry, error) {
	return notification.CacheEntry{}, nil
}
func (noCache) Fill(ctx context.Context, userID uuid.UUID, generation string, n int64) (bool, error) {
	return false, nil
}
func (noCache) Invalidate(ctx context.Context, userID uuid.UUID) error { return nil }

type testEnv struct {
	engine    *gin.Engine
	hub       *realtime.Hub
	patient   uuid.UUID
	caregiver uuid.UUID
}

// newTestEngine 只挂载测试需要的路由，中间件与生产一致
func newTestEngine(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		hub:       realtime.NewHub(4, zap.NewNop()),
		patient:   uuid.New(),
		caregiver: uuid.New(),
	}
	auth := tokenAuth{
		"patient-token":   {UserID: env.patient.String(), Role: rbac.RoleUser},
		"caregiver-token": {UserID: env.caregiver.String(), Role: rbac.RoleCaregiver},
	}
	store := &notificationRows{rows: []*model.Notification{
		{ID: 1, UserID: env.patient, Type: model.NotificationTask, SourceTable: "tasks"},
		{ID: 2, UserID: env.patient, Type: model.NotificationComment, SourceTable: "questions", SourceID: uuid.New()},
		{ID: 3, UserID: env.caregiver, Type: model.NotificationReaction, SourceTable: "questions"},
	}}
	notifications := handler.NewNotificationHandler(notification.NewService(store, noCache{}, zap.NewNop()), zap.NewNop())
	rt := handler.NewRealtimeHandler(env.hub, time.Minute, zap.NewNop())

	r := gin.New()
	r.Use(TraceMiddleware(), MetricsMiddleware(), RequestLogger(zap.NewNop()))
	api := r.Group("/", AuthMiddleware(auth))
	api.GET("/notifications", RequirePermission(rbac.PermissionReadNotice), notifications.List)
	api.GET("/notifications/unread-count", notifications.UnreadCount)
	api.POST("/notifications/read-all", notifications.MarkAllAsRead)
	api.POST("/notifications/:id/read", notifications.MarkAsRead)
	api.GET("/patients/nearby", RequirePermission(rbac.PermissionNearbyPatients), func(c *gin.Context) { c.Status(http.StatusOK) })
	api.GET("/realtime/:table", rt.Stream)
	env.engine = r
	return env
}

func do(t *testing.T, h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAuthAndPermissions(t *testing.T) {
	env := newTestEngine(t)

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"missing token", "/notifications", "", http.StatusUnauthorized},
		{"bad token", "/notifications", "nope", http.StatusUnauthorized},
		{"patient reads notifications", "/notifications", "patient-token", http.StatusOK},
		{"patient cannot run nearby", "/patients/nearby", "patient-token", http.StatusForbidden},
		{"caregiver runs nearby", "/patients/nearby", "caregiver-token", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, env.engine, http.MethodGet, tt.path, tt.token)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.status, w.Body.String())
			}
			if w.Header().Get("X-Trace-ID") == "" {
				t.Fatal("trace id header missing")
			}
		})
	}
}

func TestMarkAllAsReadZeroesUnread(t *testing.T) {
	env := newTestEngine(t)

	w := do(t, env.engine, http.MethodGet, "/notifications/unread-count", "patient-token")
	if !strings.Contains(w.Body.String(), `"unread_count":2`) {
		t.Fatalf("unexpected unread body %s", w.Body.String())
	}

	if w := do(t, env.engine, http.MethodPost, "/notifications/1/read", "patient-token"); w.Code != http.StatusOK {
		t.Fatalf("mark read status %d", w.Code)
	}
	if w := do(t, env.engine, http.MethodPost, "/notifications/3/read", "patient-token"); w.Code != http.StatusNotFound {
		t.Fatalf("marking another user's notification should be 404, got %d", w.Code)
	}
	if w := do(t, env.engine, http.MethodPost, "/notifications/read-all", "patient-token"); w.Code != http.StatusOK {
		t.Fatalf("read-all status %d", w.Code)
	}

	w = do(t, env.engine, http.MethodGet, "/notifications", "patient-token")
	var body struct {
		Notifications []model.NotificationView `json:"notifications"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	for _, n := range body.Notifications {
		if !n.IsRead {
			t.Fatalf("notification %d still unread", n.ID)
		}
	}
	w = do(t, env.engine, http.MethodGet, "/notifications/unread-count", "patient-token")
	if !strings.Contains(w.Body.String(), `"unread_count":0`) {
		t.Fatalf("unexpected unread body %s", w.Body.String())
	}
}

func TestRealtimeNotificationsRequireOwnFilter(t *testing.T) {
	env := newTestEngine(t)

	tests := []struct {
		name   string
		filter string
		status int
	}{
		{"no filter", "", http.StatusForbidden},
		{"someone else", "user_id=eq." + env.caregiver.String(), http.StatusForbidden},
		{"neq", "user_id=neq." + env.patient.String(), http.StatusForbidden},
		{"bad filter", "user_id", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, env.engine, http.MethodGet, "/realtime/notifications?filter="+tt.filter, "patient-token")
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}

	if w := do(t, env.engine, http.MethodGet, "/realtime/secrets", "patient-token"); w.Code != http.StatusNotFound {
		t.Fatalf("unknown table status = %d", w.Code)
	}
}

// streamRecorder gin 的 c.Stream 需要 CloseNotifier
type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *streamRecorder) CloseNotify() <-chan bool { return r.closed }

func TestRealtimeOwnedTablesRequireOwnFilter(t *testing.T) {
	env := newTestEngine(t)
	me, other := env.caregiver.String(), env.patient.String()

	tests := []struct {
		table  string
		filter string
		status int
	}{
		{"tasks", "", http.StatusForbidden},
		{"tasks", "caregiver=eq." + other, http.StatusForbidden},
		{"tasks", "caregiver=neq." + me, http.StatusForbidden},
		{"tasks", "caregiver=eq." + me, http.StatusOK},
		{"tasks", "user=eq." + me, http.StatusOK},
		{"medical_reminders", "", http.StatusForbidden},
		{"medical_reminders", "caregiver=eq." + me, http.StatusOK},
		{"contacts", "", http.StatusForbidden},
		{"contacts", "user=eq." + other, http.StatusForbidden},
		{"contacts", "caregiver=eq." + me, http.StatusForbidden},
		{"contacts", "user=eq." + me, http.StatusOK},
		{"patient_caretaker", "", http.StatusForbidden},
		{"patient_caretaker", "patient_id=eq." + other, http.StatusForbidden},
		{"patient_caretaker", "caretaker_id=eq." + me, http.StatusOK},
		{"questions", "", http.StatusOK},
		{"comment_reactions", "question_id=eq." + uuid.NewString(), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.table+"?"+tt.filter, func(t *testing.T) {
			// 已取消的 ctx：允许的订阅写完 subscribed 后立即返回
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			req := httptest.NewRequest(http.MethodGet, "/realtime/"+tt.table+"?filter="+tt.filter, nil).WithContext(ctx)
			req.Header.Set("Authorization", "Bearer caregiver-token")
			w := &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool)}
			env.engine.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.status, w.Body.String())
			}
		})
	}
	if n := env.hub.Count(); n != 0 {
		t.Fatalf("subscriptions leaked: %d", n)
	}
}

func TestRealtimeStreamsChangeEvents(t *testing.T) {
	env := newTestEngine(t)
	srv := httptest.NewServer(env.engine)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
		srv.URL+"/realtime/notifications?filter=user_id=eq."+env.patient.String(), nil)
	req.Header.Set("Authorization", "Bearer patient-token")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		t.Helper()
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read stream: %v", err)
			}
			if strings.HasPrefix(line, "event:") {
				return strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			}
		}
	}

	if ev := readEvent(); ev != "subscribed" {
		t.Fatalf("first event = %q, want subscribed", ev)
	}

	env.hub.Publish(mqcontracts.ChangeEvent{Table: "notifications", Type: mqcontracts.ChangeInsert,
		Keys: map[string]string{"user_id": env.caregiver.String()}})
	env.hub.Publish(mqcontracts.ChangeEvent{Table: "notifications", Type: mqcontracts.ChangeInsert,
		Keys: map[string]string{"user_id": env.patient.String()}})

	if ev := readEvent(); ev != "change" {
		t.Fatalf("event = %q, want change", ev)
	}
	line, _ := reader.ReadString('\n')
	if !strings.Contains(line, env.patient.String()) {
		t.Fatalf("change payload %q is not the patient's event", line)
	}
}
