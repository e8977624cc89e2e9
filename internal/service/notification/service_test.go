package notification

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carecircle/internal/apperr"
	"carecircle/internal/model"
	"carecircle/internal/repository"
)

type memStore struct {
	rows       []*model.Notification
	countCalls int
}

func (m *memStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.NotificationView, error) {
	var out []model.NotificationView
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].UserID == userID {
			out = append(out, model.NotificationView{Notification: *m.rows[i]})
		}
	}
	return out, nil
}

func (m *memStore) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	m.countCalls++
	var n int64
	for _, r := range m.rows {
		if r.UserID == userID && !r.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *memStore) MarkAsRead(ctx context.Context, userID uuid.UUID, id int64) (bool, error) {
	for _, r := range m.rows {
		if r.ID == id && r.UserID == userID {
			if r.IsRead {
				return false, nil
			}
			r.IsRead = true
			return true, nil
		}
	}
	return false, repository.ErrNotFound
}

func (m *memStore) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	for _, r := range m.rows {
		if r.UserID == userID && !r.IsRead {
			r.IsRead = true
			n++
		}
	}
	return n, nil
}

type memCache struct {
	values map[uuid.UUID]int64
	gens   map[uuid.UUID]int
	err    error
}

func newMemCache() *memCache {
	return &memCache{values: map[uuid.UUID]int64{}, gens: map[uuid.UUID]int{}}
}

func (c *memCache) Get(ctx context.Context, userID uuid.UUID) (CacheEntry, error) {
	if c.err != nil {
		return CacheEntry{}, c.err
	}
	n, ok := c.values[userID]
	return CacheEntry{Count: n, Hit: ok, Generation: strconv.Itoa(c.gens[userID])}, nil
}

func (c *memCache) Fill(ctx context.Context, userID uuid.UUID, generation string, n int64) (bool, error) {
	if generation != strconv.Itoa(c.gens[userID]) {
		return false, nil
	}
	c.values[userID] = n
	return true, nil
}

func (c *memCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	c.gens[userID]++
	delete(c.values, userID)
	return nil
}

// interleavedStore 在 COUNT(*) 算完之后、返回之前执行 during，
// 模拟另一个请求在查询与回填之间提交
type interleavedStore struct {
	*memStore
	during func()
}

func (s *interleavedStore) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.memStore.CountUnread(ctx, userID)
	if s.during != nil {
		during := s.during
		s.during = nil
		during()
	}
	return n, err
}

func seed(user, other uuid.UUID) *memStore {
	return &memStore{rows: []*model.Notification{
		{ID: 1, UserID: user, Type: model.NotificationComment},
		{ID: 2, UserID: user, Type: model.NotificationTask, IsRead: true},
		{ID: 3, UserID: user, Type: model.NotificationReaction},
		{ID: 4, UserID: other, Type: model.NotificationTask},
	}}
}

func TestUnreadCountUsesCache(t *testing.T) {
	user, other := uuid.New(), uuid.New()
	store := seed(user, other)
	s := NewService(store, newMemCache(), zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		n, err := s.UnreadCount(ctx, user)
		if err != nil {
			t.Fatal(err)
		}
		if n != 2 {
			t.Fatalf("unread = %d, want 2", n)
		}
	}
	if store.countCalls != 1 {
		t.Fatalf("second read should hit cache, store called %d times", store.countCalls)
	}
}

func TestUnreadCountFallsBackWhenCacheFails(t *testing.T) {
	user := uuid.New()
	s := NewService(seed(user, uuid.New()), &memCache{values: map[uuid.UUID]int64{}, gens: map[uuid.UUID]int{}, err: errors.New("redis down")}, zap.NewNop())
	n, err := s.UnreadCount(context.Background(), user)
	if err != nil || n != 2 {
		t.Fatalf("got (%d, %v), want (2, nil)", n, err)
	}
}

func TestMarkAsReadInvalidatesCache(t *testing.T) {
	user, other := uuid.New(), uuid.New()
	cache := newMemCache()
	s := NewService(seed(user, other), cache, zap.NewNop())
	ctx := context.Background()

	if _, err := s.UnreadCount(ctx, user); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkAsRead(ctx, user, 1); err != nil {
		t.Fatal(err)
	}
	n, err := s.UnreadCount(ctx, user)
	if err != nil || n != 1 {
		t.Fatalf("after mark read got (%d, %v), want (1, nil)", n, err)
	}

	// 已读再次标记成功
	if err := s.MarkAsRead(ctx, user, 2); err != nil {
		t.Fatalf("marking an already read row should succeed, got %v", err)
	}
}

func TestMarkAsReadIsOwnerScoped(t *testing.T) {
	user, other := uuid.New(), uuid.New()
	s := NewService(seed(user, other), newMemCache(), zap.NewNop())

	err := s.MarkAsRead(context.Background(), user, 4)
	if got := apperr.From(err).Kind.Status(); got != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", got)
	}
}

func TestMarkAllAsRead(t *testing.T) {
	user, other := uuid.New(), uuid.New()
	store := seed(user, other)
	s := NewService(store, newMemCache(), zap.NewNop())
	ctx := context.Background()

	n, err := s.MarkAllAsRead(ctx, user)
	if err != nil || n != 2 {
		t.Fatalf("MarkAllAsRead = (%d, %v), want (2, nil)", n, err)
	}
	unread, _ := s.UnreadCount(ctx, user)
	if unread != 0 {
		t.Fatalf("unread after mark all = %d", unread)
	}
	list, _ := s.List(ctx, user, 0)
	for _, v := range list {
		if !v.IsRead {
			t.Fatalf("notification %d still unread", v.ID)
		}
	}
	if otherUnread, _ := s.UnreadCount(ctx, other); otherUnread != 1 {
		t.Fatalf("other user's notifications must be untouched, unread = %d", otherUnread)
	}
}

func TestUnreadCountDoesNotCacheCountRacingMarkAll(t *testing.T) {
	user, other := uuid.New(), uuid.New()
	store := &interleavedStore{memStore: seed(user, other)}
	cache := newMemCache()
	s := NewService(store, cache, zap.NewNop())
	ctx := context.Background()

	store.during = func() {
		if _, err := s.MarkAllAsRead(ctx, user); err != nil {
			t.Errorf("MarkAllAsRead: %v", err)
		}
	}

	// 进行中的读取拿到的是提交前的值
	if n, err := s.UnreadCount(ctx, user); err != nil || n != 2 {
		t.Fatalf("in-flight UnreadCount = (%d, %v), want (2, nil)", n, err)
	}
	if _, ok := cache.values[user]; ok {
		t.Fatalf("stale count %d must not be cached", cache.values[user])
	}
	n, err := s.UnreadCount(ctx, user)
	if err != nil || n != 0 {
		t.Fatalf("UnreadCount after MarkAllAsRead = (%d, %v), want (0, nil)", n, err)
	}
}

func TestUnreadCountSkipsFillWhenCacheUnavailable(t *testing.T) {
	user := uuid.New()
	cache := newMemCache()
	cache.err = errors.New("redis down")
	s := NewService(seed(user, uuid.New()), cache, zap.NewNop())

	if _, err := s.UnreadCount(context.Background(), user); err != nil {
		t.Fatal(err)
	}
	if len(cache.values) != 0 {
		t.Fatalf("nothing should be cached without a generation, got %v", cache.values)
	}
}
