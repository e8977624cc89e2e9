// Package careclient is a typed HTTP client for the carecircle API.
package careclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"carecircle/internal/model"
	"carecircle/pkg/geo"
	"carecircle/pkg/trace"
)

// APIError 非 2xx 响应
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("carecircle api: %d %s", e.Status, e.Message)
}

// IsUnauthorized 会话缺失或失效，调用方应回到登录页
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if traceID := trace.FromContext(ctx); traceID != "" {
		req.Header.Set(trace.HeaderName, traceID)
	}
	return req, nil
}

// do 发送请求，out 为 nil 时丢弃响应体
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
	if body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: body.Error}
}

// Session 登录结果
type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Profile   *model.Profile `json:"profile"`
}

func (c *Client) SignUp(ctx context.Context, email, password, name, role string) (*model.Profile, error) {
	var out struct {
		Profile *model.Profile `json:"profile"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/signup", map[string]string{
		"email": email, "password": password, "name": name, "role": role,
	}, &out)
	return out.Profile, err
}

// SignIn 成功后客户端使用返回的 token
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/auth/signin", map[string]string{
		"email": email, "password": password,
	}, &s); err != nil {
		return nil, err
	}
	c.SetToken(s.Token)
	return &s, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/signout", nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

func (c *Client) Me(ctx context.Context) (*model.Profile, error) {
	var out struct {
		Profile *model.Profile `json:"profile"`
	}
	err := c.do(ctx, http.MethodGet, "/auth/session", nil, &out)
	return out.Profile, err
}

func (c *Client) UpdateLocation(ctx context.Context, p geo.Point) error {
	return c.do(ctx, http.MethodPut, "/profile/location", p, nil)
}

func (c *Client) Notifications(ctx context.Context) ([]model.NotificationView, error) {
	var out struct {
		Notifications []model.NotificationView `json:"notifications"`
	}
	err := c.do(ctx, http.MethodGet, "/notifications", nil, &out)
	return out.Notifications, err
}

func (c *Client) UnreadCount(ctx context.Context) (int64, error) {
	var out struct {
		UnreadCount int64 `json:"unread_count"`
	}
	err := c.do(ctx, http.MethodGet, "/notifications/unread-count", nil, &out)
	return out.UnreadCount, err
}

func (c *Client) MarkAsRead(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/notifications/%d/read", id), nil, nil)
}

func (c *Client) MarkAllAsRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/notifications/read-all", nil, nil)
}

func (c *Client) React(ctx context.Context, subjectType string, subjectID uuid.UUID, reactionType string) (*model.ReactionState, error) {
	var s model.ReactionState
	path := "/reactions/" + url.PathEscape(subjectType) + "/" + subjectID.String()
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"reaction_type": reactionType}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Reactions(ctx context.Context, subjectType string, subjectID uuid.UUID) (*model.ReactionState, error) {
	var s model.ReactionState
	path := "/reactions/" + url.PathEscape(subjectType) + "/" + subjectID.String()
	if err := c.do(ctx, http.MethodGet, path, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Questions(ctx context.Context) ([]model.QuestionSummary, error) {
	var out struct {
		Questions []model.QuestionSummary `json:"questions"`
	}
	err := c.do(ctx, http.MethodGet, "/questions", nil, &out)
	return out.Questions, err
}

func (c *Client) Ask(ctx context.Context, title, content string) (*model.Question, error) {
	var out struct {
		Question *model.Question `json:"question"`
	}
	err := c.do(ctx, http.MethodPost, "/questions", map[string]string{"title": title, "content": content}, &out)
	return out.Question, err
}

func (c *Client) Question(ctx context.Context, id uuid.UUID) (*model.QuestionDetail, []model.CommentView, error) {
	var out struct {
		Question *model.QuestionDetail `json:"question"`
		Comments []model.CommentView   `json:"comments"`
	}
	err := c.do(ctx, http.MethodGet, "/questions/"+id.String(), nil, &out)
	return out.Question, out.Comments, err
}

func (c *Client) Comment(ctx context.Context, questionID uuid.UUID, content string) (*model.Comment, error) {
	var out struct {
		Comment *model.Comment `json:"comment"`
	}
	err := c.do(ctx, http.MethodPost, "/questions/"+questionID.String()+"/comments", map[string]string{"content": content}, &out)
	return out.Comment, err
}

func (c *Client) Nearby(ctx context.Context) (*model.NearbyResult, error) {
	var res model.NearbyResult
	if err := c.do(ctx, http.MethodGet, "/patients/nearby", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
