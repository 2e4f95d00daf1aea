// Package client 是 TripPlanner API 的 Go SDK。
//
// 进程内共享一个会话 gate：登录、注册成功后写入身份，登出后清空。
// 所有行程与广场调用先经过 gate，未登录时直接返回 Unauthenticated，不发起网络请求。
package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	hzclient "github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"TripPlanner/internal/model/dto"
	"TripPlanner/internal/session"
	"TripPlanner/pkg/errors"
)

var (
	processGate     *session.Gate
	processGateOnce sync.Once
)

// Gate 返回进程级会话 gate
func Gate() *session.Gate {
	processGateOnce.Do(func() {
		processGate = session.NewGate()
	})
	return processGate
}

type tokens struct {
	access  string
	refresh string
}

// Client API 客户端，可并发使用
type Client struct {
	http    *hzclient.Client
	baseURL string
	gate    *session.Gate

	mu     sync.RWMutex
	tokens tokens
}

// Option 客户端选项
type Option func(*options)

type options struct {
	gate        *session.Gate
	dialTimeout time.Duration
	readTimeout time.Duration
}

// WithGate 使用独立的会话 gate，默认为进程级 gate
func WithGate(g *session.Gate) Option {
	return func(o *options) { o.gate = g }
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *options) { o.dialTimeout = d }
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *options) { o.readTimeout = d }
}

// New 创建客户端，baseURL 形如 http://127.0.0.1:8888
func New(baseURL string, opts ...Option) (*Client, error) {
	o := options{
		dialTimeout: 3 * time.Second,
		readTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.gate == nil {
		o.gate = Gate()
	}

	hc, err := hzclient.NewClient(
		hzclient.WithDialTimeout(o.dialTimeout),
		hzclient.WithClientReadTimeout(o.readTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	return &Client{
		http:    hc,
		baseURL: strings.TrimRight(baseURL, "/"),
		gate:    o.gate,
	}, nil
}

// Session 返回客户端使用的 gate，可用于订阅登录状态变化
func (c *Client) Session() *session.Gate {
	return c.gate
}

// ========== 认证 ==========

func (c *Client) Signup(ctx context.Context, req dto.SignupRequest) (*dto.TokenResponse, error) {
	var resp dto.TokenResponse
	if _, err := c.do(ctx, consts.MethodPost, "/v1/auth/signup", req, false, &resp, nil); err != nil {
		return nil, err
	}
	c.signIn(&resp)
	return &resp, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*dto.TokenResponse, error) {
	var resp dto.TokenResponse
	req := dto.LoginRequest{Email: email, Password: password}
	if _, err := c.do(ctx, consts.MethodPost, "/v1/auth/login", req, false, &resp, nil); err != nil {
		return nil, err
	}
	c.signIn(&resp)
	return &resp, nil
}

// Refresh 用保存的 refresh token 轮换出新的 token 对
func (c *Client) Refresh(ctx context.Context) error {
	if _, err := c.gate.Require(); err != nil {
		return err
	}

	c.mu.RLock()
	refresh := c.tokens.refresh
	c.mu.RUnlock()

	var resp dto.TokenResponse
	req := dto.RefreshTokenRequest{RefreshToken: refresh}
	if _, err := c.do(ctx, consts.MethodPost, "/v1/auth/token/refresh", req, false, &resp, nil); err != nil {
		if stderrors.Is(err, errors.InvalidRefreshToken) {
			c.signOut()
		}
		return err
	}
	c.signIn(&resp)
	return nil
}

// Logout 通知服务端吊销 refresh token；无论服务端结果如何，本地会话都会清空
func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.gate.Require(); err != nil {
		return nil
	}
	defer c.signOut()

	_, err := c.do(ctx, consts.MethodPost, "/v1/auth/logout", nil, true, nil, nil)
	return err
}

func (c *Client) Profile(ctx context.Context) (*dto.ProfileResponse, error) {
	var resp dto.ProfileResponse
	if err := c.authed(ctx, consts.MethodGet, "/v1/users/me", nil, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) signIn(resp *dto.TokenResponse) {
	c.mu.Lock()
	c.tokens = tokens{access: resp.AccessToken, refresh: resp.RefreshToken}
	c.mu.Unlock()

	c.gate.SignIn(session.Identity{UserID: resp.User.ID, Email: resp.User.Email})
}

func (c *Client) signOut() {
	c.mu.Lock()
	c.tokens = tokens{}
	c.mu.Unlock()

	c.gate.SignOut()
}

// ========== 传输 ==========

type envelope struct {
	Data json.RawMessage           `json:"data"`
	Meta map[string]json.RawMessage `json:"meta"`
}

type errorEnvelope struct {
	Error struct {
		Details map[string]interface{} `json:"details"`
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
	} `json:"error"`
}

// authed 先检查会话，未登录时不发请求
func (c *Client) authed(ctx context.Context, method, path string, body, out interface{}, meta *map[string]json.RawMessage) error {
	if _, err := c.gate.Require(); err != nil {
		return err
	}
	_, err := c.do(ctx, method, path, body, true, out, meta)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, withToken bool, out interface{}, meta *map[string]json.RawMessage) (int, error) {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	req.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.Set("Accept", "application/json")

	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request: %w", err)
		}
		req.Header.SetContentTypeBytes([]byte("application/json"))
		req.SetBody(b)
	}

	if withToken {
		c.mu.RLock()
		access := c.tokens.access
		c.mu.RUnlock()
		req.Header.Set("Authorization", "Bearer "+access)
	}

	if err := c.http.Do(ctx, req, resp); err != nil {
		return 0, errors.Backend(fmt.Errorf("%s %s: %w", method, path, err))
	}

	status := resp.StatusCode()
	if status >= consts.StatusBadRequest {
		return status, decodeError(status, resp.Body())
	}

	if status == consts.StatusNoContent || out == nil {
		return status, nil
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return status, fmt.Errorf("failed to decode response: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return status, fmt.Errorf("failed to decode response data: %w", err)
	}
	if meta != nil {
		*meta = env.Meta
	}
	return status, nil
}

// decodeError 按错误码还原为 errors.Definition，字段名放回 Field
func decodeError(status int, body []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error.Code == "" {
		if status == consts.StatusServiceUnavailable {
			return errors.Backend(fmt.Errorf("status %d", status))
		}
		return fmt.Errorf("unexpected response: status %d", status)
	}

	def := errors.Get(env.Error.Code)
	if env.Error.Message != "" {
		def.Message = env.Error.Message
	}
	if field, ok := env.Error.Details["field"].(string); ok {
		def.Field = field
	}
	return def
}
