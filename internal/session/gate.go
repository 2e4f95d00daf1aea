package session

import (
	"context"
	"sync"
	"time"

	"TripPlanner/pkg/errors"
)

// Identity 已登录用户
type Identity struct {
	UserID string
	Email  string
}

// Change 会话状态变化通知
type Change struct {
	Identity Identity
	SignedIn bool
	At       time.Time
}

// Gate 持有当前会话身份，所有按用户划分的操作都必须先经过 Require。
// 订阅者收到的是带 1 个缓冲的通道，慢订阅者只会看到最新状态，不会阻塞发布方。
type Gate struct {
	mu       sync.RWMutex
	current  *Identity
	subs     map[int]chan Change
	nextSub  int
	timeFunc func() time.Time
}

func NewGate() *Gate {
	return &Gate{
		subs:     make(map[int]chan Change),
		timeFunc: time.Now,
	}
}

// Current 返回当前身份，未登录时 ok 为 false。
func (g *Gate) Current() (Identity, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.current == nil {
		return Identity{}, false
	}
	return *g.current, true
}

// Require 返回当前用户 ID，未登录时返回 Unauthenticated。
func (g *Gate) Require() (string, error) {
	id, ok := g.Current()
	if !ok || id.UserID == "" {
		return "", errors.Unauthenticated
	}
	return id.UserID, nil
}

// RequireIdentity 同 Require，返回完整身份。
func (g *Gate) RequireIdentity() (Identity, error) {
	id, ok := g.Current()
	if !ok || id.UserID == "" {
		return Identity{}, errors.Unauthenticated
	}
	return id, nil
}

func (g *Gate) SignIn(id Identity) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.current = &id
	g.notifyLocked(Change{Identity: id, SignedIn: true, At: g.timeFunc()})
}

func (g *Gate) SignOut() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current == nil {
		return
	}
	prev := *g.current
	g.current = nil
	g.notifyLocked(Change{Identity: prev, SignedIn: false, At: g.timeFunc()})
}

// Subscribe 订阅会话变化，返回的 cancel 会关闭通道，可重复调用。
func (g *Gate) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, 1)

	g.mu.Lock()
	id := g.nextSub
	g.nextSub++
	g.subs[id] = ch
	g.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.subs, id)
			g.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// notifyLocked 需持有写锁；通道已满时丢弃旧值再写入。
func (g *Gate) notifyLocked(c Change) {
	for _, ch := range g.subs {
		select {
		case ch <- c:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- c:
		default:
		}
	}
}

type ctxKey struct{}

// WithGate 把 gate 绑定到请求上下文。
func WithGate(ctx context.Context, g *Gate) context.Context {
	return context.WithValue(ctx, ctxKey{}, g)
}

// FromContext 取出绑定的 gate，没有时返回 nil。
func FromContext(ctx context.Context) *Gate {
	g, _ := ctx.Value(ctxKey{}).(*Gate)
	return g
}

// Require 从上下文中的 gate 取身份，没有 gate 或未登录都返回 Unauthenticated。
func Require(ctx context.Context) (Identity, error) {
	g := FromContext(ctx)
	if g == nil {
		return Identity{}, errors.Unauthenticated
	}
	return g.RequireIdentity()
}
