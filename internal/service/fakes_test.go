package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"TripPlanner/internal/model"
	"TripPlanner/internal/model/dto"
)

// fakePlanRepo 内存实现，模拟 (owner_id, original_plan_id) 唯一索引与 NowFunc
type fakePlanRepo struct {
	mu    sync.Mutex
	plans map[string]*model.TravelPlan
	clock func() time.Time
	err   error

	lastPublicLimit int
}

func newFakePlanRepo(clock func() time.Time) *fakePlanRepo {
	return &fakePlanRepo{plans: map[string]*model.TravelPlan{}, clock: clock}
}

func clonePlan(p *model.TravelPlan) *model.TravelPlan {
	cp := *p
	cp.Places = append(datatypes.JSONSlice[model.Place]{}, p.Places...)
	cp.InvitedEmails = append(datatypes.JSONSlice[string]{}, p.InvitedEmails...)
	if p.OriginalPlanID != nil {
		id := *p.OriginalPlanID
		cp.OriginalPlanID = &id
	}
	return &cp
}

func (r *fakePlanRepo) stamp(p *model.TravelPlan) {
	now := r.clock().UTC().Truncate(time.Microsecond)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

func (r *fakePlanRepo) Create(ctx context.Context, plan *model.TravelPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.plans[plan.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	r.stamp(plan)
	r.plans[plan.ID] = clonePlan(plan)
	return nil
}

func (r *fakePlanRepo) CreateCopy(ctx context.Context, plan *model.TravelPlan) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	for _, p := range r.plans {
		if p.OwnerID == plan.OwnerID && p.OriginalPlanID != nil && plan.OriginalPlanID != nil && *p.OriginalPlanID == *plan.OriginalPlanID {
			return false, nil
		}
	}
	r.stamp(plan)
	r.plans[plan.ID] = clonePlan(plan)
	return true, nil
}

func (r *fakePlanRepo) GetByID(ctx context.Context, planID string) (*model.TravelPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.plans[planID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return clonePlan(p), nil
}

func (r *fakePlanRepo) FindCopy(ctx context.Context, ownerID, originalPlanID string) (*model.TravelPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, p := range r.plans {
		if p.OwnerID == ownerID && p.OriginalPlanID != nil && *p.OriginalPlanID == originalPlanID {
			return clonePlan(p), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// sorted 按 (created_at desc, id asc) 排序后过滤
func (r *fakePlanRepo) sorted(keep func(*model.TravelPlan) bool) []*model.TravelPlan {
	out := make([]*model.TravelPlan, 0)
	for _, p := range r.plans {
		if keep(p) {
			out = append(out, clonePlan(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *fakePlanRepo) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*model.TravelPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := r.sorted(func(p *model.TravelPlan) bool { return p.OwnerID == ownerID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakePlanRepo) ListInvited(ctx context.Context, email string) ([]*model.TravelPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.sorted(func(p *model.TravelPlan) bool {
		if p.Visibility != model.VisibilityInvited {
			return false
		}
		for _, e := range p.InvitedEmails {
			if e == email {
				return true
			}
		}
		return false
	}), nil
}

func (r *fakePlanRepo) ListPublic(ctx context.Context, cursor *model.FeedCursor, limit int) ([]*model.TravelPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.lastPublicLimit = limit
	out := r.sorted(func(p *model.TravelPlan) bool {
		return p.Visibility == model.VisibilityPublic && (cursor == nil || cursor.After(p))
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakePlanRepo) Update(ctx context.Context, plan *model.TravelPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	cur, ok := r.plans[plan.ID]
	if !ok || cur.OwnerID != plan.OwnerID {
		return gorm.ErrRecordNotFound
	}
	next := clonePlan(plan)
	next.OriginalPlanID = cur.OriginalPlanID
	next.SavedAt = cur.SavedAt
	next.SaveCount = cur.SaveCount
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = r.clock().UTC()
	r.plans[plan.ID] = next
	return nil
}

func (r *fakePlanRepo) Delete(ctx context.Context, ownerID, planID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	p, ok := r.plans[planID]
	if !ok || p.OwnerID != ownerID {
		return gorm.ErrRecordNotFound
	}
	delete(r.plans, planID)
	return nil
}

func (r *fakePlanRepo) IncrementSaveCount(ctx context.Context, planID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.plans[planID]; ok {
		p.SaveCount++
	}
	return nil
}

func (r *fakePlanRepo) countOwned(ownerID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.plans {
		if p.OwnerID == ownerID {
			n++
		}
	}
	return n
}

// put 直接写入种子数据，保留调用方给定的 created_at
func (r *fakePlanRepo) put(p *model.TravelPlan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[p.ID] = clonePlan(p)
}

type fakePublisher struct {
	mu        sync.Mutex
	copySaved []model.PlanCopySavedMessage
	invited   []model.PlanInvitedMessage
	err       error
}

func (f *fakePublisher) PublishCopySaved(ctx context.Context, msg model.PlanCopySavedMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copySaved = append(f.copySaved, msg)
	return f.err
}

func (f *fakePublisher) PublishInvited(ctx context.Context, msg model.PlanInvitedMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invited = append(f.invited, msg)
	return f.err
}

// fakeFeedCache 按缓存代保存首页，Invalidate 递增代号
type fakeFeedCache struct {
	mu          sync.Mutex
	gen         int64
	pages       map[int]dto.FeedPage
	invalidated int
	staleWrites int
}

func newFakeFeedCache() *fakeFeedCache {
	return &fakeFeedCache{pages: map[int]dto.FeedPage{}}
}

func (f *fakeFeedCache) Get(ctx context.Context, limit int) (dto.FeedPage, int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[limit]
	return p, f.gen, ok
}

func (f *fakeFeedCache) Set(ctx context.Context, gen int64, limit int, page dto.FeedPage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		f.staleWrites++
		return
	}
	f.pages[limit] = page
}

func (f *fakeFeedCache) Invalidate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.pages = map[int]dto.FeedPage{}
	f.invalidated++
	return nil
}

// sequentialIDs 生成等长递增 ID，字符串顺序与数值顺序一致
func sequentialIDs() func() (string, error) {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%019d", n), nil
	}
}

// tickingClock 每次调用前进 1 秒
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}
