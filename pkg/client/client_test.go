package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"TripPlanner/internal/model/dto"
	"TripPlanner/internal/session"
	"TripPlanner/pkg/errors"
)

type fakeAPI struct {
	hits     atomic.Int32
	lastAuth atomic.Value
	mux      *http.ServeMux
}

func newFakeAPI() *fakeAPI {
	api := &fakeAPI{mux: http.NewServeMux()}

	api.mux.HandleFunc("POST /v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req dto.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret1" {
			writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", "")
			return
		}
		writeData(w, http.StatusOK, dto.TokenResponse{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			ExpiresIn:    900,
			User:         dto.UserProfile{ID: "42", Email: req.Email},
		}, nil)
	})
	api.mux.HandleFunc("POST /v1/auth/token/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Refresh token invalid or expired", "")
	})
	api.mux.HandleFunc("POST /v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", "")
	})
	api.mux.HandleFunc("GET /v1/plans", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, []dto.PlanItem{{ID: "p1", Destination: "Paris"}}, map[string]interface{}{"count": 1})
	})
	api.mux.HandleFunc("POST /v1/plans", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "must not be before start date", "end_date")
	})
	api.mux.HandleFunc("POST /v1/plans/wizard/validate", func(w http.ResponseWriter, r *http.Request) {
		var req dto.WizardValidateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Step != "basics" {
			writeError(w, http.StatusBadRequest, "WIZARD_STEP_INVALID", "Wizard step invalid", "step")
			return
		}
		writeData(w, http.StatusOK, dto.WizardValidateResponse{
			Step: "basics", Valid: false, Field: "start_date", Message: "must not be after end date",
		}, nil)
	})
	api.mux.HandleFunc("GET /v1/plans/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "PLAN_NOT_FOUND", "Plan not found", "")
	})
	api.mux.HandleFunc("DELETE /v1/plans/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	api.mux.HandleFunc("GET /v1/feed", func(w http.ResponseWriter, r *http.Request) {
		// 三页："" -> c1 -> c2 -> 结束
		pages := map[string]struct {
			ids  []string
			next interface{}
		}{
			"":   {[]string{"a", "b"}, "c1"},
			"c1": {[]string{"c", "d"}, "c2"},
			"c2": {[]string{"e"}, nil},
		}
		page, ok := pages[r.URL.Query().Get("cursor")]
		if !ok {
			writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "malformed cursor", "cursor")
			return
		}
		items := make([]dto.PlanItem, 0, len(page.ids))
		for _, id := range page.ids {
			items = append(items, dto.PlanItem{ID: id})
		}
		writeData(w, http.StatusOK, items, map[string]interface{}{"next_cursor": page.next})
	})
	api.mux.HandleFunc("POST /v1/feed/{id}/save", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, dto.SaveCopyResponse{PlanID: "copy-1", AlreadySaved: true}, nil)
	})
	api.mux.HandleFunc("GET /v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusServiceUnavailable, "BACKEND_UNAVAILABLE", "Backend unavailable", "")
	})
	return api
}

func (a *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.hits.Add(1)
	a.lastAuth.Store(r.Header.Get("Authorization"))
	a.mux.ServeHTTP(w, r)
}

func writeData(w http.ResponseWriter, status int, data interface{}, meta map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data, "meta": meta})
}

func writeError(w http.ResponseWriter, status int, code, message, field string) {
	detail := map[string]interface{}{"code": code, "message": message}
	if field != "" {
		detail["details"] = map[string]interface{}{"field": field}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": detail})
}

func newTestClient(t *testing.T) (*Client, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, WithGate(session.NewGate()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, api
}

func login(t *testing.T, c *Client) {
	t.Helper()
	if _, err := c.Login(context.Background(), "ada@example.com", "secret1"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
}

func TestSignedOutCallsSkipNetwork(t *testing.T) {
	c, api := newTestClient(t)
	ctx := context.Background()

	calls := map[string]func() error{
		"ListPlans": func() error { _, err := c.ListPlans(ctx); return err },
		"CreatePlan": func() error {
			_, err := c.CreatePlan(ctx, dto.PlanDraft{Destination: "Paris"})
			return err
		},
		"GetPlan":    func() error { _, err := c.GetPlan(ctx, "p1"); return err },
		"DeletePlan": func() error { return c.DeletePlan(ctx, "p1") },
		"ListFeed":   func() error { _, err := c.ListFeed(ctx, 10, ""); return err },
		"SaveCopy":   func() error { _, err := c.SavePlanCopy(ctx, "p1"); return err },
		"Profile":    func() error { _, err := c.Profile(ctx); return err },
		"PagerNext":  func() error { _, err := c.NewFeedPager(5).Next(ctx); return err },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			if err := call(); !stderrors.Is(err, errors.Unauthenticated) {
				t.Fatalf("error = %v, want Unauthenticated", err)
			}
		})
	}

	if got := api.hits.Load(); got != 0 {
		t.Fatalf("server hits = %d, want 0", got)
	}
}

func TestLoginUpdatesGate(t *testing.T) {
	c, api := newTestClient(t)

	changes, cancel := c.Session().Subscribe()
	defer cancel()

	login(t, c)

	select {
	case ch := <-changes:
		if !ch.SignedIn || ch.Identity.UserID != "42" || ch.Identity.Email != "ada@example.com" {
			t.Fatalf("change = %+v", ch)
		}
	case <-time.After(time.Second):
		t.Fatal("no session change after login")
	}

	items, err := c.ListPlans(context.Background())
	if err != nil {
		t.Fatalf("ListPlans() error = %v", err)
	}
	if len(items) != 1 || items[0].Destination != "Paris" {
		t.Fatalf("items = %+v", items)
	}
	if got := api.lastAuth.Load(); got != "Bearer access-1" {
		t.Fatalf("Authorization = %v", got)
	}
}

func TestLoginFailureKeepsSignedOut(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Login(context.Background(), "ada@example.com", "wrong")
	if !stderrors.Is(err, errors.InvalidCredentials) {
		t.Fatalf("error = %v, want InvalidCredentials", err)
	}
	if _, ok := c.Session().Current(); ok {
		t.Fatal("gate signed in after failed login")
	}
}

func TestErrorDecoding(t *testing.T) {
	c, _ := newTestClient(t)
	login(t, c)
	ctx := context.Background()

	_, err := c.CreatePlan(ctx, dto.PlanDraft{Destination: "Paris"})
	var def errors.Definition
	if !stderrors.As(err, &def) || def.Code != errors.ValidationFailed.Code || def.Field != "end_date" {
		t.Fatalf("CreatePlan error = %#v", err)
	}

	if _, err := c.GetPlan(ctx, "missing"); !stderrors.Is(err, errors.PlanNotFound) {
		t.Fatalf("GetPlan error = %v, want PlanNotFound", err)
	}

	if _, err := c.Profile(ctx); !stderrors.Is(err, errors.BackendUnavailable) {
		t.Fatalf("Profile error = %v, want BackendUnavailable", err)
	}

	if err := c.DeletePlan(ctx, "p1"); err != nil {
		t.Fatalf("DeletePlan() error = %v", err)
	}

	resp, err := c.SavePlanCopy(ctx, "p1")
	if err != nil || resp.PlanID != "copy-1" || !resp.AlreadySaved {
		t.Fatalf("SavePlanCopy() = %+v, %v", resp, err)
	}
}

func TestLogoutClearsGateOnServerError(t *testing.T) {
	c, _ := newTestClient(t)
	login(t, c)

	if err := c.Logout(context.Background()); err == nil {
		t.Fatal("Logout() error = nil, want server error")
	}
	if _, ok := c.Session().Current(); ok {
		t.Fatal("gate still signed in after logout")
	}

	// 已登出时再次登出不发请求
	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("second Logout() error = %v", err)
	}
}

func TestRefreshRejectedSignsOut(t *testing.T) {
	c, _ := newTestClient(t)
	login(t, c)

	if err := c.Refresh(context.Background()); !stderrors.Is(err, errors.InvalidRefreshToken) {
		t.Fatalf("Refresh() error = %v, want InvalidRefreshToken", err)
	}
	if _, ok := c.Session().Current(); ok {
		t.Fatal("gate still signed in after rejected refresh")
	}
}

func TestFeedPagers(t *testing.T) {
	c, _ := newTestClient(t)
	login(t, c)
	ctx := context.Background()

	drain := func(p *FeedPager) []string {
		var ids []string
		for p.HasMore() {
			items, err := p.Next(ctx)
			if err != nil {
				t.Fatalf("Next() error = %v", err)
			}
			for _, it := range items {
				ids = append(ids, it.ID)
			}
		}
		return ids
	}

	first := c.NewFeedPager(2)
	second := c.NewFeedPager(2)

	// first 先走一页，不影响 second
	if items, err := first.Next(ctx); err != nil || len(items) != 2 || items[0].ID != "a" {
		t.Fatalf("first.Next() = %+v, %v", items, err)
	}

	if got := drain(second); len(got) != 5 || got[0] != "a" || got[4] != "e" {
		t.Fatalf("second pager ids = %v", got)
	}
	if got := drain(first); len(got) != 3 || got[0] != "c" {
		t.Fatalf("first pager remaining ids = %v", got)
	}

	if items, err := first.Next(ctx); err != nil || len(items) != 0 {
		t.Fatalf("Next() after end = %+v, %v", items, err)
	}

	first.Reset()
	if !first.HasMore() {
		t.Fatal("HasMore() = false after Reset")
	}
	if got := drain(first); len(got) != 5 {
		t.Fatalf("ids after Reset = %v", got)
	}
}

func TestListFeedNullCursor(t *testing.T) {
	c, _ := newTestClient(t)
	login(t, c)

	page, err := c.ListFeed(context.Background(), 2, "c2")
	if err != nil {
		t.Fatalf("ListFeed() error = %v", err)
	}
	if page.NextCursor != "" || len(page.Items) != 1 {
		t.Fatalf("page = %+v", page)
	}

	if _, err := c.ListFeed(context.Background(), 2, "bogus"); err == nil {
		t.Fatal("ListFeed() with bogus cursor error = nil")
	}
}

func TestTransportFailureIsBackendError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, WithGate(session.NewGate()), WithDialTimeout(200*time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.Login(context.Background(), "ada@example.com", "secret1")
	if !stderrors.Is(err, errors.BackendUnavailable) {
		t.Fatalf("error = %v, want BackendUnavailable", err)
	}
}

func TestProcessGateShared(t *testing.T) {
	a, err := New("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	b, err := New("http://127.0.0.1:2")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if a.Session() != b.Session() || a.Session() != Gate() {
		t.Fatal("clients without WithGate must share the process gate")
	}
}

func TestValidateWizardStep(t *testing.T) {
	c, _ := newTestClient(t)
	login(t, c)
	ctx := context.Background()

	resp, err := c.ValidateWizardStep(ctx, "basics", dto.PlanDraft{StartDate: "2025-06-10", EndDate: "2025-06-01"})
	if err != nil {
		t.Fatalf("ValidateWizardStep() error = %v", err)
	}
	if resp.Valid || resp.Field != "start_date" {
		t.Fatalf("ValidateWizardStep() = %+v, want invalid start_date", resp)
	}

	if _, err := c.ValidateWizardStep(ctx, "payment", dto.PlanDraft{}); !stderrors.Is(err, errors.WizardStepInvalid) {
		t.Fatalf("unknown step error = %v, want WizardStepInvalid", err)
	}
}
