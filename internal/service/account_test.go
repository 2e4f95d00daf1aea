package service

import (
	"context"
	stderrors "errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"TripPlanner/internal/model"
	"TripPlanner/internal/model/dto"
	"TripPlanner/pkg/errors"
	"TripPlanner/pkg/token"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
	err   error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, u := range r.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	user.CreatedAt = testNow
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, userID string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]string
	err    error
}

func (s *fakeTokenStore) Save(ctx context.Context, userID, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.tokens[userID] = refreshToken
	return nil
}

func (s *fakeTokenStore) Matches(ctx context.Context, userID, refreshToken string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	return s.tokens[userID] == refreshToken, nil
}

func (s *fakeTokenStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.tokens, userID)
	return nil
}

// stubTokens 签发形如 "refresh:<uid>:<n>" 的令牌，便于校验轮换
func stubTokens() (func(string, string) (token.Pair, error), func(string) (string, error)) {
	var mu sync.Mutex
	n := 0
	issue := func(userID, email string) (token.Pair, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return token.Pair{
			AccessToken:  "access:" + userID,
			RefreshToken: "refresh:" + userID + ":" + strconv.Itoa(n),
			ExpiresIn:    900,
		}, nil
	}
	verify := func(refreshToken string) (string, error) {
		parts := strings.Split(refreshToken, ":")
		if len(parts) != 3 || parts[0] != "refresh" {
			return "", stderrors.New("not a refresh token")
		}
		return parts[1], nil
	}
	return issue, verify
}

func newTestAccountService() (*AccountService, *fakeUserRepo, *fakePlanRepo, *fakeTokenStore) {
	users := newFakeUserRepo()
	plans := newFakePlanRepo(tickingClock(testNow))
	tokens := &fakeTokenStore{tokens: map[string]string{}}
	svc := NewAccountService(users, plans, tokens)
	svc.issue, svc.verifyRefresh = stubTokens()
	svc.newID = sequentialIDs()
	svc.now = func() time.Time { return testNow }
	return svc, users, plans, tokens
}

func TestSignupAndLogin(t *testing.T) {
	svc, users, _, tokens := newTestAccountService()
	ctx := context.Background()

	resp, err := svc.Signup(ctx, dto.SignupRequest{
		Email:     "  Ada@Example.com ",
		Password:  "s3cret!",
		FirstName: "Ada",
	})
	if err != nil {
		t.Fatalf("Signup() = %v", err)
	}
	if resp.User.Email != "ada@example.com" || resp.AccessToken == "" {
		t.Fatalf("Signup() = %+v", resp)
	}
	if tokens.tokens[resp.User.ID] != resp.RefreshToken {
		t.Fatal("refresh token not stored")
	}

	stored, _ := users.GetByEmail(ctx, "ada@example.com")
	if stored.PasswordHash == "" || stored.PasswordHash == "s3cret!" {
		t.Fatal("password must be stored hashed")
	}

	login, err := svc.Login(ctx, dto.LoginRequest{Email: "ADA@example.com", Password: "s3cret!"})
	if err != nil {
		t.Fatalf("Login() = %v", err)
	}
	if login.User.ID != resp.User.ID {
		t.Fatalf("Login() user = %s, want %s", login.User.ID, resp.User.ID)
	}
}

func TestSignupValidation(t *testing.T) {
	svc, _, _, _ := newTestAccountService()
	ctx := context.Background()

	tests := []struct {
		name  string
		req   dto.SignupRequest
		field string
	}{
		{"missing email", dto.SignupRequest{Password: "longenough"}, "email"},
		{"bad email", dto.SignupRequest{Email: "not-an-email", Password: "longenough"}, "email"},
		{"short password", dto.SignupRequest{Email: "a@example.com", Password: "123"}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tt.req)
			var def errors.Definition
			if !stderrors.As(err, &def) || def.Field != tt.field {
				t.Fatalf("Signup() = %v, want validation error on %s", err, tt.field)
			}
		})
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestAccountService()
	ctx := context.Background()

	req := dto.SignupRequest{Email: "dup@example.com", Password: "password"}
	if _, err := svc.Signup(ctx, req); err != nil {
		t.Fatal(err)
	}
	req.Email = "DUP@example.com"
	if _, err := svc.Signup(ctx, req); !stderrors.Is(err, errors.EmailAlreadyRegistered) {
		t.Fatalf("Signup() = %v, want EmailAlreadyRegistered", err)
	}
}

func TestLoginFailures(t *testing.T) {
	svc, _, _, _ := newTestAccountService()
	ctx := context.Background()

	if _, err := svc.Signup(ctx, dto.SignupRequest{Email: "bob@example.com", Password: "correct-horse"}); err != nil {
		t.Fatal(err)
	}

	tests := []dto.LoginRequest{
		{Email: "bob@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "correct-horse"},
		{Email: "", Password: ""},
	}
	for _, req := range tests {
		if _, err := svc.Login(ctx, req); !stderrors.Is(err, errors.InvalidCredentials) {
			t.Fatalf("Login(%q) = %v, want InvalidCredentials", req.Email, err)
		}
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, _, _ := newTestAccountService()
	ctx := context.Background()

	first, err := svc.Signup(ctx, dto.SignupRequest{Email: "eve@example.com", Password: "password"})
	if err != nil {
		t.Fatal(err)
	}

	second, err := svc.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() = %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("refresh should rotate the token")
	}

	if _, err := svc.Refresh(ctx, first.RefreshToken); !stderrors.Is(err, errors.InvalidRefreshToken) {
		t.Fatalf("reused token: err = %v, want InvalidRefreshToken", err)
	}
	if _, err := svc.Refresh(ctx, "garbage"); !stderrors.Is(err, errors.InvalidRefreshToken) {
		t.Fatalf("garbage token: err = %v, want InvalidRefreshToken", err)
	}
}

func TestLogoutRevokesRefresh(t *testing.T) {
	svc, _, _, tokens := newTestAccountService()
	ctx := context.Background()

	resp, _ := svc.Signup(ctx, dto.SignupRequest{Email: "max@example.com", Password: "password"})
	if err := svc.Logout(ctx, resp.User.ID); err != nil {
		t.Fatalf("Logout() = %v", err)
	}
	if _, ok := tokens.tokens[resp.User.ID]; ok {
		t.Fatal("refresh token should be deleted")
	}
	if _, err := svc.Refresh(ctx, resp.RefreshToken); !stderrors.Is(err, errors.InvalidRefreshToken) {
		t.Fatalf("Refresh() after logout = %v", err)
	}
}

func TestTokenStoreUnavailable(t *testing.T) {
	svc, _, _, tokens := newTestAccountService()
	tokens.err = stderrors.New("redis down")

	_, err := svc.Signup(context.Background(), dto.SignupRequest{Email: "x@example.com", Password: "password"})
	if !stderrors.Is(err, errors.BackendUnavailable) {
		t.Fatalf("Signup() = %v, want BackendUnavailable", err)
	}
}

func TestProfile(t *testing.T) {
	svc, _, plans, _ := newTestAccountService()
	ctx := context.Background()

	resp, _ := svc.Signup(ctx, dto.SignupRequest{Email: "pat@example.com", Password: "password", LastName: "Lee"})
	uid := resp.User.ID

	for i, end := range []time.Time{testNow.AddDate(0, 0, -2), testNow.AddDate(0, 1, 0)} {
		plans.put(&model.TravelPlan{
			ID:                  string(rune('a' + i)),
			OwnerID:             uid,
			StartDate:           datatypes.Date(end.AddDate(0, 0, -1)),
			EndDate:             datatypes.Date(end),
			ExpectedExpenditure: 250,
			CreatedAt:           testNow,
		})
	}

	profile, err := svc.Profile(ctx, uid)
	if err != nil {
		t.Fatalf("Profile() = %v", err)
	}
	if profile.User.LastName != "Lee" || profile.User.Email != "pat@example.com" {
		t.Fatalf("Profile().User = %+v", profile.User)
	}
	want := model.PlanAggregate{Count: 2, TotalExpenditure: 500, CompletedCount: 1}
	if profile.Stats != want {
		t.Fatalf("Profile().Stats = %+v, want %+v", profile.Stats, want)
	}

	if _, err := svc.Profile(ctx, "ghost"); !stderrors.Is(err, errors.Unauthenticated) {
		t.Fatalf("Profile(ghost) = %v, want Unauthenticated", err)
	}
}
