package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"TripPlanner/config"
	"TripPlanner/internal/cache"
	"TripPlanner/internal/model"
	"TripPlanner/internal/model/dto"
	"TripPlanner/internal/repository"
	"TripPlanner/pkg/errors"
	"TripPlanner/pkg/logger"
	"TripPlanner/pkg/snowflake"
	"TripPlanner/pkg/token"
	"TripPlanner/storage/database"
	"TripPlanner/storage/redis"
	"TripPlanner/utils"
)

var (
	accountService *AccountService
	accountOnce    sync.Once
)

func Account() *AccountService {
	accountOnce.Do(func() {
		db := database.DB()
		accountService = NewAccountService(
			repository.NewUserRepository(db),
			repository.NewPlanRepository(db),
			cache.NewRefreshTokens(redis.Client(), time.Duration(config.Cfg.JWTRefreshDays)*24*time.Hour),
		)
		if config.Cfg.MinPasswordLen > 0 {
			accountService.minPasswordLen = config.Cfg.MinPasswordLen
		}
	})
	return accountService
}

// TokenStore 保存每个用户当前有效的 refresh token
type TokenStore interface {
	Save(ctx context.Context, userID, refreshToken string) error
	Matches(ctx context.Context, userID, refreshToken string) (bool, error)
	Delete(ctx context.Context, userID string) error
}

// AccountService 注册、登录、刷新与个人资料
type AccountService struct {
	users          repository.UserRepository
	plans          repository.PlanRepository
	tokens         TokenStore
	issue          func(userID, email string) (token.Pair, error)
	verifyRefresh  func(refreshToken string) (string, error)
	newID          func() (string, error)
	now            func() time.Time
	minPasswordLen int
}

func NewAccountService(users repository.UserRepository, plans repository.PlanRepository, tokens TokenStore) *AccountService {
	return &AccountService{
		users:          users,
		plans:          plans,
		tokens:         tokens,
		issue:          token.GenerateTokenPair,
		verifyRefresh:  token.ValidateRefreshToken,
		newID:          snowflake.NextStringID,
		now:            time.Now,
		minPasswordLen: 6,
	}
}

// Signup 注册并直接登录
func (s *AccountService) Signup(ctx context.Context, req dto.SignupRequest) (dto.TokenResponse, error) {
	email := utils.NormalizeEmail(req.Email)
	if email == "" {
		return dto.TokenResponse{}, errors.Invalid("email", "email is required")
	}
	if !utils.ValidateEmail(email) {
		return dto.TokenResponse{}, errors.Invalid("email", "email is not a valid address")
	}
	if len(req.Password) < s.minPasswordLen {
		return dto.TokenResponse{}, errors.Invalid("password", fmt.Sprintf("password must be at least %d characters", s.minPasswordLen))
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return dto.TokenResponse{}, errors.EmailAlreadyRegistered
	} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return dto.TokenResponse{}, errors.Backend(fmt.Errorf("failed to query user: %w", err))
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return dto.TokenResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := s.newID()
	if err != nil {
		return dto.TokenResponse{}, fmt.Errorf("failed to generate user id: %w", err)
	}

	user := &model.User{
		BaseModel:    model.BaseModel{ID: id},
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		ContactInfo:  strings.TrimSpace(req.ContactInfo),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.TokenResponse{}, errors.EmailAlreadyRegistered
		}
		return dto.TokenResponse{}, errors.Backend(fmt.Errorf("failed to create user: %w", err))
	}

	logger.Logger.Info("User signed up", zap.String("user_id", user.ID))

	return s.login(ctx, user)
}

// Login 邮箱密码登录，邮箱不存在与密码错误返回同一错误
func (s *AccountService) Login(ctx context.Context, req dto.LoginRequest) (dto.TokenResponse, error) {
	email := utils.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return dto.TokenResponse{}, errors.InvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TokenResponse{}, errors.InvalidCredentials
		}
		return dto.TokenResponse{}, errors.Backend(fmt.Errorf("failed to query user: %w", err))
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return dto.TokenResponse{}, errors.InvalidCredentials
	}

	return s.login(ctx, user)
}

// Refresh 用 refresh token 换新的令牌对，旧 refresh token 随之失效
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (dto.TokenResponse, error) {
	userID, err := s.verifyRefresh(refreshToken)
	if err != nil {
		return dto.TokenResponse{}, errors.InvalidRefreshToken
	}

	ok, err := s.tokens.Matches(ctx, userID, refreshToken)
	if err != nil {
		return dto.TokenResponse{}, errors.Backend(fmt.Errorf("failed to check refresh token: %w", err))
	}
	if !ok {
		return dto.TokenResponse{}, errors.InvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TokenResponse{}, errors.InvalidRefreshToken
		}
		return dto.TokenResponse{}, errors.Backend(fmt.Errorf("failed to query user: %w", err))
	}

	return s.login(ctx, user)
}

// Logout 删除 refresh token，已签发的 access token 到期前仍有效
func (s *AccountService) Logout(ctx context.Context, userID string) error {
	if err := s.tokens.Delete(ctx, userID); err != nil {
		return errors.Backend(fmt.Errorf("failed to delete refresh token: %w", err))
	}
	logger.Logger.Info("User logged out", zap.String("user_id", userID))
	return nil
}

// Profile 个人资料与行程统计
func (s *AccountService) Profile(ctx context.Context, userID string) (dto.ProfileResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProfileResponse{}, errors.Unauthenticated
		}
		return dto.ProfileResponse{}, errors.Backend(fmt.Errorf("failed to query user: %w", err))
	}

	plans, err := s.plans.ListByOwner(ctx, userID, 0)
	if err != nil {
		return dto.ProfileResponse{}, errors.Backend(fmt.Errorf("failed to aggregate plans: %w", err))
	}

	return dto.ProfileResponse{
		User:  dto.NewUserProfile(user),
		Stats: model.Aggregate(plans, s.now()),
	}, nil
}

func (s *AccountService) login(ctx context.Context, user *model.User) (dto.TokenResponse, error) {
	pair, err := s.issue(user.ID, user.Email)
	if err != nil {
		return dto.TokenResponse{}, fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.tokens.Save(ctx, user.ID, pair.RefreshToken); err != nil {
		return dto.TokenResponse{}, errors.Backend(fmt.Errorf("failed to store refresh token: %w", err))
	}

	return dto.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		User:         dto.NewUserProfile(user),
	}, nil
}
