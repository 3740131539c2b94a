package service

import (
	"Haven/internal/api/config"
	"Haven/internal/api/dto"
	"Haven/internal/model"
	"Haven/internal/pkg/consts"
	"Haven/internal/pkg/redis"
	"Haven/internal/pkg/security"
	"Haven/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"strings"

	"github.com/jinzhu/copier"
)

type UserService interface {
	Register(ctx context.Context, dto *dto.RegisterDTO) (*dto.UserDTO, error)
	Login(ctx context.Context, dto *dto.CredentialDTO) (*dto.TokenDTO, error)
	Logout(ctx context.Context, token string) error
	GetUserInfo(ctx context.Context, email string) (*dto.UserDTO, error)
	EnsureAdmin(ctx context.Context, cfg config.AdminConfig) error
}

type UserServiceImpl struct {
	userRepo repository.UserRepo
}

func NewUserService(userRepo repository.UserRepo) UserService {
	return &UserServiceImpl{
		userRepo: userRepo,
	}
}

func (s *UserServiceImpl) Register(ctx context.Context, regDTO *dto.RegisterDTO) (*dto.UserDTO, error) {
	email := normalizeEmail(regDTO.Email)
	findUser, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if findUser != nil {
		return nil, ErrUserExist
	}

	displayName := strings.TrimSpace(regDTO.DisplayName)
	if displayName == "" {
		return nil, ErrParamInvalid
	}

	passwordHash, err := security.HashPassword(regDTO.Password)
	if err != nil {
		return nil, err
	}

	// 注册入口只能产生普通用户
	user := &model.User{
		Email:       email,
		DisplayName: displayName,
		Password:    passwordHash,
		Role:        model.RoleUser,
	}
	if err = s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return toUserDTO(user)
}

func (s *UserServiceImpl) Login(ctx context.Context, credential *dto.CredentialDTO) (*dto.TokenDTO, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, normalizeEmail(credential.Email))
	if err != nil {
		return nil, err
	}
	// 邮箱不存在与密码错误返回同一错误, 避免探测已注册邮箱
	if user == nil {
		return nil, ErrPasswordIncorrect
	}
	if err = security.CheckPasswordHash(credential.Password, user.Password); err != nil {
		if errors.Is(err, security.ErrInvalidCredentials) {
			return nil, ErrPasswordIncorrect
		}
		return nil, err
	}

	token, err := security.GenerateToken(user.Email, user.DisplayName, user.Role)
	if err != nil {
		return nil, err
	}
	userDTO, err := toUserDTO(user)
	if err != nil {
		return nil, err
	}
	return &dto.TokenDTO{Token: token, User: userDTO}, nil
}

// Logout 将 token 签名写入黑名单, 过期时间与 token 剩余有效期一致
func (s *UserServiceImpl) Logout(ctx context.Context, token string) error {
	claims, err := security.ValidateToken(token)
	if err != nil {
		return ErrUnauthorized
	}
	if !redis.Enabled() {
		log.WarnContext(ctx, "redis disabled, logout is client-side only", "user_id", claims.UserID)
		return nil
	}
	signature, err := security.ExtractSignature(token)
	if err != nil {
		return err
	}
	ttl := security.RemainingTTL(claims)
	if ttl <= 0 {
		return nil
	}
	return redis.SetWithExpiration(ctx, consts.TokenBlacklistKey+signature, true, ttl)
}

func (s *UserServiceImpl) GetUserInfo(ctx context.Context, email string) (*dto.UserDTO, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return toUserDTO(user)
}

// EnsureAdmin 启动时按配置补建管理员账号, 已存在则提升为管理员
func (s *UserServiceImpl) EnsureAdmin(ctx context.Context, cfg config.AdminConfig) error {
	email := normalizeEmail(cfg.Email)
	if email == "" || cfg.Password == "" {
		return nil
	}
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user != nil {
		if user.Role.IsAdmin() {
			return nil
		}
		user.Role = model.RoleAdmin
		log.InfoContext(ctx, "promoting configured account to admin", "email", email)
		return s.userRepo.SaveUser(ctx, user)
	}

	passwordHash, err := security.HashPassword(cfg.Password)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "Moderator"
	}
	log.InfoContext(ctx, "bootstrapping admin account", "email", email)
	return s.userRepo.CreateUser(ctx, &model.User{
		Email:       email,
		DisplayName: name,
		Password:    passwordHash,
		Role:        model.RoleAdmin,
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUserDTO(user *model.User) (*dto.UserDTO, error) {
	out := &dto.UserDTO{}
	if err := copier.Copy(out, user); err != nil {
		return nil, err
	}
	out.Role = string(user.Role)
	if !user.CreatedAt.IsZero() {
		createdAt := user.CreatedAt
		out.CreatedAt = &createdAt
	}
	return out, nil
}
