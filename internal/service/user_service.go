package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shopmaster/internal/model"
	"shopmaster/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// --- DTOs ---

type CreateUserRequest struct {
	Name     string     `json:"name" binding:"required"`
	Email    string     `json:"email" binding:"required,email"`
	Phone    string     `json:"phone"`
	Password string     `json:"password" binding:"required,min=6"`
	Role     model.Role `json:"role" binding:"required,oneof=OWNER MANAGER"`
	ShopID   string     `json:"shop_id"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Role      model.Role `json:"role"`
	ShopID    string     `json:"shop_id,omitempty"`
	CreatedAt string     `json:"created_at"`
}

// --- Interface ---

type UserService interface {
	CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	GetUser(ctx context.Context, id uuid.UUID) (*UserResponse, error)
	ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	// EnsureOwner creates the first owner account when the user table is empty.
	EnsureOwner(ctx context.Context, name, email, password string) error
}

type userService struct {
	repo   repository.UserRepository
	tokens *TokenIssuer
}

func NewUserService(repo repository.UserRepository, tokens *TokenIssuer) UserService {
	return &userService{repo: repo, tokens: tokens}
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		ShopID:    u.ShopID,
		CreatedAt: u.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *userService) CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*UserResponse, error) {
	if err := requireOwner(actor, "create users"); err != nil {
		return nil, err
	}
	if !req.Role.Valid() {
		return nil, invalid("role", "must be OWNER or MANAGER")
	}
	if req.ShopID != "" && !model.ValidShopID(req.ShopID) {
		return nil, invalid("shop_id", "unknown shop %q", req.ShopID)
	}
	user, err := s.newUser(req)
	if err != nil {
		return nil, err
	}

	email := user.Email
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email %s already registered", ErrConflict, email)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &StoreError{Op: "look up user", Err: err}
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, &StoreError{Op: "create user", Err: err}
	}
	res := toUserResponse(user)
	return &res, nil
}

func (s *userService) newUser(req CreateUserRequest) (*model.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &model.User{
		ID:       uuid.New(),
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:    req.Phone,
		Password: string(hashed),
		Role:     req.Role,
		ShopID:   req.ShopID,
	}, nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, &StoreError{Op: "look up user", Err: err}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Token: token, User: toUserResponse(user)}, nil
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("load user", "user", id, err)
	}
	res := toUserResponse(user)
	return &res, nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, &StoreError{Op: "list users", Err: err}
	}
	res := make([]UserResponse, 0, len(users))
	for i := range users {
		res = append(res, toUserResponse(&users[i]))
	}
	return res, total, nil
}

func (s *userService) EnsureOwner(ctx context.Context, name, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	n, err := s.repo.Count(ctx)
	if err != nil {
		return &StoreError{Op: "count users", Err: err}
	}
	if n > 0 {
		return nil
	}
	if name == "" {
		name = "Owner"
	}
	user, err := s.newUser(CreateUserRequest{Name: name, Email: email, Password: password, Role: model.RoleOwner})
	if err != nil {
		return err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return &StoreError{Op: "create owner", Err: err}
	}
	return nil
}
