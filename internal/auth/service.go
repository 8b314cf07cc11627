package auth

import (
	"context"
	"errors"
	"time"

	"github.com/devfolio/backend/internal/db"
	apperrors "github.com/devfolio/backend/internal/errors"
)

// UserStore is the slice of the credential store the auth service needs.
// *db.UserRepository satisfies it; tests substitute fakes.
type UserStore interface {
	Create(ctx context.Context, user *db.User) error
	GetByEmail(ctx context.Context, email string) (*db.User, error)
	GetByID(ctx context.Context, id int64) (*db.User, error)
	Update(ctx context.Context, id int64, update db.UserUpdate) (*db.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	TouchLogin(ctx context.Context, id int64) error
}

// UserInfo is the externally visible user shape. The password hash never
// leaves the service.
type UserInfo struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type AuthResponse struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresIn    int       `json:"expiresIn"`
	User         *UserInfo `json:"user"`
}

type Service struct {
	users  UserStore
	hasher Hasher
	tokens *TokenService
}

func NewService(users UserStore, hasher Hasher, tokens *TokenService) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

// Register creates a user with the default role. Tokens are not issued here;
// the client logs in afterwards.
func (s *Service) Register(ctx context.Context, email, password, firstName, lastName string) (*UserInfo, error) {
	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.InternalError("failed to process credentials").WithCause(err)
	}

	user := &db.User{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         db.RoleUser,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, db.ErrEmailExists) {
			return nil, apperrors.EmailExists()
		}
		return nil, apperrors.DatabaseError("failed to create user").WithCause(err)
	}

	return userInfo(user), nil
}

// Login verifies credentials and issues both tokens. An unknown email and a
// wrong password surface identically.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return nil, apperrors.InvalidCredentials()
		}
		return nil, apperrors.DatabaseError("failed to look up user").WithCause(err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, apperrors.InvalidCredentials()
	}

	accessToken, err := s.tokens.IssueAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, apperrors.InternalError("failed to issue token").WithCause(err)
	}

	refreshToken, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, apperrors.InternalError("failed to issue token").WithCause(err)
	}

	if err := s.users.TouchLogin(ctx, user.ID); err != nil {
		return nil, apperrors.DatabaseError("failed to record login").WithCause(err)
	}

	return &AuthResponse{
		Token:        accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(AccessTokenExpiry.Seconds()),
		User:         userInfo(user),
	}, nil
}

// Refresh exchanges a valid refresh token for a fresh access token. Issued
// refresh tokens are not stored server-side, so there is no revocation: a
// refresh token stays exchangeable until its expiry.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.InvalidToken()
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return nil, apperrors.InvalidToken()
		}
		return nil, apperrors.DatabaseError("failed to look up user").WithCause(err)
	}

	accessToken, err := s.tokens.IssueAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, apperrors.InternalError("failed to issue token").WithCause(err)
	}

	return &AuthResponse{
		Token:     accessToken,
		ExpiresIn: int(AccessTokenExpiry.Seconds()),
		User:      userInfo(user),
	}, nil
}

func (s *Service) Profile(ctx context.Context, userID int64) (*UserInfo, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return nil, apperrors.UserNotFound()
		}
		return nil, apperrors.DatabaseError("failed to look up user").WithCause(err)
	}

	return userInfo(user), nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, update db.UserUpdate) (*UserInfo, error) {
	user, err := s.users.Update(ctx, userID, update)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrUserNotFound):
			return nil, apperrors.UserNotFound()
		case errors.Is(err, db.ErrNoFieldsToUpdate):
			return nil, apperrors.ValidationError("no valid fields to update")
		}
		return nil, apperrors.DatabaseError("failed to update user").WithCause(err)
	}

	return userInfo(user), nil
}

func (s *Service) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return apperrors.UserNotFound()
		}
		return apperrors.DatabaseError("failed to look up user").WithCause(err)
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return apperrors.BadRequest("current password is incorrect")
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.InternalError("failed to process credentials").WithCause(err)
	}

	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return apperrors.DatabaseError("failed to update password").WithCause(err)
	}

	return nil
}

func userInfo(user *db.User) *UserInfo {
	return &UserInfo{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Bio:       user.Bio.String,
		AvatarURL: user.AvatarURL.String,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
