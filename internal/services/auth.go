package services

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"taskmanager/backend/internal/config"
	"taskmanager/backend/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRefresh     = errors.New("invalid or expired refresh token")
)

type AuthService interface {
	LoginUser(ctx context.Context, email, password string) (*models.User, error)
	GenerateToken(ctx context.Context, userID uuid.UUID) (string, string, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, string, int64, error)
	RevokeToken(ctx context.Context, refreshToken string) error
}

type AuthServiceImpl struct {
	db  *gorm.DB
	cfg config.AuthConfig
}

func NewAuthService(db *gorm.DB, cfg config.AuthConfig) *AuthServiceImpl {
	return &AuthServiceImpl{db: db, cfg: cfg}
}

func VerifyPassword(hashedPassword, plainPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword))
	return err == nil
}

func (s *AuthServiceImpl) LoginUser(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !VerifyPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *AuthServiceImpl) GenerateToken(ctx context.Context, userID uuid.UUID) (string, string, error) {
	accessTokenClaims := jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     time.Now().Add(s.cfg.AccessTokenTTL).Unix(),
	}
	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessTokenClaims)
	accessTokenString, err := accessToken.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", "", err
	}

	refreshTokenUUID, err := uuid.NewV4()
	if err != nil {
		return "", "", err
	}

	token := models.Token{
		ID:           uuid.Must(uuid.NewV4()),
		UserID:       userID,
		RefreshToken: refreshTokenUUID,
		ExpiresAt:    time.Now().Add(s.cfg.RefreshTokenTTL),
	}
	if err := s.db.WithContext(ctx).Create(&token).Error; err != nil {
		return "", "", err
	}

	return accessTokenString, refreshTokenUUID.String(), nil
}

func (s *AuthServiceImpl) RefreshToken(ctx context.Context, refreshToken string) (string, string, int64, error) {
	var token models.Token
	err := s.db.WithContext(ctx).
		Where("refresh_token = ? AND expires_at > ?", refreshToken, time.Now()).
		First(&token).Error
	if err != nil {
		return "", "", 0, ErrInvalidRefresh
	}

	accessToken, newRefreshToken, err := s.GenerateToken(ctx, token.UserID)
	if err != nil {
		return "", "", 0, err
	}

	// Rotation: the presented refresh token is single use.
	s.db.WithContext(ctx).Delete(&token)

	return accessToken, newRefreshToken, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

func (s *AuthServiceImpl) RevokeToken(ctx context.Context, refreshToken string) error {
	return s.db.WithContext(ctx).
		Where("refresh_token = ?", refreshToken).
		Delete(&models.Token{}).Error
}
