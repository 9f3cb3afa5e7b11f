package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"checkout/internal/models"
	"checkout/internal/repositories"
	"checkout/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test_jwt_secret"

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, zap.NewNop())

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	user := &models.User{
		ID:       "user-123",
		Phone:    "09121234567",
		Password: string(hashedPassword),
	}

	// Test successful login
	mockRepo.On("GetByPhone", mock.Anything, user.Phone).Return(user, nil).Once()
	token, err := authService.Login(ctx, user.Phone, "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, user.ID, claims["user_id"])
	assert.Equal(t, user.Phone, claims["phone"])

	// Test invalid credentials (wrong password)
	mockRepo.On("GetByPhone", mock.Anything, user.Phone).Return(user, nil).Once()
	_, err = authService.Login(ctx, user.Phone, "wrongpassword")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	// Test invalid credentials (user not found)
	mockRepo.On("GetByPhone", mock.Anything, "09120000000").
		Return(nil, fmt.Errorf("user with phone 09120000000: %w", repositories.ErrNotFound)).Once()
	_, err = authService.Login(ctx, "09120000000", "password123")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ValidateToken(t *testing.T) {
	authService := services.NewAuthService(new(MockUserRepository), testJWTSecret, zap.NewNop())

	validTokenString, err := authService.IssueToken(&models.User{ID: "user-123", Phone: "09121234567"})
	require.NoError(t, err)

	// Test valid token
	claims, err := authService.ValidateToken(validTokenString)
	assert.NoError(t, err)
	assert.Equal(t, "user-123", claims["user_id"])
	assert.Equal(t, "09121234567", claims["phone"])

	// Test malformed token
	_, err = authService.ValidateToken("invalid.token.string")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")

	// Test token signed with another secret
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-123",
		"exp":     jwt.TimeFunc().Add(time.Hour).Unix(),
	})
	foreignString, _ := foreign.SignedString([]byte("another_secret"))
	_, err = authService.ValidateToken(foreignString)
	assert.Error(t, err)

	// Test expired token
	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "user-123",
		"exp":     jwt.TimeFunc().Add(-time.Hour).Unix(), // Expired 1 hour ago
	})
	expiredTokenString, _ := expiredToken.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(expiredTokenString)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")
}
