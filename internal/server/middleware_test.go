package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"foodgram/internal/config"
	"foodgram/internal/middleware"
	"foodgram/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDUncached(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateAvatar(ctx context.Context, id uint, avatar string) error {
	args := m.Called(ctx, id, avatar)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.User), args.Get(1).(int64), args.Error(2)
}

func signTestToken(sub interface{}, issuer, audience string, exp time.Duration) string {
	claims := jwt.MapClaims{
		"sub": sub,
		"iss": issuer,
		"aud": audience,
		"exp": time.Now().Add(exp).Unix(),
		"jti": "test-jti-valid-length",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	str, _ := token.SignedString([]byte(testSecret))
	return str
}

func TestServer_AuthRequired(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("GetByID", mock.Anything, uint(123)).Return(&models.User{ID: 123}, nil)
	mockRepo.On("GetByID", mock.Anything, uint(404)).Return(nil, models.NewNotFoundError("User", 404))
	mockRepo.On("GetByID", mock.Anything, uint(500)).Return(nil, models.NewInternalError(errors.New("connection reset")))

	s := &Server{
		config:   &config.Config{JWTSecret: testSecret},
		userRepo: mockRepo,
	}
	handlerCalls := 0
	app := fiber.New()
	app.Get("/protected", s.AuthRequired(), func(c *fiber.Ctx) error {
		handlerCalls++
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"userID": c.Locals("userID")})
	})

	valid := signTestToken("123", middleware.TokenIssuer, middleware.TokenAudience, time.Hour)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{"Token scheme", "Token " + valid, http.StatusOK},
		{"Bearer scheme", "Bearer " + valid, http.StatusOK},
		{"Expired", "Token " + signTestToken("123", middleware.TokenIssuer, middleware.TokenAudience, -time.Hour), http.StatusUnauthorized},
		{"Invalid issuer", "Token " + signTestToken("123", "wrong-issuer", middleware.TokenAudience, time.Hour), http.StatusUnauthorized},
		{"Invalid audience", "Token " + signTestToken("123", middleware.TokenIssuer, "wrong-audience", time.Hour), http.StatusUnauthorized},
		{"Numeric subject", "Token " + signTestToken(123, middleware.TokenIssuer, middleware.TokenAudience, time.Hour), http.StatusUnauthorized},
		{"Deleted user", "Token " + signTestToken(strconv.Itoa(404), middleware.TokenIssuer, middleware.TokenAudience, time.Hour), http.StatusUnauthorized},
		{"User lookup fails", "Token " + signTestToken(strconv.Itoa(500), middleware.TokenIssuer, middleware.TokenAudience, time.Hour), http.StatusInternalServerError},
		{"Missing header", "", http.StatusUnauthorized},
		{"Malformed header", "TokenOnly", http.StatusUnauthorized},
		{"Unknown scheme", "Basic " + valid, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalls = 0
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus != http.StatusOK {
				assert.Zero(t, handlerCalls, "handler must not run after a rejected token")
			}
			if tt.expectedStatus == http.StatusOK {
				var body map[string]interface{}
				_ = json.NewDecoder(resp.Body).Decode(&body)
				assert.Equal(t, float64(123), body["userID"])
			}
		})
	}
}

func TestServer_OptionalAuth(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("GetByID", mock.Anything, uint(7)).Return(&models.User{ID: 7}, nil)
	mockRepo.On("GetByID", mock.Anything, uint(8)).Return(nil, models.NewNotFoundError("User", 8))

	s := &Server{
		config:   &config.Config{JWTSecret: testSecret},
		userRepo: mockRepo,
	}
	app := fiber.New()
	app.Get("/open", s.OptionalAuth(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": userIDFromLocals(c)})
	})

	t.Run("anonymous passes through", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/open", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]float64
		decodeJSON(t, resp, &body)
		assert.Equal(t, float64(0), body["userID"])
	})

	t.Run("valid token identifies viewer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/open", nil)
		req.Header.Set("Authorization", "Token "+signTestToken("7", middleware.TokenIssuer, middleware.TokenAudience, time.Hour))
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		var body map[string]float64
		decodeJSON(t, resp, &body)
		assert.Equal(t, float64(7), body["userID"])
	})

	t.Run("token of a deleted user is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/open", nil)
		req.Header.Set("Authorization", "Token "+signTestToken("8", middleware.TokenIssuer, middleware.TokenAudience, time.Hour))
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "User not found", errorMessage(t, resp))
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/open", nil)
		req.Header.Set("Authorization", "Token not-a-jwt")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Invalid token.", errorMessage(t, resp))
	})
}

func TestServer_AuthRequired_RevokedToken(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	mockRepo := new(MockUserRepository)
	mockRepo.On("GetByID", mock.Anything, uint(9)).Return(&models.User{ID: 9}, nil)

	s := &Server{
		config:   &config.Config{JWTSecret: testSecret},
		redis:    rdb,
		userRepo: mockRepo,
	}
	app := fiber.New()
	app.Get("/protected", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	raw, claims, err := middleware.IssueToken(testSecret, 9, time.Hour)
	require.NoError(t, err)
	require.NoError(t, middleware.RevokeToken(context.Background(), rdb, claims))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token "+raw)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Token has been revoked", errorMessage(t, resp))
	mockRepo.AssertNotCalled(t, "GetByID", mock.Anything, uint(9))
}
