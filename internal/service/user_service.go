package service

import (
	"context"
	"strings"

	"foodgram/internal/models"
	"foodgram/internal/repository"
	"foodgram/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const invalidCredentialsMessage = "Unable to log in with provided credentials."

type UserService struct {
	userRepo repository.UserRepository
	subRepo  repository.SubscriptionRepository
	media    *MediaService
}

type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,max=150,username"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Password  string `json:"password" validate:"required"`
}

type SetPasswordInput struct {
	UserID          uint   `json:"-"`
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

func NewUserService(userRepo repository.UserRepository, subRepo repository.SubscriptionRepository, media *MediaService) *UserService {
	return &UserService{userRepo: userRepo, subRepo: subRepo, media: media}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := validation.ValidateStruct(in); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError("A user with that email already exists")
	}
	existing, err = s.userRepo.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError("A user with that username already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Email:     in.Email,
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Password:  string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks email and password. Both failure modes return the
// same validation error.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, models.NewValidationError(invalidCredentialsMessage)
	}
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewValidationError(invalidCredentialsMessage)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewValidationError(invalidCredentialsMessage)
	}
	return user, nil
}

func (s *UserService) SetPassword(ctx context.Context, in SetPasswordInput) error {
	if err := validation.ValidateStruct(in); err != nil {
		return models.NewValidationError(err.Error())
	}
	user, err := s.userRepo.GetByIDUncached(ctx, in.UserID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.CurrentPassword)); err != nil {
		return models.NewValidationError("Current password is incorrect")
	}
	if err := validation.ValidatePassword(in.NewPassword); err != nil {
		return models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	return s.userRepo.UpdatePassword(ctx, user.ID, string(hash))
}

// GetUser loads a profile with is_subscribed computed for viewerID
// (0 means anonymous).
func (s *UserService) GetUser(ctx context.Context, viewerID, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewerID != 0 && viewerID != id {
		subscribed, err := s.subRepo.Exists(ctx, viewerID, id)
		if err != nil {
			return nil, err
		}
		user.IsSubscribed = subscribed
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, viewerID uint, limit, offset int) ([]models.User, int64, error) {
	users, total, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if err := s.markSubscribed(ctx, viewerID, users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// SetAvatar stores the image payload and returns the new avatar URL. The
// previous avatar file is removed once the row points at the new one.
func (s *UserService) SetAvatar(ctx context.Context, userID uint, payload string) (string, error) {
	if strings.TrimSpace(payload) == "" {
		return "", models.NewValidationError("avatar field is required")
	}
	user, err := s.userRepo.GetByIDUncached(ctx, userID)
	if err != nil {
		return "", err
	}

	url, err := s.media.Store(ctx, MediaKindAvatar, payload)
	if err != nil {
		return "", err
	}
	if err := s.userRepo.UpdateAvatar(ctx, userID, url); err != nil {
		s.media.Remove(ctx, url)
		return "", err
	}
	if user.Avatar != "" && user.Avatar != url {
		s.media.Remove(ctx, user.Avatar)
	}
	return url, nil
}

func (s *UserService) DeleteAvatar(ctx context.Context, userID uint) error {
	user, err := s.userRepo.GetByIDUncached(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdateAvatar(ctx, userID, ""); err != nil {
		return err
	}
	s.media.Remove(ctx, user.Avatar)
	return nil
}

func (s *UserService) markSubscribed(ctx context.Context, viewerID uint, users []models.User) error {
	if viewerID == 0 || len(users) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	subscribed, err := s.subRepo.SubscribedAuthorIDs(ctx, viewerID, ids)
	if err != nil {
		return err
	}
	for i := range users {
		users[i].IsSubscribed = subscribed[users[i].ID]
	}
	return nil
}
