package service

import (
	"context"
	"errors"
	"testing"

	"foodgram/internal/models"
	"foodgram/internal/repository"
	"foodgram/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// serviceEnv wires every service over a private SQLite database.
type serviceEnv struct {
	db    *gorm.DB
	store *testutil.MemoryStore

	media         *MediaService
	users         *UserService
	recipes       *RecipeService
	relations     *RelationService
	subscriptions *SubscriptionService
	shopping      *ShoppingListService
	reference     *ReferenceService
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	store := testutil.NewMemoryStore()

	userRepo := repository.NewUserRepository(db)
	recipeRepo := repository.NewRecipeRepository(db)
	tagRepo := repository.NewTagRepository(db)
	ingredientRepo := repository.NewIngredientRepository(db)
	relationRepo := repository.NewRelationRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)

	media := NewMediaService(store, nil)
	return &serviceEnv{
		db:            db,
		store:         store,
		media:         media,
		users:         NewUserService(userRepo, subRepo, media),
		recipes:       NewRecipeService(recipeRepo, tagRepo, ingredientRepo, relationRepo, subRepo, media),
		relations:     NewRelationService(recipeRepo, relationRepo),
		subscriptions: NewSubscriptionService(userRepo, subRepo, recipeRepo),
		shopping:      NewShoppingListService(recipeRepo),
		reference:     NewReferenceService(tagRepo, ingredientRepo),
	}
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeValidation)
}

func assertNotFoundError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func assertForbiddenError(t *testing.T, err error) {
	t.Helper()
	assertAppErrorCode(t, err, models.CodeForbidden)
}

var errUnexpectedCall = errors.New("unexpected repository call")

// userRepoStub fails every call that has no function set.
type userRepoStub struct {
	getByIDFn func(ctx context.Context, id uint) (*models.User, error)
}

func noopUserRepo() *userRepoStub { return &userRepoStub{} }

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return nil, errUnexpectedCall
}

func (s *userRepoStub) GetByIDUncached(ctx context.Context, id uint) (*models.User, error) {
	return s.GetByID(ctx, id)
}

func (s *userRepoStub) GetByEmail(context.Context, string) (*models.User, error) {
	return nil, errUnexpectedCall
}

func (s *userRepoStub) GetByUsername(context.Context, string) (*models.User, error) {
	return nil, errUnexpectedCall
}

func (s *userRepoStub) Create(context.Context, *models.User) error { return errUnexpectedCall }

func (s *userRepoStub) UpdatePassword(context.Context, uint, string) error { return errUnexpectedCall }

func (s *userRepoStub) UpdateAvatar(context.Context, uint, string) error { return errUnexpectedCall }

func (s *userRepoStub) List(context.Context, int, int) ([]models.User, int64, error) {
	return nil, 0, errUnexpectedCall
}

type subscriptionRepoStub struct {
	existsFn func(ctx context.Context, userID, authorID uint) (bool, error)
	createFn func(ctx context.Context, userID, authorID uint) (bool, error)
}

func noopSubscriptionRepo() *subscriptionRepoStub { return &subscriptionRepoStub{} }

func (s *subscriptionRepoStub) Create(ctx context.Context, userID, authorID uint) (bool, error) {
	if s.createFn != nil {
		return s.createFn(ctx, userID, authorID)
	}
	return false, errUnexpectedCall
}

func (s *subscriptionRepoStub) Delete(context.Context, uint, uint) (bool, error) {
	return false, errUnexpectedCall
}

func (s *subscriptionRepoStub) Exists(ctx context.Context, userID, authorID uint) (bool, error) {
	if s.existsFn != nil {
		return s.existsFn(ctx, userID, authorID)
	}
	return false, errUnexpectedCall
}

func (s *subscriptionRepoStub) SubscribedAuthorIDs(context.Context, uint, []uint) (map[uint]bool, error) {
	return nil, errUnexpectedCall
}

func (s *subscriptionRepoStub) ListAuthors(context.Context, uint, int, int) ([]models.User, int64, error) {
	return nil, 0, errUnexpectedCall
}
