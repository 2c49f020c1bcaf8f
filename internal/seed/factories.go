package seed

import (
	"context"
	"fmt"
	"strings"

	"foodgram/internal/models"
	"foodgram/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every generated user.
const DemoPassword = "foodgram-demo-1"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db           *gorm.DB
	faker        *gofakeit.Faker
	recipes      repository.RecipeRepository
	passwordHash string
	seq          int
}

// NewFactory creates a Factory. A zero seed picks a random one; tests pass a
// fixed seed for reproducible names.
func NewFactory(db *gorm.DB, seed int64, skipBcrypt bool) (*Factory, error) {
	hash := DemoPassword
	if !skipBcrypt {
		raw, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		hash = string(raw)
	}
	return &Factory{
		db:           db,
		faker:        gofakeit.New(seed),
		recipes:      repository.NewRecipeRepository(db),
		passwordHash: hash,
	}, nil
}

// BuildUser constructs a user without saving it. Usernames carry a sequence
// suffix so repeated calls never collide.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	f.seq++
	first := f.faker.FirstName()
	last := f.faker.LastName()
	username := fmt.Sprintf("%s.%s%d", strings.ToLower(first), strings.ToLower(last), f.seq)
	username = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\'' {
			return -1
		}
		return r
	}, username)

	user := &models.User{
		Email:     username + "@example.com",
		Username:  username,
		FirstName: first,
		LastName:  last,
		Password:  f.passwordHash,
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser builds and persists a user.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildRecipe constructs a recipe for author with a random subset of tags
// and ingredient lines. It returns the chosen tag ids and lines alongside.
func (f *Factory) BuildRecipe(author *models.User, tags []models.Tag, ingredients []models.Ingredient) (*models.Recipe, []uint, []models.RecipeIngredient) {
	recipe := &models.Recipe{
		AuthorID:    author.ID,
		Name:        f.dishName(),
		Image:       fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.faker.UUID()),
		Text:        f.faker.Paragraph(2, 3, 10, "\n\n"),
		CookingTime: f.faker.Number(5, 180),
	}

	var tagIDs []uint
	for _, tag := range pick(f.faker, tags, f.faker.Number(1, 2)) {
		tagIDs = append(tagIDs, tag.ID)
	}

	var lines []models.RecipeIngredient
	for _, ing := range pick(f.faker, ingredients, f.faker.Number(2, 6)) {
		lines = append(lines, models.RecipeIngredient{
			IngredientID: ing.ID,
			Amount:       f.faker.Number(models.MinAmount, 500),
		})
	}
	return recipe, tagIDs, lines
}

// CreateRecipe builds and persists a recipe through the recipe repository.
func (f *Factory) CreateRecipe(ctx context.Context, author *models.User, tags []models.Tag, ingredients []models.Ingredient) (*models.Recipe, error) {
	recipe, tagIDs, lines := f.BuildRecipe(author, tags, ingredients)
	if err := f.recipes.Create(ctx, recipe, tagIDs, lines); err != nil {
		return nil, err
	}
	return recipe, nil
}

func (f *Factory) dishName() string {
	var name string
	switch f.faker.Number(0, 4) {
	case 0:
		name = f.faker.Breakfast()
	case 1:
		name = f.faker.Lunch()
	case 2:
		name = f.faker.Dinner()
	case 3:
		name = f.faker.Dessert()
	default:
		name = f.faker.Snack()
	}
	if len(name) > 200 {
		name = name[:200]
	}
	return name
}

// pick returns up to n distinct elements of items in random order.
func pick[T any](faker *gofakeit.Faker, items []T, n int) []T {
	if n > len(items) {
		n = len(items)
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	for i := len(idx) - 1; i > 0; i-- {
		j := faker.Number(0, i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	out := make([]T, 0, n)
	for _, i := range idx[:n] {
		out = append(out, items[i])
	}
	return out
}
