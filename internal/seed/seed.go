package seed

import (
	"context"
	"fmt"

	"foodgram/internal/cache"
	"foodgram/internal/middleware"
	"foodgram/internal/models"
	"foodgram/internal/repository"

	"gorm.io/gorm"
)

// Options controls how much demo data the seeder generates.
type Options struct {
	Users          int
	RecipesPerUser int
	// Favorites and CartItems are per-user upper bounds.
	Favorites     int
	CartItems     int
	Subscriptions int
	SkipBcrypt    bool
	// Seed fixes the fake data generator; zero means random.
	Seed int64
}

// DefaultOptions returns a small but browsable data set.
func DefaultOptions() Options {
	return Options{
		Users:          8,
		RecipesPerUser: 4,
		Favorites:      5,
		CartItems:      3,
		Subscriptions:  3,
	}
}

// Seeder populates the database with reference fixtures and demo content.
type Seeder struct {
	db            *gorm.DB
	opts          Options
	factory       *Factory
	ingredients   repository.IngredientRepository
	tags          repository.TagRepository
	relations     repository.RelationRepository
	subscriptions repository.SubscriptionRepository
}

// NewSeeder creates a seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	factory, err := NewFactory(db, opts.Seed, opts.SkipBcrypt)
	if err != nil {
		return nil, fmt.Errorf("init factory: %w", err)
	}
	return &Seeder{
		db:            db,
		opts:          opts,
		factory:       factory,
		ingredients:   repository.NewIngredientRepository(db),
		tags:          repository.NewTagRepository(db),
		relations:     repository.NewRelationRepository(db),
		subscriptions: repository.NewSubscriptionRepository(db),
	}, nil
}

// LoadFixtures upserts the ingredient and tag lists. An empty path skips
// that fixture. Existing rows are left untouched.
func (s *Seeder) LoadFixtures(ctx context.Context, ingredientsPath, tagsPath string) error {
	if ingredientsPath != "" {
		items, err := LoadIngredients(ingredientsPath)
		if err != nil {
			return err
		}
		inserted, err := s.ingredients.Upsert(ctx, items)
		if err != nil {
			return fmt.Errorf("upsert ingredients: %w", err)
		}
		middleware.Logger.Info("ingredients loaded", "path", ingredientsPath, "read", len(items), "inserted", inserted)
	}
	if tagsPath != "" {
		tags, err := LoadTags(tagsPath)
		if err != nil {
			return err
		}
		inserted, err := s.tags.Upsert(ctx, tags)
		if err != nil {
			return fmt.Errorf("upsert tags: %w", err)
		}
		middleware.Logger.Info("tags loaded", "path", tagsPath, "read", len(tags), "inserted", inserted)
	}
	return nil
}

// SeedUsers creates Options.Users demo accounts.
func (s *Seeder) SeedUsers(ctx context.Context) ([]*models.User, error) {
	users := make([]*models.User, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		user, err := s.factory.CreateUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("create user %d: %w", i, err)
		}
		users = append(users, user)
	}
	middleware.Logger.Info("users seeded", "count", len(users), "password", DemoPassword)
	return users, nil
}

// SeedRecipes creates Options.RecipesPerUser recipes for each user using the
// tags and ingredients already in the database.
func (s *Seeder) SeedRecipes(ctx context.Context, users []*models.User) ([]*models.Recipe, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
		return nil, err
	}
	var ingredients []models.Ingredient
	if err := s.db.WithContext(ctx).Order("id").Find(&ingredients).Error; err != nil {
		return nil, err
	}
	if len(tags) == 0 || len(ingredients) == 0 {
		return nil, fmt.Errorf("load tag and ingredient fixtures before seeding recipes")
	}

	var recipes []*models.Recipe
	for _, user := range users {
		for i := 0; i < s.opts.RecipesPerUser; i++ {
			recipe, err := s.factory.CreateRecipe(ctx, user, tags, ingredients)
			if err != nil {
				return nil, fmt.Errorf("create recipe for %s: %w", user.Username, err)
			}
			recipes = append(recipes, recipe)
		}
	}
	middleware.Logger.Info("recipes seeded", "count", len(recipes))
	return recipes, nil
}

// SeedEngagement fills favorites, shopping carts and subscriptions with
// random pairs. Duplicates and self-subscriptions are skipped.
func (s *Seeder) SeedEngagement(ctx context.Context, users []*models.User, recipes []*models.Recipe) error {
	faker := s.factory.faker
	var favorites, carts, subs int

	for _, user := range users {
		for _, recipe := range pick(faker, recipes, s.opts.Favorites) {
			added, err := s.relations.Add(ctx, models.RelationFavorite, user.ID, recipe.ID)
			if err != nil {
				return fmt.Errorf("add favorite: %w", err)
			}
			if added {
				favorites++
			}
		}
		for _, recipe := range pick(faker, recipes, s.opts.CartItems) {
			added, err := s.relations.Add(ctx, models.RelationShoppingCart, user.ID, recipe.ID)
			if err != nil {
				return fmt.Errorf("add to cart: %w", err)
			}
			if added {
				carts++
			}
		}
		for _, author := range pick(faker, users, s.opts.Subscriptions) {
			if author.ID == user.ID {
				continue
			}
			created, err := s.subscriptions.Create(ctx, user.ID, author.ID)
			if err != nil {
				return fmt.Errorf("subscribe: %w", err)
			}
			if created {
				subs++
			}
		}
	}

	middleware.Logger.Info("engagement seeded", "favorites", favorites, "shopping_cart", carts, "subscriptions", subs)
	return nil
}

// Run loads fixtures and then generates the whole demo data set.
func (s *Seeder) Run(ctx context.Context, ingredientsPath, tagsPath string) error {
	if err := s.LoadFixtures(ctx, ingredientsPath, tagsPath); err != nil {
		return err
	}
	users, err := s.SeedUsers(ctx)
	if err != nil {
		return err
	}
	recipes, err := s.SeedRecipes(ctx, users)
	if err != nil {
		return err
	}
	return s.SeedEngagement(ctx, users, recipes)
}

// ClearAll removes user generated content, keeping ingredient and tag
// fixtures in place. Child tables go first so it works without cascades.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tables := []string{
		"favorites",
		"shopping_carts",
		"subscriptions",
		"recipe_ingredients",
		"recipe_tags",
		"recipes",
		"users",
	}
	var userIDs []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Pluck("id", &userIDs).Error; err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		for _, table := range tables {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Drop cached profiles of the deleted users.
	for _, id := range userIDs {
		cache.InvalidateUser(ctx, id)
	}
	middleware.Logger.Info("demo data cleared", "tables", len(tables), "users", len(userIDs))
	return nil
}
