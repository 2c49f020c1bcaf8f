// Command main loads fixtures and demo data into the Foodgram database.
package main

import (
	"context"
	"flag"
	"log"

	"foodgram/internal/config"
	"foodgram/internal/database"
	"foodgram/internal/seed"
)

func main() {
	ingredients := flag.String("ingredients", "", "Ingredient fixture file (defaults to INGREDIENTS_FILE)")
	tags := flag.String("tags", "", "Tag fixture file (defaults to TAGS_FILE)")
	fixturesOnly := flag.Bool("fixtures-only", false, "Only load ingredient and tag fixtures")
	numUsers := flag.Int("users", seed.DefaultOptions().Users, "Number of demo users to create")
	numRecipes := flag.Int("recipes", seed.DefaultOptions().RecipesPerUser, "Recipes per demo user")
	shouldClean := flag.Bool("clean", false, "Remove users and recipes before seeding")
	fast := flag.Bool("fast", false, "Skip bcrypt for demo passwords (local use only)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *ingredients == "" {
		*ingredients = cfg.IngredientsFile
	}
	if *tags == "" {
		*tags = cfg.TagsFile
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	opts := seed.DefaultOptions()
	opts.Users = *numUsers
	opts.RecipesPerUser = *numRecipes
	opts.SkipBcrypt = *fast
	if opts.SkipBcrypt && cfg.IsProduction() {
		log.Fatal("-fast is not allowed in production")
	}

	s, err := seed.NewSeeder(db, opts)
	if err != nil {
		log.Fatalf("Failed to create seeder: %v", err)
	}

	ctx := context.Background()
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if *fixturesOnly {
		if err := s.LoadFixtures(ctx, *ingredients, *tags); err != nil {
			log.Fatalf("Fixture loading failed: %v", err)
		}
		log.Println("Fixtures loaded")
		return
	}

	if err := s.Run(ctx, *ingredients, *tags); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Done. Demo users share the password %q", seed.DemoPassword)
}
