// Package seed loads reference fixtures and generates demo data for
// development databases.
package seed

import (
	"fmt"
	"os"
	"strings"

	"foodgram/internal/models"
	"foodgram/internal/validation"

	"gopkg.in/yaml.v3"
)

// Default fixture locations relative to the repository root.
const (
	DefaultIngredientsPath = "data/ingredients.json"
	DefaultTagsPath        = "data/tags.yml"
)

type ingredientFixture struct {
	Name            string `yaml:"name"`
	MeasurementUnit string `yaml:"measurement_unit"`
}

type tagFixture struct {
	Name string `yaml:"name" json:"name" validate:"required,max=32"`
	Slug string `yaml:"slug" json:"slug" validate:"required,tagslug"`
}

// LoadIngredients reads an ingredient list. JSON and YAML files are both
// accepted since JSON is a subset of YAML.
func LoadIngredients(path string) ([]models.Ingredient, error) {
	var raw []ingredientFixture
	if err := readFixture(path, &raw); err != nil {
		return nil, err
	}

	out := make([]models.Ingredient, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, item := range raw {
		name := strings.TrimSpace(item.Name)
		unit := strings.TrimSpace(item.MeasurementUnit)
		if name == "" || unit == "" {
			return nil, fmt.Errorf("%s: entry %d needs name and measurement_unit", path, i)
		}
		key := strings.ToLower(name) + "\x00" + unit
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, models.Ingredient{Name: name, MeasurementUnit: unit})
	}
	return out, nil
}

// LoadTags reads a tag list.
func LoadTags(path string) ([]models.Tag, error) {
	var raw []tagFixture
	if err := readFixture(path, &raw); err != nil {
		return nil, err
	}

	out := make([]models.Tag, 0, len(raw))
	for i, item := range raw {
		item.Name = strings.TrimSpace(item.Name)
		item.Slug = strings.TrimSpace(item.Slug)
		if err := validation.ValidateStruct(item); err != nil {
			return nil, fmt.Errorf("%s: entry %d: %w", path, i, err)
		}
		out = append(out, models.Tag{Name: item.Name, Slug: item.Slug})
	}
	return out, nil
}

func readFixture(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return nil
}
