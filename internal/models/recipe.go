package models

import "time"

const (
	MinCookingTime = 1
	MaxCookingTime = 32000
	MinAmount      = 1
	MaxAmount      = 32000
)

// Ingredient is reference data loaded from a fixture.
type Ingredient struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"size:128;not null;index;uniqueIndex:idx_ingredient_name_unit" json:"name"`
	MeasurementUnit string `gorm:"size:32;not null;uniqueIndex:idx_ingredient_name_unit" json:"measurement_unit"`
}

// Tag is reference data. Name and slug are both unique.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:32;uniqueIndex;not null" json:"name"`
	Slug string `gorm:"size:32;uniqueIndex;not null" json:"slug"`
}

// Recipe is owned by its author.
type Recipe struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	AuthorID    uint               `gorm:"not null;index" json:"author_id"`
	Author      User               `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	Name        string             `gorm:"size:200;not null" json:"name"`
	Image       string             `gorm:"size:512;not null" json:"image"`
	Text        string             `gorm:"type:text;not null" json:"text"`
	CookingTime int                `gorm:"not null" json:"cooking_time"`
	Tags        []Tag              `gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE" json:"tags"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"ingredients"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`

	IsFavorited      bool `gorm:"-" json:"is_favorited"`
	IsInShoppingCart bool `gorm:"-" json:"is_in_shopping_cart"`
}

// RecipeIngredient is the quantified link between a recipe and an ingredient.
type RecipeIngredient struct {
	ID           uint       `gorm:"primaryKey" json:"-"`
	RecipeID     uint       `gorm:"not null;index;uniqueIndex:idx_recipe_ingredient" json:"-"`
	IngredientID uint       `gorm:"not null;index;uniqueIndex:idx_recipe_ingredient" json:"id"`
	Ingredient   Ingredient `gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE" json:"-"`
	Amount       int        `gorm:"not null" json:"amount"`
}

// ShoppingListItem is one aggregated line of a shopping list.
type ShoppingListItem struct {
	Name            string
	MeasurementUnit string
	TotalAmount     int64
}
