package models

import "time"

// Favorite marks a recipe bookmarked by a user.
type Favorite struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_favorite_user_recipe"`
	RecipeID  uint      `gorm:"not null;index;uniqueIndex:idx_favorite_user_recipe"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Recipe    Recipe    `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

// ShoppingCart marks a recipe whose ingredients the user intends to buy.
type ShoppingCart struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_cart_user_recipe"`
	RecipeID  uint      `gorm:"not null;index;uniqueIndex:idx_cart_user_recipe"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Recipe    Recipe    `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

// RelationKind selects one of the user-recipe join tables.
type RelationKind string

const (
	RelationFavorite     RelationKind = "favorite"
	RelationShoppingCart RelationKind = "shopping_cart"
)

// Table returns the join table backing the relation.
func (k RelationKind) Table() string {
	switch k {
	case RelationShoppingCart:
		return "shopping_carts"
	default:
		return "favorites"
	}
}

// Label is the human readable list name used in error messages.
func (k RelationKind) Label() string {
	switch k {
	case RelationShoppingCart:
		return "shopping cart"
	default:
		return "favorites"
	}
}

// Row builds the GORM model for a new membership row.
func (k RelationKind) Row(userID, recipeID uint) interface{} {
	switch k {
	case RelationShoppingCart:
		return &ShoppingCart{UserID: userID, RecipeID: recipeID}
	default:
		return &Favorite{UserID: userID, RecipeID: recipeID}
	}
}

// Valid reports whether k is a known relation.
func (k RelationKind) Valid() bool {
	return k == RelationFavorite || k == RelationShoppingCart
}
