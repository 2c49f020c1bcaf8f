package server

import "foodgram/internal/models"

// UserResponse is the public shape of a user.
type UserResponse struct {
	ID           uint    `json:"id"`
	Email        string  `json:"email"`
	Username     string  `json:"username"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Avatar       *string `json:"avatar"`
	IsSubscribed bool    `json:"is_subscribed"`
}

// RegisteredUserResponse is returned by registration.
type RegisteredUserResponse struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type TagResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type IngredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

type RecipeIngredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

type RecipeResponse struct {
	ID               uint                       `json:"id"`
	Tags             []TagResponse              `json:"tags"`
	Author           UserResponse               `json:"author"`
	Ingredients      []RecipeIngredientResponse `json:"ingredients"`
	IsFavorited      bool                       `json:"is_favorited"`
	IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	Name             string                     `json:"name"`
	Image            string                     `json:"image"`
	Text             string                     `json:"text"`
	CookingTime      int                        `json:"cooking_time"`
}

type ShortRecipeResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// AuthorCardResponse is a followed author with a preview of their recipes.
type AuthorCardResponse struct {
	UserResponse
	Recipes      []ShortRecipeResponse `json:"recipes"`
	RecipesCount int64                 `json:"recipes_count"`
}

func toUserResponse(u models.User) UserResponse {
	var avatar *string
	if u.Avatar != "" {
		a := u.Avatar
		avatar = &a
	}
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Avatar:       avatar,
		IsSubscribed: u.IsSubscribed,
	}
}

func toUserResponses(users []models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

func toTagResponse(t models.Tag) TagResponse {
	return TagResponse{ID: t.ID, Name: t.Name, Slug: t.Slug}
}

func toTagResponses(tags []models.Tag) []TagResponse {
	out := make([]TagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, toTagResponse(t))
	}
	return out
}

func toIngredientResponse(i models.Ingredient) IngredientResponse {
	return IngredientResponse{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}

func toIngredientResponses(items []models.Ingredient) []IngredientResponse {
	out := make([]IngredientResponse, 0, len(items))
	for _, i := range items {
		out = append(out, toIngredientResponse(i))
	}
	return out
}

func toRecipeResponse(r models.Recipe) RecipeResponse {
	lines := make([]RecipeIngredientResponse, 0, len(r.Ingredients))
	for _, line := range r.Ingredients {
		lines = append(lines, RecipeIngredientResponse{
			ID:              line.IngredientID,
			Name:            line.Ingredient.Name,
			MeasurementUnit: line.Ingredient.MeasurementUnit,
			Amount:          line.Amount,
		})
	}
	return RecipeResponse{
		ID:               r.ID,
		Tags:             toTagResponses(r.Tags),
		Author:           toUserResponse(r.Author),
		Ingredients:      lines,
		IsFavorited:      r.IsFavorited,
		IsInShoppingCart: r.IsInShoppingCart,
		Name:             r.Name,
		Image:            r.Image,
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}
}

func toRecipeResponses(recipes []models.Recipe) []RecipeResponse {
	out := make([]RecipeResponse, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, toRecipeResponse(r))
	}
	return out
}

func toShortRecipe(r models.Recipe) ShortRecipeResponse {
	return ShortRecipeResponse{ID: r.ID, Name: r.Name, Image: r.Image, CookingTime: r.CookingTime}
}

func toAuthorCard(card models.AuthorCard) AuthorCardResponse {
	recipes := make([]ShortRecipeResponse, 0, len(card.Recipes))
	for _, r := range card.Recipes {
		recipes = append(recipes, toShortRecipe(r))
	}
	return AuthorCardResponse{
		UserResponse: toUserResponse(card.User),
		Recipes:      recipes,
		RecipesCount: card.RecipesCount,
	}
}

func toAuthorCards(cards []models.AuthorCard) []AuthorCardResponse {
	out := make([]AuthorCardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, toAuthorCard(c))
	}
	return out
}
