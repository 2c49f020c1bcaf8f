// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"foodgram/internal/middleware"
	"foodgram/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const (
	defaultPageSize    = 6
	maxPaginationLimit = 100
)

// Pagination holds the parsed page/limit query parameters.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

// Page is the envelope of every paginated list.
type Page struct {
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

// parsePagination reads page and limit. A non-numeric or non-positive page
// writes a 404 and returns errResponseWritten.
func parsePagination(c *fiber.Ctx) (Pagination, error) {
	limit := c.QueryInt("limit", defaultPageSize)
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			_ = models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Page", raw))
			return Pagination{}, errResponseWritten
		}
		page = n
	}

	return Pagination{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}, nil
}

// respondPage writes the paginated envelope. A page past the end is a 404,
// except for the first page of an empty list.
func respondPage(c *fiber.Ctx, p Pagination, total int64, results interface{}, n int) error {
	if n == 0 && p.Page > 1 {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Page", p.Page))
	}

	out := Page{Count: total, Results: results}
	if int64(p.Offset+n) < total {
		next := pageURL(c, p.Page+1)
		out.Next = &next
	}
	if p.Page > 1 {
		prev := pageURL(c, p.Page-1)
		out.Previous = &prev
	}
	return c.JSON(out)
}

// pageURL rebuilds the current absolute URL with page replaced. Page 1 drops
// the parameter.
func pageURL(c *fiber.Ctx, page int) string {
	query, _ := url.ParseQuery(string(c.Request().URI().QueryString()))
	if page <= 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(page))
	}
	u := c.BaseURL() + c.Path()
	if encoded := query.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 404 JSON response and returns errResponseWritten,
// since a malformed id can never name an existing object.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusNotFound,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "recipeId" -> "recipe ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// statusForError maps AppError codes to HTTP statuses.
func statusForError(err error) int {
	switch models.ErrorCode(err) {
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// mapServiceError writes err with its mapped status. Internal errors are
// logged with their cause; the client only sees a generic message.
func mapServiceError(c *fiber.Ctx, err error) error {
	status := statusForError(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request error",
			"method", c.Method(), "path", c.Path(), "error", err)
	}
	return models.RespondWithError(c, status, err)
}

// badRequestBody is the reply for a body that cannot be decoded.
func badRequestBody(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusBadRequest,
		models.NewValidationError("Invalid request body"))
}

// userIDFromLocals returns the authenticated user, or 0 when anonymous.
func userIDFromLocals(c *fiber.Ctx) uint {
	if id, ok := c.Locals("userID").(uint); ok {
		return id
	}
	return 0
}

// queryFlag reports whether a boolean filter such as is_favorited=1 is set.
func queryFlag(c *fiber.Ctx, name string) bool {
	switch strings.ToLower(strings.TrimSpace(c.Query(name))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
