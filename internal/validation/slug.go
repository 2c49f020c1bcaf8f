package validation

import (
	"fmt"
	"regexp"
)

const TagSlugMaxLength = 32

var tagSlugRegex = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// ValidateTagSlug checks the slug charset and length.
func ValidateTagSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug is required")
	}
	if len(slug) > TagSlugMaxLength {
		return fmt.Errorf("slug must not exceed %d characters", TagSlugMaxLength)
	}
	if !tagSlugRegex.MatchString(slug) {
		return fmt.Errorf("slug can only contain letters, numbers, hyphens and underscores")
	}
	return nil
}
