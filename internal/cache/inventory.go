package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix = "user:%d"
	TagListKey    = "tags:all"
	TagKeyPrefix  = "tag:%d"
)

const (
	UserTTL = 5 * time.Minute
	TagTTL  = 30 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func TagKey(tagID uint) string {
	return fmt.Sprintf(TagKeyPrefix, tagID)
}

// Invalidate drops key. Errors are ignored; entries expire on their own.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidateTags drops the cached tag list and the given per-tag entries.
func InvalidateTags(ctx context.Context, tagIDs ...uint) {
	Invalidate(ctx, TagListKey)
	for _, id := range tagIDs {
		Invalidate(ctx, TagKey(id))
	}
}
