package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	PostKeyPrefix       = "post:%d"
	PostsListKeyPrefix  = "posts:recent:v%d"
	postsListVersionKey = "posts:recent:version"
)

const (
	PostTTL = 5 * time.Minute
	ListTTL = 2 * time.Minute
)

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

// PostsListKey returns the key of the current recent-posts listing.
// The key embeds a version counter so a single INCR invalidates every cached listing.
func PostsListKey(ctx context.Context) string {
	var version int64
	if client != nil {
		if v, err := client.Get(ctx, postsListVersionKey).Int64(); err == nil {
			version = v
		}
	}
	return fmt.Sprintf(PostsListKeyPrefix, version)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}

func InvalidatePostsList(ctx context.Context) {
	if client != nil {
		client.Incr(ctx, postsListVersionKey)
	}
}
