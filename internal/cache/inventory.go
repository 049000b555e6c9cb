package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	BoardKeyPrefix = "board:%s"
	BoardListKey   = "boards:all"
	UserKeyPrefix  = "user:%d"
)

const (
	BoardTTL = 10 * time.Minute
	UserTTL  = 5 * time.Minute
)

func BoardKey(code string) string {
	return fmt.Sprintf(BoardKeyPrefix, code)
}

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateBoard drops the board entry and the directory listing.
func InvalidateBoard(ctx context.Context, code string) {
	Invalidate(ctx, BoardKey(code), BoardListKey)
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}
