package service

import (
	"bbs/internal/config"
	"bbs/internal/featureflags"
	"bbs/internal/viewcount"

	"github.com/redis/go-redis/v9"
)

// ViewDedup picks the filter that decides whether a detail view counts.
// VIEW_DEDUP_MODE=redis sends everyone to Redis; otherwise the
// redis_view_dedup flag rolls clients over by their client token.
type ViewDedup struct {
	cookie     viewcount.Filter
	redis      viewcount.Filter
	forceRedis bool
	flags      *featureflags.Manager
}

func NewViewDedup(cfg *config.Config, rdb *redis.Client, flags *featureflags.Manager) *ViewDedup {
	clock := viewcount.ClockIn(cfg.Location())
	d := &ViewDedup{
		cookie:     viewcount.NewCookieFilter(clock),
		forceRedis: cfg.ViewDedupMode == config.ViewDedupRedis,
		flags:      flags,
	}
	if rdb != nil {
		d.redis = viewcount.NewRedisFilter(rdb, clock)
	}
	return d
}

// For returns the filter serving the client holding clientToken.
func (d *ViewDedup) For(clientToken string) viewcount.Filter {
	if d.redis == nil {
		return d.cookie
	}
	if d.forceRedis || d.flags.Enabled(featureflags.RedisViewDedup, clientToken) {
		return d.redis
	}
	return d.cookie
}
