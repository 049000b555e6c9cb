// Package viewcount decides whether a post detail view should increment the
// post's view counter. A client is counted at most once per post per local
// calendar day.
package viewcount

import (
	"context"
	"fmt"
	"time"

	"bbs/internal/middleware"
	"bbs/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// MarkerValue is stored in the per-post marker cookie once a view was counted.
const MarkerValue = "true"

// ClientCookie carries the opaque client token used by the Redis filter.
const ClientCookie = "bbs_client"

// ClientTokenTTL is how long the opaque client token cookie lives.
const ClientTokenTTL = 365 * 24 * time.Hour

// Visit describes a single detail view as seen by the HTTP layer.
type Visit struct {
	BoardCode string
	PostID    uint
	// Marker is the value of the client's per-post marker cookie, if any.
	Marker string
	// ClientToken is the opaque client token cookie, if any.
	ClientToken string
}

// Decision tells the caller whether to increment and which cookies to write.
type Decision struct {
	Count bool
	// Expires is the next local midnight; the marker cookie expires then.
	Expires time.Time
	// IssueToken is set when a fresh client token must be sent back.
	IssueToken string
}

// Filter answers should-count for a visit and records it.
type Filter interface {
	ShouldCount(ctx context.Context, v Visit) (Decision, error)
	Mode() string
}

// MarkerCookieName returns the per-post cookie name, e.g. hitboard_free_12.
func MarkerCookieName(boardCode string, postID uint) string {
	return fmt.Sprintf("hitboard_%s_%d", boardCode, postID)
}

// NextMidnight is the first instant of the day after now, in now's location.
func NextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}

// Clock returns the current time in the configured zone.
type Clock func() time.Time

// ClockIn returns a Clock reporting wall time in loc.
func ClockIn(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return func() time.Time { return time.Now().In(loc) }
}

// CookieFilter trusts the client's marker cookie. A visit counts when the
// marker is absent; browsers drop it at midnight.
type CookieFilter struct {
	now Clock
}

func NewCookieFilter(now Clock) *CookieFilter {
	return &CookieFilter{now: now}
}

func (f *CookieFilter) Mode() string { return "cookie" }

func (f *CookieFilter) ShouldCount(_ context.Context, v Visit) (Decision, error) {
	d := Decision{
		Count:   v.Marker != MarkerValue,
		Expires: NextMidnight(f.now()),
	}
	recordDecision(f.Mode(), d.Count)
	return d, nil
}

// RedisFilter keeps the per-day record server side, keyed by an opaque client
// token, so clearing cookies only resets the token rather than forging views.
// SET NX makes concurrent first views from one client count once.
type RedisFilter struct {
	rdb      *redis.Client
	now      Clock
	fallback Filter
}

func NewRedisFilter(rdb *redis.Client, now Clock) *RedisFilter {
	return &RedisFilter{rdb: rdb, now: now, fallback: NewCookieFilter(now)}
}

func (f *RedisFilter) Mode() string { return "redis" }

// Key is the Redis key recording one client's view of one post on one day.
func Key(boardCode string, postID uint, token string, day time.Time) string {
	return fmt.Sprintf("views:%s:%d:%s:%s", boardCode, postID, token, day.Format("20060102"))
}

func (f *RedisFilter) ShouldCount(ctx context.Context, v Visit) (Decision, error) {
	now := f.now()
	d := Decision{Expires: NextMidnight(now)}

	token := v.ClientToken
	if _, err := uuid.Parse(token); err != nil {
		token = uuid.NewString()
		d.IssueToken = token
	}

	if f.rdb == nil {
		return f.degrade(ctx, v, d, fmt.Errorf("redis client is nil"))
	}

	key := Key(v.BoardCode, v.PostID, token, now)
	ctx, span := observability.StartRedisSpan(ctx, "setnx", key)
	defer span.End()

	ok, err := f.rdb.SetNX(ctx, key, 1, d.Expires.Sub(now)).Result()
	if err != nil {
		span.RecordError(err)
		return f.degrade(ctx, v, d, err)
	}

	d.Count = ok
	recordDecision(f.Mode(), d.Count)
	return d, nil
}

// degrade falls back to the marker cookie when Redis is unreachable.
func (f *RedisFilter) degrade(ctx context.Context, v Visit, d Decision, cause error) (Decision, error) {
	middleware.Logger.WarnContext(ctx, "view dedup falling back to cookie",
		"board", v.BoardCode, "post_id", v.PostID, "error", cause)
	fb, err := f.fallback.ShouldCount(ctx, v)
	if err != nil {
		return d, err
	}
	fb.IssueToken = d.IssueToken
	return fb, nil
}

func recordDecision(mode string, counted bool) {
	outcome := "skipped"
	if counted {
		outcome = "counted"
	}
	observability.PostViews.WithLabelValues(mode, outcome).Inc()
}
