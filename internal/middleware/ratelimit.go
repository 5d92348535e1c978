package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/parish-booking/internal/config"
	"github.com/iliyamo/parish-booking/internal/model"
)

// Rate-limited booking actions.
const (
	ActionSubmit  = "submit"
	ActionComment = "comment"
)

// gcra keeps one theoretical arrival time (TAT) per key, in unix ms.  A
// request is admitted while TAT + emission stays within burst*emission of
// now.  The key expires once the caller has earned the full burst back.
//
// KEYS: tat key.  ARGV: now ms, emission ms, burst.
// Returns {admitted, remaining, retry after ms}.
var gcra = redis.NewScript(`
	local now = tonumber(ARGV[1])
	local emission = tonumber(ARGV[2])
	local burst = tonumber(ARGV[3])

	local tat = tonumber(redis.call('GET', KEYS[1]))
	if not tat or tat < now then
		tat = now
	end
	local next_tat = tat + emission
	local allow_at = next_tat - emission * burst
	if allow_at > now then
		return {0, 0, allow_at - now}
	end
	redis.call('SET', KEYS[1], next_tat, 'PX', next_tat - now)
	return {1, math.floor((now - allow_at) / emission), 0}
`)

// Limiter throttles booking writes per caller, per sacrament kind and per
// action, so a burst of wedding submissions does not eat into a caller's
// baptism allowance.  A nil Limiter admits everything.
type Limiter struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
	now func() time.Time
}

// NewLimiter returns nil when limiting is disabled or Redis is unavailable.
func NewLimiter(cfg config.RateLimitConfig, rdb *redis.Client) *Limiter {
	if !cfg.Enabled || rdb == nil {
		return nil
	}
	return &Limiter{cfg: cfg, rdb: rdb, now: time.Now}
}

// Key is the Redis key holding the caller's state for kind and action.
// Authenticated callers are keyed by token subject, others by client IP.
func (l *Limiter) Key(c echo.Context, kind model.Kind, action string) string {
	caller := "ip:" + c.RealIP()
	if p, ok := Principal(c); ok {
		caller = "user:" + p.ID
	}
	return l.cfg.Prefix + ":" + kind.Plural() + ":" + action + ":" + caller
}

// Guard limits the wrapped route.  A Redis error admits the request.
func (l *Limiter) Guard(kind model.Kind, action string) echo.MiddlewareFunc {
	if l == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	emission := l.cfg.Emission().Milliseconds()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := l.Key(c, kind, action)
			res, err := gcra.Run(c.Request().Context(), l.rdb, []string{key},
				l.now().UnixMilli(), emission, l.cfg.Capacity).Int64Slice()
			if err != nil || len(res) != 3 {
				if l.cfg.Debug {
					c.Logger().Warnf("[ratelimit] key=%s result=%v err=%v", key, res, err)
				}
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res[1], 10))
			if res[0] == 1 {
				return next(c)
			}

			secs := (res[2] + 999) / 1000
			h.Set("Retry-After", strconv.FormatInt(secs, 10))
			if l.cfg.Debug {
				c.Logger().Infof("[ratelimit] block key=%s retry=%dms", key, res[2])
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "too many " + string(kind) + " " + action + " requests",
				"retry_after": secs,
			})
		}
	}
}
