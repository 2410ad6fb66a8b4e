package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/sixcities/internal/application/dto"
	"github.com/turtacn/sixcities/internal/infrastructure/ratelimit"
	"github.com/turtacn/sixcities/pkg/constants"
	"github.com/turtacn/sixcities/pkg/errors"
	"github.com/turtacn/sixcities/pkg/logger"
)

// RateLimit classifies each request into a tier, resolves the identity it is
// counted under and asks the limiter for a decision. Rejected requests get a
// 429 with Retry-After in whole seconds. Every response carries the
// X-RateLimit-* headers of its tier.
// RateLimit 为每个请求分级、解析身份并执行限流。
func RateLimit(limiter *ratelimit.Limiter, resolver *ratelimit.IdentityResolver, log logger.Logger) gin.HandlerFunc {
	log = log.WithComponent("rate_limit_middleware")

	return func(c *gin.Context) {
		tier := ratelimit.Classify(routePattern(c), c.Request.Method)
		identity := resolver.Resolve(c.Request, tier)

		d := limiter.Admit(c.Request.Context(), tier, identity)

		h := c.Writer.Header()
		h.Set(constants.HeaderRateLimitLimit, strconv.FormatInt(d.Limit, 10))
		h.Set(constants.HeaderRateLimitRemaining, strconv.FormatInt(d.Remaining, 10))
		h.Set(constants.HeaderRateLimitReset, strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			retryAfter := d.RetryAfterSeconds()
			h.Set(constants.HeaderRetryAfter, strconv.FormatInt(retryAfter, 10))
			log.Warn(c.Request.Context(), "Rate limit exceeded",
				logger.String("tier", string(tier)),
				logger.String("identity", identity),
				logger.Int64("limit", d.Limit),
				logger.String("source", string(d.Source)),
			)
			c.AbortWithStatusJSON(errors.ErrRateLimited.Status, dto.RateLimitExceededResponse(retryAfter, dto.RequestID(c)))
			return
		}

		c.Next()
	}
}

// routePattern is the matched route, e.g. /api/v1/cities/by-name/:name, so
// path parameters never pick the tier. Unmatched requests use the raw path.
func routePattern(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}
