package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// luaRateLimit is an atomic sliding-window counter.
// KEYS[1]=limiter key, ARGV[1]=now, ARGV[2]=window start, ARGV[3]=window seconds,
// ARGV[4]=member, ARGV[5]=limit.
// Returns the request count within the window, or -1 when the limit is hit.
const luaRateLimit = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local windowSec = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '0', windowStart)

local count = redis.call('ZCARD', key)

if count < tonumber(ARGV[5]) then
  redis.call('ZADD', key, now, member)
  redis.call('EXPIRE', key, windowSec)
  return count + 1
else
  return -1
end
`

// OTPRateLimit limits OTP requests per phone number using a Redis sliding
// window, falling back to the client IP when no phone is present in the body.
// With no Redis client configured the limiter is a no-op.
func OTPRateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("rate_limit:otp:ip:%s", c.ClientIP())
		if phone := extractPhone(c); phone != "" {
			key = fmt.Sprintf("rate_limit:otp:phone:%s", phone)
		}

		now := time.Now().Unix()
		windowSec := int64(window.Seconds())
		windowStart := now - windowSec
		member := fmt.Sprintf("%d-%d", now, time.Now().UnixNano())

		res, err := rdb.Eval(c.Request.Context(), luaRateLimit, []string{key},
			now, windowStart, windowSec, member, limit).Int()
		if err != nil {
			// A Redis outage must not lock users out of signing in
			c.Next()
			return
		}

		if res < 0 {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many OTP requests. Please try again later.",
				"code":    "RATE_LIMITED",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractPhone reads the phone number from the request body without consuming
// it, so the handler can still bind the body afterwards
func extractPhone(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}

	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}

	// Reset the body for downstream handlers
	c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	var req struct {
		Phone string `json:"phone"`
	}
	if err := json.Unmarshal(bodyBytes, &req); err != nil {
		return ""
	}
	return req.Phone
}
