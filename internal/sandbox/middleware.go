package sandbox

import (
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fhecounter/fhevm_sdk_go/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// FailConfig injects failures into a fraction of requests.
type FailConfig struct {
	Rate float64
	Code int
}

// ParseFailConfig parses "rate=<float>,code=<httpStatus>".
func ParseFailConfig(raw string) (FailConfig, error) {
	var cfg FailConfig
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return cfg, nil
	}
	for _, part := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return cfg, fmt.Errorf("sandbox: invalid fail option %q", part)
		}
		switch strings.ToLower(key) {
		case "rate":
			rate, err := strconv.ParseFloat(value, 64)
			if err != nil || rate < 0 || rate > 1 {
				return cfg, fmt.Errorf("sandbox: invalid fail rate %q", value)
			}
			cfg.Rate = rate
		case "code":
			code, err := strconv.Atoi(value)
			if err != nil || code < 100 || code > 599 {
				return cfg, fmt.Errorf("sandbox: invalid fail code %q", value)
			}
			cfg.Code = code
		default:
			return cfg, fmt.Errorf("sandbox: unknown fail option %q", key)
		}
	}
	return cfg, nil
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("%s -->   %-6s   %s   %d   %s   %s",
			c.ClientIP(), c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			time.Since(start).Round(time.Microsecond), c.GetString(requestIDHeader))
	}
}

func inject(delay time.Duration, fail FailConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-c.Request.Context().Done():
				c.AbortWithStatus(http.StatusRequestTimeout)
				return
			}
		}
		if fail.Rate > 0 && rand.Float64() < fail.Rate {
			code := fail.Code
			if code == 0 {
				code = http.StatusInternalServerError
			}
			c.AbortWithStatusJSON(code, gin.H{"error": "failure injected"})
			return
		}
		c.Next()
	}
}
