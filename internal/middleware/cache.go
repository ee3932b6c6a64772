package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	metaKey      = "response_meta"
	metaStartKey = "response_meta_start"
)

// WithResponseMeta seeds every request with a metadata map that handlers
// enrich and the response envelope serializes. The request start time is
// recorded so ExtractMeta can stamp the elapsed handling time.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(metaStartKey, time.Now())
		c.Set(metaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetCacheHit marks whether the payload came from cache. Catalog search and
// the dashboards report this on every read.
func SetCacheHit(c *gin.Context, hit bool) {
	meta(c)["cache_hit"] = hit
}

// SetMetaValue stores one metadata entry for the current response.
func SetMetaValue(c *gin.Context, key string, value interface{}) {
	meta(c)[key] = value
}

// ExtractMeta returns the response metadata, stamping the elapsed handling
// time when the request went through WithResponseMeta. Contexts that never
// touched metadata get nil so bare responses stay lean.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	value, exists := c.Get(metaKey)
	if !exists {
		return nil
	}
	m, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	if start, found := c.Get(metaStartKey); found {
		if t, ok := start.(time.Time); ok {
			m["processing_time_ms"] = time.Since(t).Milliseconds()
		}
	}
	return m
}

func meta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return map[string]interface{}{}
	}
	if value, exists := c.Get(metaKey); exists {
		if m, ok := value.(map[string]interface{}); ok {
			return m
		}
	}
	fresh := map[string]interface{}{}
	c.Set(metaKey, fresh)
	return fresh
}
