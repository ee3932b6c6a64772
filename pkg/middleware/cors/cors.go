package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	allowMethods  = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	allowHeaders  = "Authorization, Content-Type, X-Requested-With, X-Request-ID"
	exposeHeaders = "Content-Disposition, X-Request-ID"
	maxAge        = "600"
)

// New returns a CORS middleware restricted to the configured origins. An
// empty list or a "*" entry admits every origin. Content-Disposition is
// exposed so browsers can read attachment filenames on report and document
// downloads.
func New(allowedOrigins []string) gin.HandlerFunc {
	policy := newPolicy(allowedOrigins)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		header := c.Writer.Header()
		header.Add("Vary", "Origin")

		if policy.allows(origin) {
			if origin != "" {
				header.Set("Access-Control-Allow-Origin", origin)
				header.Set("Access-Control-Allow-Credentials", "true")
			} else {
				header.Set("Access-Control-Allow-Origin", "*")
			}
			header.Set("Access-Control-Allow-Methods", allowMethods)
			header.Set("Access-Control-Allow-Headers", allowHeaders)
			header.Set("Access-Control-Expose-Headers", exposeHeaders)
			header.Set("Access-Control-Max-Age", maxAge)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type policy struct {
	allowAll bool
	origins  map[string]struct{}
}

func newPolicy(allowedOrigins []string) policy {
	p := policy{origins: make(map[string]struct{}, len(allowedOrigins))}
	if len(allowedOrigins) == 0 {
		p.allowAll = true
	}
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "*" {
			p.allowAll = true
			continue
		}
		if origin != "" {
			p.origins[origin] = struct{}{}
		}
	}
	return p
}

func (p policy) allows(origin string) bool {
	if p.allowAll {
		return true
	}
	_, ok := p.origins[strings.TrimRight(origin, "/")]
	return ok
}
