package mw

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

// recordingWriter tees the response body into buf.
type recordingWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func cacheKey(r *http.Request) string {
	return r.URL.RequestURI()
}

// Cache serves repeated GET requests for reference data from memory. Only 2xx
// responses are stored.
func Cache(responses *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cacheKey(c.Request)
		if v, ok := responses.Get(key); ok {
			hit := v.(cachedResponse)
			h := c.Writer.Header()
			for name, values := range hit.headers {
				if name != RequestIDHeader {
					h[name] = values
				}
			}
			h.Set("X-Cache", "HIT")
			c.Writer.WriteHeader(hit.status)
			_, _ = c.Writer.Write(hit.body)
			c.Abort()
			return
		}

		rw := &recordingWriter{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = rw
		c.Next()

		if status := rw.Status(); status >= 200 && status < 300 {
			responses.Set(key, cachedResponse{
				status:  status,
				headers: rw.Header().Clone(),
				body:    rw.buf.Bytes(),
			}, ttl)
		}
	}
}

// Invalidate drops cached responses under prefix after a successful write.
func Invalidate(responses *cache.Cache, prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Writer.Status() >= 300 {
			return
		}
		for key := range responses.Items() {
			if strings.HasPrefix(key, prefix) {
				responses.Delete(key)
			}
		}
	}
}
