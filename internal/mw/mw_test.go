package mw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"calibration-tracker/internal/auth"
	"calibration-tracker/internal/model"
	"calibration-tracker/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		for _, s := range v {
			req.Header.Add(k, s)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimiter(rate.Limit(1), 2), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", nil).Code)

	w := serve(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestIPRateLimiter_PerIP(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1, time.Minute)
	assert.Same(t, l.GetLimiter("10.0.0.1"), l.GetLimiter("10.0.0.1"))
	assert.NotSame(t, l.GetLimiter("10.0.0.1"), l.GetLimiter("10.0.0.2"))

	assert.True(t, l.GetLimiter("10.0.0.1").Allow())
	assert.False(t, l.GetLimiter("10.0.0.1").Allow())
	assert.True(t, l.GetLimiter("10.0.0.2").Allow())
}

func TestCacheAndInvalidate(t *testing.T) {
	responses := cache.New(time.Minute, time.Minute)
	calls := 0
	r := gin.New()
	r.GET("/api/things", Cache(responses, time.Minute), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.GET("/api/broken", Cache(responses, time.Minute), func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})
	r.POST("/api/things", Invalidate(responses, "/api/"), func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.POST("/api/fail", Invalidate(responses, "/api/"), func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	w := serve(r, http.MethodGet, "/api/things", nil)
	assert.JSONEq(t, `{"calls":1}`, w.Body.String())
	assert.Empty(t, w.Header().Get("X-Cache"))

	w = serve(r, http.MethodGet, "/api/things", nil)
	assert.JSONEq(t, `{"calls":1}`, w.Body.String())
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	serve(r, http.MethodPost, "/api/fail", nil)
	assert.Equal(t, "HIT", serve(r, http.MethodGet, "/api/things", nil).Header().Get("X-Cache"))

	serve(r, http.MethodPost, "/api/things", nil)
	w = serve(r, http.MethodGet, "/api/things", nil)
	assert.JSONEq(t, `{"calls":2}`, w.Body.String())

	serve(r, http.MethodGet, "/api/broken", nil)
	_, found := responses.Get("/api/broken")
	assert.False(t, found)
}

type users map[uint]*model.User

func (u users) FindUser(_ context.Context, id uint) (*model.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, store.ErrNotFound
}

func TestAuthAndRoles(t *testing.T) {
	issuer := auth.NewTokenIssuer("mw-secret", time.Hour)
	known := users{
		1: {ID: 1, Role: model.RoleAdmin},
		2: {ID: 2, Role: model.RoleEmployee},
	}

	r := gin.New()
	r.Use(Auth(issuer, known))
	r.GET("/me", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"id": CurrentUser(c).ID}) })
	r.GET("/admin", AdminOnly(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/staff", RequireRole(model.RoleAdmin, model.RoleTechnician), func(c *gin.Context) { c.Status(http.StatusOK) })

	bearer := func(u *model.User) http.Header {
		token, _, err := issuer.Issue(u)
		require.NoError(t, err)
		return http.Header{"Authorization": {"Bearer " + token}}
	}

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", http.Header{"Authorization": {"Bearer nope"}}).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", bearer(&model.User{ID: 99})).Code)

	w := serve(r, http.MethodGet, "/me", bearer(known[2]))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":2}`, w.Body.String())

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/admin", bearer(known[1])).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin", bearer(known[2])).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/staff", bearer(known[1])).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/staff", bearer(known[2])).Code)
}

func TestRequestLogger(t *testing.T) {
	log, hook := test.NewNullLogger()
	r := gin.New()
	r.Use(RequestLogger(log))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := serve(r, http.MethodGet, "/ok", http.Header{RequestIDHeader: {"req-1"}})
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-1", w.Body.String())

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "req-1", entry.Data["request_id"])
	assert.Equal(t, http.StatusOK, entry.Data["status"])
	assert.Equal(t, "/ok", entry.Data["path"])

	w = serve(r, http.MethodGet, "/fail", nil)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}
