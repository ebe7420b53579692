package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestAllowRefills(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(2, 1)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	now = now.Add(time.Hour)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}

func TestNilLimiterAllows(t *testing.T) {
	l := New(0, 1)
	assert.Nil(t, l)
	assert.True(t, l.Allow("x"))
	l.Prune(time.Minute)
}

func TestPrune(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(1, 1)
	l.now = func() time.Time { return now }
	l.Allow("old")
	now = now.Add(10 * time.Minute)
	l.Allow("new")
	l.Prune(5 * time.Minute)
	assert.Len(t, l.m, 1)
	_, ok := l.m["new"]
	assert.True(t, ok)
}

func TestMiddleware(t *testing.T) {
	e := echo.New()
	l := New(1, 0)
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, l.Middleware())

	do := func() int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		e.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}
