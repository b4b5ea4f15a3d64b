package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestAllowPerKeyBurst(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(1, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a"))
}

func TestSweepDropsIdleKeys(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(1, 1)
	l.now = func() time.Time { return now }
	l.Allow("old")

	now = now.Add(time.Hour)
	l.Allow("new")

	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.m["old"]
	assert.False(t, ok)
	assert.Len(t, l.m, 1)
}

func TestMiddlewareReturns429(t *testing.T) {
	e := echo.New()
	l := New(0.001, 1)
	e.GET("/api/learners/:id/predictions", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, l.Middleware())

	codes := make([]int, 0, 3)
	for _, id := range []string{"u1", "u1", "u2"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/learners/"+id+"/predictions", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusOK}, codes)
}
