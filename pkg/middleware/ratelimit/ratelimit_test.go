package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareRejectsOverBudget(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(2, time.Hour).Middleware())
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestSweepDropsIdleVisitors(t *testing.T) {
	l := New(1, time.Minute)
	current := time.Now()
	l.now = func() time.Time { return current }
	l.Allow("a")

	current = current.Add(2 * time.Minute)
	assert.Equal(t, 0, l.Sweep())

	current = current.Add(2 * time.Minute)
	assert.Equal(t, 1, l.Sweep())
}
