package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"resumind/internal/shared/server/respond"
)

// InFlight tracks which principals currently hold a running request.
type InFlight struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewInFlight returns an empty tracker.
func NewInFlight() *InFlight {
	return &InFlight{active: make(map[string]struct{})}
}

// Acquire marks key as busy. It returns false if key is already busy.
func (f *InFlight) Acquire(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.active[key]; busy {
		return false
	}
	f.active[key] = struct{}{}
	return true
}

// Release frees key.
func (f *InFlight) Release(key string) {
	f.mu.Lock()
	delete(f.active, key)
	f.mu.Unlock()
}

// OnePerUser rejects a request with 409 while the same user already has one
// running through this handler chain.
func OnePerUser(tracker *InFlight) gin.HandlerFunc {
	if tracker == nil {
		tracker = NewInFlight()
	}
	return func(c *gin.Context) {
		key := UserIDFromContext(c)
		if key == "" {
			key = c.ClientIP()
		}
		if !tracker.Acquire(key) {
			respond.Error(c, http.StatusConflict, "submission_in_progress", "A submission is already running", nil)
			return
		}
		defer tracker.Release(key)
		c.Next()
	}
}
