package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumind/internal/shared/server/middleware"
	"resumind/internal/shared/server/respond"
)

// meResponse is the caller's identity as the auth middleware resolved it.
type meResponse struct {
	UserID  string `json:"userId"`
	IsGuest bool   `json:"isGuest"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", func(c *gin.Context) {
		userID := middleware.UserIDFromContext(c)
		if userID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}
		respond.OK(c, meResponse{
			UserID:  userID,
			IsGuest: middleware.IsGuest(c),
			Email:   middleware.UserEmailFromContext(c),
			Name:    middleware.UserNameFromContext(c),
			Picture: middleware.UserPictureFromContext(c),
		})
	})
}
