// Package respond writes JSON responses in the API's envelope conventions.
package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes payload with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 response.
func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Created writes a 201 response.
func Created(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
